package hypertune

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

//////
// Search space descriptors.
//////

// Distribution describes the domain of a single tunable parameter.
//
// Every parameter value has an internal representation as a float64
// regardless of its user-facing type: continuous parameters are represented
// directly, integer parameters as the (unrounded) position inside their
// range, and categorical parameters as the index into their choice set.
// Samplers operate exclusively on the internal representation; External
// converts a recorded value back to what the objective actually receives.
type Distribution interface {
	// Bounds returns the inclusive internal-representation range of the
	// domain.
	Bounds() (low, high float64)

	// External converts an internal value to the user-facing value.
	External(ir float64) any

	// Contains reports whether ir falls inside the domain.
	Contains(ir float64) bool
}

// SearchSpace maps parameter names to their domains. It is read-only once a
// study starts sampling; under grid search it fully determines the
// enumeration order.
type SearchSpace map[string]Distribution

// Uniform is a continuous domain sampled uniformly on [Low, High].
type Uniform struct {
	// Low is the minimum allowed value (inclusive).
	Low float64

	// High is the maximum allowed value (inclusive).
	High float64
}

// Bounds implements Distribution.
func (d Uniform) Bounds() (float64, float64) { return d.Low, d.High }

// External implements Distribution. The user-facing value is the internal
// value clamped to the domain.
func (d Uniform) External(ir float64) any { return clamp(ir, d.Low, d.High) }

// Contains implements Distribution.
func (d Uniform) Contains(ir float64) bool { return ir >= d.Low && ir <= d.High }

// LogUniform is a continuous domain sampled uniformly on a logarithmic
// scale, suitable for parameters spanning several orders of magnitude
// (learning rates, regularization strengths). Low must be positive.
type LogUniform struct {
	// Low is the minimum allowed value (inclusive, > 0).
	Low float64

	// High is the maximum allowed value (inclusive).
	High float64
}

// Bounds implements Distribution. Bounds are reported in linear space; the
// log transform is a sampling concern, not a domain concern.
func (d LogUniform) Bounds() (float64, float64) { return d.Low, d.High }

// External implements Distribution.
func (d LogUniform) External(ir float64) any { return clamp(ir, d.Low, d.High) }

// Contains implements Distribution.
func (d LogUniform) Contains(ir float64) bool { return ir >= d.Low && ir <= d.High }

// IntUniform is an integer domain on [Low, High] with an optional Step
// (defaults to 1). The internal representation is continuous; External
// snaps it to the nearest grid point Low + k*Step inside the range.
type IntUniform struct {
	// Low is the minimum allowed value (inclusive).
	Low int

	// High is the maximum allowed value (inclusive).
	High int

	// Step is the spacing between admissible values. Zero means 1.
	Step int
}

// Bounds implements Distribution.
func (d IntUniform) Bounds() (float64, float64) { return float64(d.Low), float64(d.High) }

// External implements Distribution. Returns an int.
func (d IntUniform) External(ir float64) any { return d.round(ir) }

// Contains implements Distribution.
func (d IntUniform) Contains(ir float64) bool {
	return ir >= float64(d.Low) && ir <= float64(d.High)
}

// round snaps an internal value to the nearest admissible integer.
func (d IntUniform) round(ir float64) int {
	step := d.Step
	if step <= 0 {
		step = 1
	}

	k := math.Round((ir - float64(d.Low)) / float64(step))
	v := d.Low + int(k)*step

	return clamp(v, d.Low, d.High)
}

// Categorical is an unordered choice set. The internal representation is
// the choice index.
type Categorical struct {
	// Choices holds the admissible values, in declaration order.
	Choices []string
}

// Bounds implements Distribution.
func (d Categorical) Bounds() (float64, float64) {
	return 0, float64(len(d.Choices) - 1)
}

// External implements Distribution. Returns the chosen string.
func (d Categorical) External(ir float64) any {
	return d.Choices[d.index(ir)]
}

// Contains implements Distribution.
func (d Categorical) Contains(ir float64) bool {
	i := int(math.Round(ir))
	return i >= 0 && i < len(d.Choices)
}

func (d Categorical) index(ir float64) int {
	return clamp(int(math.Round(ir)), 0, len(d.Choices)-1)
}

// validateDistribution rejects empty or inverted domains before a study
// records anything against them.
func validateDistribution(name string, d Distribution) error {
	switch v := d.(type) {
	case Uniform:
		if v.Low > v.High {
			return fmt.Errorf("parameter %q: low %v > high %v", name, v.Low, v.High)
		}
	case LogUniform:
		if v.Low <= 0 {
			return fmt.Errorf("parameter %q: log-uniform low must be > 0, got %v", name, v.Low)
		}
		if v.Low > v.High {
			return fmt.Errorf("parameter %q: low %v > high %v", name, v.Low, v.High)
		}
	case IntUniform:
		if v.Low > v.High {
			return fmt.Errorf("parameter %q: low %v > high %v", name, v.Low, v.High)
		}
		if v.Step < 0 {
			return fmt.Errorf("parameter %q: negative step %d", name, v.Step)
		}
	case Categorical:
		if len(v.Choices) == 0 {
			return fmt.Errorf("parameter %q: empty choice set", name)
		}
	}

	return nil
}

// clamp bounds v to [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
