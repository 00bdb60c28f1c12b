package hypertune

import (
	"errors"
	"fmt"
)

//////
// Trial records and the live trial handle.
//////

// ErrTrialPruned is returned by an objective to record the current trial
// with state TrialStatePruned instead of failing the study. The pruned
// trial never participates in best-trial lookup.
var ErrTrialPruned = errors.New("trial pruned")

// TrialState is the lifecycle state of a trial.
type TrialState int

const (
	// TrialStateRunning marks a trial whose objective has not finished.
	TrialStateRunning TrialState = iota

	// TrialStateComplete marks a trial with a recorded score.
	TrialStateComplete

	// TrialStateFail marks a trial whose objective returned an error.
	TrialStateFail

	// TrialStatePruned marks a trial abandoned via ErrTrialPruned.
	TrialStatePruned
)

// String implements fmt.Stringer.
func (s TrialState) String() string {
	switch s {
	case TrialStateRunning:
		return "running"
	case TrialStateComplete:
		return "complete"
	case TrialStateFail:
		return "fail"
	case TrialStatePruned:
		return "pruned"
	default:
		return fmt.Sprintf("TrialState(%d)", int(s))
	}
}

// Finished reports whether the trial reached a terminal state.
func (s TrialState) Finished() bool {
	return s != TrialStateRunning
}

// FrozenTrial is the immutable record of one evaluation of the objective
// function at a specific parameter assignment. Records are owned by the
// study's storage and are never mutated after reaching a terminal state.
type FrozenTrial struct {
	// ID is the trial number, unique and increasing within a study.
	ID int

	// State is the lifecycle state of the trial.
	State TrialState

	// Value is the objective score. Meaningful only when State is
	// TrialStateComplete.
	Value float64

	// InternalParams holds the sampled values in internal representation,
	// keyed by parameter name.
	InternalParams map[string]float64

	// Params holds the user-facing parameter values, keyed by name.
	Params map[string]any

	// Distributions holds the domain each parameter was drawn from.
	Distributions map[string]Distribution
}

// Trial is the live handle passed to an objective function. Its Suggest
// methods declare the search space on the fly: each call either replays a
// value already recorded for this trial or asks the study's sampler for a
// fresh one and records it.
//
// A Trial is only valid for the duration of one objective invocation and
// must not be retained or shared across goroutines.
type Trial struct {
	study *Study
	id    int

	// relativeParams holds the joint proposal produced by the study's
	// relative sampler before the objective ran, keyed by parameter name.
	// Suggest calls consume it in preference to independent sampling.
	relativeParams map[string]float64
}

// ID returns the trial number within its study.
func (t *Trial) ID() int { return t.id }

// SuggestFloat samples a continuous value uniformly from [low, high].
func (t *Trial) SuggestFloat(name string, low, high float64) (float64, error) {
	ir, err := t.suggest(name, Uniform{Low: low, High: high})
	if err != nil {
		return 0, err
	}

	return clamp(ir, low, high), nil
}

// SuggestLogFloat samples a continuous value from [low, high] uniformly on
// a logarithmic scale. low must be positive.
func (t *Trial) SuggestLogFloat(name string, low, high float64) (float64, error) {
	ir, err := t.suggest(name, LogUniform{Low: low, High: high})
	if err != nil {
		return 0, err
	}

	return clamp(ir, low, high), nil
}

// SuggestInt samples an integer uniformly from [low, high].
func (t *Trial) SuggestInt(name string, low, high int) (int, error) {
	return t.SuggestSteppedInt(name, low, high, 1)
}

// SuggestSteppedInt samples an integer from {low, low+step, ...} capped at
// high.
func (t *Trial) SuggestSteppedInt(name string, low, high, step int) (int, error) {
	d := IntUniform{Low: low, High: high, Step: step}

	ir, err := t.suggest(name, d)
	if err != nil {
		return 0, err
	}

	return d.round(ir), nil
}

// SuggestCategorical samples one of the given choices.
func (t *Trial) SuggestCategorical(name string, choices []string) (string, error) {
	d := Categorical{Choices: choices}

	ir, err := t.suggest(name, d)
	if err != nil {
		return "", err
	}

	return d.Choices[d.index(ir)], nil
}

// suggest resolves a parameter value in priority order: a value already
// recorded for this trial, then the relative sampler's joint proposal, then
// an independent draw. Whatever wins is recorded through storage so the
// trial's frozen record always reflects what the objective saw.
func (t *Trial) suggest(name string, d Distribution) (float64, error) {
	if err := validateDistribution(name, d); err != nil {
		return 0, err
	}

	frozen, err := t.study.storage.Trial(t.study.id, t.id)
	if err != nil {
		return 0, fmt.Errorf("load trial %d: %w", t.id, err)
	}

	if ir, ok := frozen.InternalParams[name]; ok {
		return ir, nil
	}

	ir, ok := t.relativeParams[name]
	if !ok {
		ir, err = t.study.sampler.Sample(t.study, frozen, name, d)
		if err != nil {
			return 0, fmt.Errorf("sample %q: %w", name, err)
		}
	}

	if !d.Contains(ir) {
		return 0, fmt.Errorf("sample %q: value %v outside domain", name, ir)
	}

	if err := t.study.storage.SetTrialParam(t.study.id, t.id, name, ir, d); err != nil {
		return 0, fmt.Errorf("record %q: %w", name, err)
	}

	return ir, nil
}
