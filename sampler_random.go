package hypertune

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

//////
// Random search.
//////

// RandomSampler draws every parameter independently and uniformly from its
// domain (uniformly in log space for LogUniform). It is the default study
// sampler and the fallback for parameters a relative sampler does not
// cover.
//
// The internal generator is mutex-guarded, so one sampler instance may be
// shared between studies; draws then interleave and per-study
// reproducibility is lost.
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler returns a RandomSampler seeded with seed. The same seed,
// search space, and deterministic objective reproduce the same trial
// sequence.
func NewRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample implements Sampler.
func (s *RandomSampler) Sample(_ *Study, _ FrozenTrial, name string, d Distribution) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch v := d.(type) {
	case Uniform:
		return v.Low + s.rng.Float64()*(v.High-v.Low), nil

	case LogUniform:
		logLow := math.Log(v.Low)
		logHigh := math.Log(v.High)

		// Exp(Log(x)) can land one ulp outside the domain.
		return clamp(math.Exp(logLow+s.rng.Float64()*(logHigh-logLow)), v.Low, v.High), nil

	case IntUniform:
		step := v.Step
		if step <= 0 {
			step = 1
		}

		// Draw an admissible grid point directly so every one has equal
		// probability.
		n := (v.High-v.Low)/step + 1

		return float64(v.Low + s.rng.Intn(n)*step), nil

	case Categorical:
		return float64(s.rng.Intn(len(v.Choices))), nil

	default:
		return 0, fmt.Errorf("parameter %q: unsupported distribution %T", name, d)
	}
}
