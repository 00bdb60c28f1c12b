package cmaes

import (
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/MichaelAllen1966/hypertune"
)

// Sampler adapts the ask/tell optimizer to the hypertune.RelativeSampler
// contract. Completed trials are folded back into the optimizer in arrival
// order; every populationSize of them closes a generation and triggers a
// distribution update.
type Sampler struct {
	mu sync.Mutex

	seed    int64
	sigma0  float64
	popSize int

	opt   *optimizer
	names []string

	// told tracks trial IDs already consumed, pending buffers completed
	// solutions until a full generation is available.
	told    map[int]bool
	pending []solution
}

// Option customizes the sampler.
type Option func(*Sampler)

// WithSeed seeds the optimizer's generator. Default 0.
func WithSeed(seed int64) Option {
	return func(s *Sampler) { s.seed = seed }
}

// WithInitialSigma sets the initial step size as a fraction of the unit
// cube edge. Default 0.3.
func WithInitialSigma(sigma float64) Option {
	return func(s *Sampler) { s.sigma0 = sigma }
}

// WithPopulationSize overrides the generation size. Default is the
// standard 4 + floor(3 ln dim).
func WithPopulationSize(n int) Option {
	return func(s *Sampler) { s.popSize = n }
}

// New returns a CMA-ES sampler.
func New(opts ...Option) *Sampler {
	s := &Sampler{told: make(map[int]bool)}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SampleRelative implements hypertune.RelativeSampler.
func (s *Sampler) SampleRelative(
	study *hypertune.Study,
	_ hypertune.FrozenTrial,
	space hypertune.SearchSpace,
) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := numericNames(space)
	if len(names) == 0 {
		return nil, nil
	}

	if s.opt == nil {
		opt, err := newOptimizer(len(names), s.popSize, s.sigma0, s.seed)
		if err != nil {
			return nil, err
		}

		s.opt = opt
		s.names = names
	}

	if err := s.absorb(study, space); err != nil {
		return nil, err
	}

	x := s.opt.ask()

	assignment := make(map[string]float64, len(s.names))
	for i, name := range s.names {
		assignment[name] = fromUnit(space[name], x[i])
	}

	return assignment, nil
}

// absorb feeds unconsumed completed trials to the optimizer, closing
// generations as they fill up. Values are negated for maximize studies so
// the optimizer always minimizes.
func (s *Sampler) absorb(study *hypertune.Study, space hypertune.SearchSpace) error {
	trials, err := study.Trials()
	if err != nil {
		return err
	}

	for _, t := range trials {
		if t.State != hypertune.TrialStateComplete || s.told[t.ID] {
			continue
		}

		x := make([]float64, len(s.names))

		ok := true

		for i, name := range s.names {
			ir, has := t.InternalParams[name]
			if !has {
				ok = false

				break
			}

			x[i] = toUnit(space[name], ir)
		}

		if !ok {
			continue
		}

		value := t.Value
		if study.Direction() == hypertune.Maximize {
			value = -value
		}

		s.pending = append(s.pending, solution{x: x, value: value})
		s.told[t.ID] = true

		if len(s.pending) == s.opt.populationSize() {
			if err := s.opt.tell(s.pending); err != nil {
				return err
			}

			s.pending = s.pending[:0]
		}
	}

	return nil
}

//////
// Unit-cube mapping.
//////

func numericNames(space hypertune.SearchSpace) []string {
	var names []string

	for _, name := range maps.Keys(space) {
		switch space[name].(type) {
		case hypertune.Uniform, hypertune.LogUniform, hypertune.IntUniform:
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

func toUnit(d hypertune.Distribution, ir float64) float64 {
	switch v := d.(type) {
	case hypertune.LogUniform:
		lo, hi := math.Log(v.Low), math.Log(v.High)
		if hi == lo {
			return 0
		}

		return (math.Log(ir) - lo) / (hi - lo)

	default:
		lo, hi := d.Bounds()
		if hi == lo {
			return 0
		}

		return (ir - lo) / (hi - lo)
	}
}

func fromUnit(d hypertune.Distribution, u float64) float64 {
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}

	switch v := d.(type) {
	case hypertune.LogUniform:
		lo, hi := math.Log(v.Low), math.Log(v.High)

		x := math.Exp(lo + u*(hi-lo))

		// Exp(Log(x)) can land one ulp outside the domain.
		if x < v.Low {
			x = v.Low
		} else if x > v.High {
			x = v.High
		}

		return x

	default:
		lo, hi := d.Bounds()

		return lo + u*(hi-lo)
	}
}
