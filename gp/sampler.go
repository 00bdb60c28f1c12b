package gp

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/MichaelAllen1966/hypertune"
)

//////
// The sampler.
//////

// Sampler proposes joint parameter assignments with Bayesian optimization:
// a Gaussian Process fit to the trial history predicts the objective at
// untested points, and an acquisition function selects the most promising
// out of a batch of random candidates.
//
// Only numeric parameters (Uniform, LogUniform, IntUniform) are covered;
// categorical parameters fall through to the study's independent sampler.
// All model arithmetic happens in the unit cube: each dimension is
// normalized to [0, 1] (log scale for LogUniform) so one kernel width fits
// every parameter.
type Sampler struct {
	mu sync.Mutex

	rng           *rand.Rand
	startupTrials int
	numCandidates int
	acquisition   Acquisition
	params        AcquisitionParams

	reg *regressor

	// seen records trial IDs already folded into the model, so repeated
	// SampleRelative calls never double-count an observation.
	seen map[int]bool
}

// Option customizes the sampler.
type Option func(*Sampler)

// WithSeed seeds the candidate generator. Default is 0.
func WithSeed(seed int64) Option {
	return func(s *Sampler) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithStartupTrials sets how many completed trials are required before the
// model takes over from random joint proposals. Default 10.
func WithStartupTrials(n int) Option {
	return func(s *Sampler) { s.startupTrials = n }
}

// WithNumCandidates sets how many random candidates the acquisition
// function scores per trial. Default 50.
func WithNumCandidates(n int) Option {
	return func(s *Sampler) { s.numCandidates = n }
}

// WithAcquisition replaces the acquisition function. Default UCB.
func WithAcquisition(a Acquisition) Option {
	return func(s *Sampler) { s.acquisition = a }
}

// WithBeta sets the UCB exploration weight. Default 2.0.
func WithBeta(beta float64) Option {
	return func(s *Sampler) { s.params.Beta = beta }
}

// WithXi sets the PI/EI improvement margin. Default 0.01.
func WithXi(xi float64) Option {
	return func(s *Sampler) { s.params.Xi = xi }
}

// WithKernelWidth sets the RBF kernel width of the underlying model.
// Default 1.0, tuned for unit-cube inputs.
func WithKernelWidth(sigma float64) Option {
	return func(s *Sampler) { s.reg = newRegressor(sigma) }
}

// New returns a Gaussian Process sampler.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		rng:           rand.New(rand.NewSource(0)),
		startupTrials: 10,
		numCandidates: 50,
		acquisition:   UCB,
		params: AcquisitionParams{
			Beta:      2.0,
			Xi:        0.01,
			BestSoFar: math.MaxFloat64,
		},
		reg:  newRegressor(1.0),
		seen: make(map[int]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.params.RandomState = s.rng

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

	if err := s.absorb(study, space, names); err != nil {
		return nil, err
	}

	var unit []float64

	if s.reg.Len() < s.startupTrials {
		// Startup phase: a random joint point, evaluated to seed the model.
		unit = s.randomUnit(len(names))
	} else {
		unit = s.proposeUnit(len(names))
	}

	assignment := make(map[string]float64, len(names))
	for i, name := range names {
		assignment[name] = fromUnit(space[name], unit[i])
	}

	return assignment, nil
}

// absorb folds unseen completed trials into the model. Values are negated
// for maximize studies so the model always minimizes.
func (s *Sampler) absorb(study *hypertune.Study, space hypertune.SearchSpace, names []string) error {
	trials, err := study.Trials()
	if err != nil {
		return err
	}

	for _, t := range trials {
		if t.State != hypertune.TrialStateComplete || s.seen[t.ID] {
			continue
		}

		vec, ok := unitVector(t, space, names)
		if !ok {
			continue
		}

		y := t.Value
		if study.Direction() == hypertune.Maximize {
			y = -y
		}

		s.reg.Update(vec, y)
		s.seen[t.ID] = true
	}

	return nil
}

// proposeUnit scores numCandidates random points with the acquisition
// function and returns the most promising one.
func (s *Sampler) proposeUnit(dim int) []float64 {
	s.params.BestSoFar = s.reg.Best()

	var (
		best      []float64
		bestScore = math.MaxFloat64
	)

	for i := 0; i < s.numCandidates; i++ {
		candidate := s.randomUnit(dim)

		mean, variance := s.reg.Predict(candidate)

		score := s.acquisition(mean, variance, s.params)
		if score < bestScore {
			bestScore = score
			best = candidate
		}
	}

	return best
}

func (s *Sampler) randomUnit(dim int) []float64 {
	u := make([]float64, dim)
	for i := range u {
		u[i] = s.rng.Float64()
	}

	return u
}

//////
// Unit-cube mapping.
//////

// numericNames returns the sorted names of the parameters the model covers.
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

// unitVector maps a trial's recorded parameters onto the unit cube. Returns
// false if the trial is missing any of the named parameters.
func unitVector(t hypertune.FrozenTrial, space hypertune.SearchSpace, names []string) ([]float64, bool) {
	vec := make([]float64, len(names))

	for i, name := range names {
		ir, ok := t.InternalParams[name]
		if !ok {
			return nil, false
		}

		vec[i] = toUnit(space[name], ir)
	}

	return vec, true
}

// toUnit maps an internal value to [0, 1] within its domain.
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

// fromUnit maps a unit-cube coordinate back to an internal value.
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
