// Package tpe implements the Tree-structured Parzen Estimator sampler.
//
// TPE inverts the usual surrogate-model recipe: instead of modeling the
// objective value as a function of the parameters, it splits the trial
// history into a "good" fraction and a "bad" remainder, fits a Parzen
// window density to each side, and proposes the candidate maximizing the
// ratio of good density to bad density. Each parameter is sampled
// independently, which keeps the estimator cheap and robust in mixed
// numeric/categorical spaces.
package tpe

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MichaelAllen1966/hypertune"
)

// densityFloor keeps log-density ratios finite when a candidate lands in a
// region one estimator assigns (numerically) zero mass.
const densityFloor = 1e-12

// GammaFunc decides how many of the n completed trials count as "good".
type GammaFunc func(n int) int

// DefaultGamma is the standard split: the best 10% of trials, capped at 25.
func DefaultGamma(n int) int {
	g := int(math.Ceil(0.1 * float64(n)))
	if g > 25 {
		g = 25
	}

	if g < 1 {
		g = 1
	}

	return g
}

// Sampler is an independent per-parameter TPE sampler implementing
// hypertune.Sampler.
type Sampler struct {
	mu sync.Mutex

	src rand.Source
	rnd *rand.Rand

	nStartup    int
	nCandidates int
	gamma       GammaFunc
}

// Option customizes the sampler.
type Option func(*Sampler)

// WithSeed seeds the sampler's generator. Default is 0.
func WithSeed(seed uint64) Option {
	return func(s *Sampler) {
		s.src = rand.NewSource(seed)
		s.rnd = rand.New(s.src)
	}
}

// WithStartupTrials sets how many completed trials must exist before the
// estimator takes over from uniform random draws. Default 10.
func WithStartupTrials(n int) Option {
	return func(s *Sampler) { s.nStartup = n }
}

// WithCandidates sets how many draws from the good-density are scored per
// suggestion. Default 24.
func WithCandidates(n int) Option {
	return func(s *Sampler) { s.nCandidates = n }
}

// WithGamma replaces the good/bad split rule. Default DefaultGamma.
func WithGamma(g GammaFunc) Option {
	return func(s *Sampler) { s.gamma = g }
}

// New returns a TPE sampler.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		nStartup:    10,
		nCandidates: 24,
		gamma:       DefaultGamma,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.src == nil {
		s.src = rand.NewSource(0)
		s.rnd = rand.New(s.src)
	}

	return s
}

// Sample implements hypertune.Sampler.
func (s *Sampler) Sample(
	study *hypertune.Study,
	_ hypertune.FrozenTrial,
	name string,
	d hypertune.Distribution,
) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obs, values, err := s.observations(study, name)
	if err != nil {
		return 0, err
	}

	if len(obs) < s.nStartup {
		return s.uniformDraw(name, d)
	}

	below, above := s.split(obs, values, s.gamma(len(obs)))

	switch v := d.(type) {
	case hypertune.Uniform:
		return s.numericSuggest(below, above, v.Low, v.High, false), nil

	case hypertune.LogUniform:
		x := s.numericSuggest(below, above, math.Log(v.Low), math.Log(v.High), true)

		return clampFloat(x, v.Low, v.High), nil

	case hypertune.IntUniform:
		return s.numericSuggest(below, above, float64(v.Low), float64(v.High), false), nil

	case hypertune.Categorical:
		return s.categoricalSuggest(below, above, len(v.Choices)), nil

	default:
		return 0, fmt.Errorf("parameter %q: unsupported distribution %T", name, d)
	}
}

// observations collects (internal value, score) pairs for one parameter
// over the study's completed trials. Scores are negated for maximize
// studies so lower is always better.
func (s *Sampler) observations(study *hypertune.Study, name string) (obs, values []float64, err error) {
	trials, err := study.Trials()
	if err != nil {
		return nil, nil, err
	}

	for _, t := range trials {
		if t.State != hypertune.TrialStateComplete {
			continue
		}

		ir, ok := t.InternalParams[name]
		if !ok {
			continue
		}

		value := t.Value
		if study.Direction() == hypertune.Maximize {
			value = -value
		}

		obs = append(obs, ir)
		values = append(values, value)
	}

	return obs, values, nil
}

// split partitions the observations into the nBelow best and the rest.
func (s *Sampler) split(obs, values []float64, nBelow int) (below, above []float64) {
	idx := make([]int, len(obs))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	if nBelow > len(idx) {
		nBelow = len(idx)
	}

	for i, j := range idx {
		if i < nBelow {
			below = append(below, obs[j])
		} else {
			above = append(above, obs[j])
		}
	}

	return below, above
}

// numericSuggest draws candidates from the good-side Parzen estimator and
// keeps the one with the best good/bad log-density ratio. Work happens in
// transformed space (log space for log-uniform domains); the returned value
// is mapped back.
func (s *Sampler) numericSuggest(below, above []float64, lo, hi float64, logSpace bool) float64 {
	if logSpace {
		below = logAll(below)
		above = logAll(above)
	}

	good := newParzen(below, lo, hi)
	bad := newParzen(above, lo, hi)

	var (
		best      float64
		bestScore = math.Inf(-1)
	)

	for i := 0; i < s.nCandidates; i++ {
		x := good.sample(s.rnd, s.src)

		score := math.Log(good.pdf(x)+densityFloor) - math.Log(bad.pdf(x)+densityFloor)
		if score > bestScore {
			bestScore = score
			best = x
		}
	}

	if logSpace {
		return math.Exp(best)
	}

	return best
}

// categoricalSuggest scores candidate categories by the ratio of smoothed
// occurrence frequencies in the good and bad splits.
func (s *Sampler) categoricalSuggest(below, above []float64, nChoices int) float64 {
	goodW := categoryWeights(below, nChoices)
	badW := categoryWeights(above, nChoices)

	var (
		best      int
		bestScore = math.Inf(-1)
	)

	for i := 0; i < s.nCandidates; i++ {
		c := weightedChoice(s.rnd, goodW)

		score := math.Log(goodW[c]) - math.Log(badW[c])
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return float64(best)
}

// uniformDraw is the startup-phase fallback: an independent uniform draw
// inside the domain.
func (s *Sampler) uniformDraw(name string, d hypertune.Distribution) (float64, error) {
	switch v := d.(type) {
	case hypertune.Uniform:
		return v.Low + s.rnd.Float64()*(v.High-v.Low), nil

	case hypertune.LogUniform:
		lo, hi := math.Log(v.Low), math.Log(v.High)

		return clampFloat(math.Exp(lo+s.rnd.Float64()*(hi-lo)), v.Low, v.High), nil

	case hypertune.IntUniform:
		step := v.Step
		if step <= 0 {
			step = 1
		}

		n := (v.High-v.Low)/step + 1

		return float64(v.Low + s.rnd.Intn(n)*step), nil

	case hypertune.Categorical:
		return float64(s.rnd.Intn(len(v.Choices))), nil

	default:
		return 0, fmt.Errorf("parameter %q: unsupported distribution %T", name, d)
	}
}

//////
// Parzen window estimator.
//////

// parzen is a truncated mixture of equal-weight normal components, one per
// observation, plus one wide prior component spanning the whole domain.
// The prior keeps both estimators strictly positive everywhere and stops
// the good-density from collapsing onto a single point early in a study.
type parzen struct {
	mus    []float64
	sigmas []float64
	lo, hi float64
}

func newParzen(obs []float64, lo, hi float64) parzen {
	width := hi - lo
	if width <= 0 {
		width = 1
	}

	// Shared bandwidth shrinking with sample size.
	sigma := width / (1.0 + math.Sqrt(float64(len(obs))))

	p := parzen{lo: lo, hi: hi}

	// Prior component: centered, domain-wide.
	p.mus = append(p.mus, lo+width/2)
	p.sigmas = append(p.sigmas, width)

	for _, m := range obs {
		p.mus = append(p.mus, m)
		p.sigmas = append(p.sigmas, sigma)
	}

	return p
}

// pdf evaluates the mixture density at x, renormalized for truncation to
// [lo, hi].
func (p parzen) pdf(x float64) float64 {
	var sum float64

	for i := range p.mus {
		n := distuv.Normal{Mu: p.mus[i], Sigma: p.sigmas[i]}

		mass := n.CDF(p.hi) - n.CDF(p.lo)
		if mass <= densityFloor {
			continue
		}

		sum += n.Prob(x) / mass
	}

	return sum / float64(len(p.mus))
}

// sample draws one point from the mixture, clamped into the domain.
func (p parzen) sample(rnd *rand.Rand, src rand.Source) float64 {
	i := rnd.Intn(len(p.mus))

	n := distuv.Normal{Mu: p.mus[i], Sigma: p.sigmas[i], Src: src}

	x := n.Rand()
	if x < p.lo {
		x = p.lo
	} else if x > p.hi {
		x = p.hi
	}

	return x
}

//////
// Helpers.
//////

// clampFloat bounds round-tripped log-space values back into the domain.
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func logAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Log(x)
	}

	return out
}

// categoryWeights returns add-one-smoothed, normalized occurrence
// frequencies of each category index in obs.
func categoryWeights(obs []float64, nChoices int) []float64 {
	w := make([]float64, nChoices)
	for i := range w {
		w[i] = 1
	}

	total := float64(nChoices)

	for _, ir := range obs {
		i := int(math.Round(ir))
		if i >= 0 && i < nChoices {
			w[i]++
			total++
		}
	}

	for i := range w {
		w[i] /= total
	}

	return w
}

// weightedChoice draws an index proportionally to the (normalized) weights.
func weightedChoice(rnd *rand.Rand, weights []float64) int {
	r := rnd.Float64()

	var cum float64

	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}

	return len(weights) - 1
}
