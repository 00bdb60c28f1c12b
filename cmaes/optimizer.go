// Package cmaes implements the Covariance Matrix Adaptation Evolution
// Strategy as a relative sampler: trials are drawn generation by generation
// from a multivariate normal search distribution whose mean, step size, and
// covariance adapt to the ranking of past objective values.
//
// The optimizer works in the unit cube; the sampler maps each numeric
// parameter dimension onto [0, 1] (log scale for log-uniform domains) and
// back. Categorical parameters are not covered and fall through to the
// study's independent sampler.
package cmaes

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// minEigenvalue floors the covariance spectrum to keep the decomposition
// usable after aggressive adaptation steps.
const minEigenvalue = 1e-12

// solution is one evaluated point of a generation.
type solution struct {
	x     []float64
	value float64
}

// optimizer is a standard (mu/mu_w, lambda) CMA-ES in ask/tell form over
// the unit cube.
type optimizer struct {
	dim    int
	lambda int
	muRank int

	weights []float64
	mueff   float64

	cc, cs, c1, cmu, damps float64
	chiN                   float64

	mean  []float64
	sigma float64

	c *mat.SymDense

	// b and d hold the eigendecomposition of c: columns of b are
	// eigenvectors, d the square roots of the eigenvalues. Recomputed
	// after every tell.
	b *mat.Dense
	d []float64

	pc, ps []float64

	gen int
	rng *rand.Rand
}

// newOptimizer builds an optimizer for dim dimensions. popSize <= 0 selects
// the standard default population 4 + floor(3 ln dim); sigma0 <= 0 selects
// 0.3 (of the unit cube edge).
func newOptimizer(dim, popSize int, sigma0 float64, seed int64) (*optimizer, error) {
	if dim < 1 {
		return nil, errors.New("cmaes: dimension must be >= 1")
	}

	n := float64(dim)

	lambda := popSize
	if lambda <= 0 {
		lambda = 4 + int(math.Floor(3*math.Log(n)))
	}

	if lambda < 2 {
		lambda = 2
	}

	muRank := lambda / 2

	// Log-rank recombination weights over the best muRank solutions.
	weights := make([]float64, muRank)

	var sum float64

	for i := range weights {
		weights[i] = math.Log(float64(muRank)+0.5) - math.Log(float64(i+1))
		sum += weights[i]
	}

	var sumSq float64

	for i := range weights {
		weights[i] /= sum
		sumSq += weights[i] * weights[i]
	}

	mueff := 1 / sumSq

	o := &optimizer{
		dim:     dim,
		lambda:  lambda,
		muRank:  muRank,
		weights: weights,
		mueff:   mueff,
		cc:      (4 + mueff/n) / (n + 4 + 2*mueff/n),
		cs:      (mueff + 2) / (n + mueff + 5),
		c1:      2 / ((n+1.3)*(n+1.3) + mueff),
		chiN:    math.Sqrt(n) * (1 - 1/(4*n) + 1/(21*n*n)),
		sigma:   sigma0,
		mean:    make([]float64, dim),
		pc:      make([]float64, dim),
		ps:      make([]float64, dim),
		c:       mat.NewSymDense(dim, nil),
		rng:     rand.New(rand.NewSource(seed)),
	}

	o.cmu = math.Min(1-o.c1, 2*(mueff-2+1/mueff)/((n+2)*(n+2)+mueff))
	o.damps = 1 + 2*math.Max(0, math.Sqrt((mueff-1)/(n+1))-1) + o.cs

	if o.sigma <= 0 {
		o.sigma = 0.3
	}

	for i := 0; i < dim; i++ {
		o.mean[i] = 0.5
		o.c.SetSym(i, i, 1)
	}

	if err := o.decompose(); err != nil {
		return nil, err
	}

	return o, nil
}

// populationSize returns lambda, the number of evaluations per generation.
func (o *optimizer) populationSize() int { return o.lambda }

// ask samples one candidate from the current search distribution, clipped
// to the unit cube.
func (o *optimizer) ask() []float64 {
	z := make([]float64, o.dim)
	for i := range z {
		z[i] = o.rng.NormFloat64()
	}

	// y = B * diag(d) * z
	for i := range z {
		z[i] *= o.d[i]
	}

	y := make([]float64, o.dim)

	for i := 0; i < o.dim; i++ {
		var sum float64

		for j := 0; j < o.dim; j++ {
			sum += o.b.At(i, j) * z[j]
		}

		y[i] = sum
	}

	x := make([]float64, o.dim)
	for i := range x {
		v := o.mean[i] + o.sigma*y[i]

		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}

		x[i] = v
	}

	return x
}

// tell updates the search distribution from one full generation of
// evaluated solutions. Lower values are better.
func (o *optimizer) tell(generation []solution) error {
	if len(generation) != o.lambda {
		return errors.New("cmaes: generation size mismatch")
	}

	sorted := make([]solution, len(generation))
	copy(sorted, generation)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].value < sorted[b].value })

	o.gen++

	oldMean := make([]float64, o.dim)
	copy(oldMean, o.mean)

	// Recombination: weighted mean of the best muRank solutions.
	for i := range o.mean {
		var sum float64

		for k := 0; k < o.muRank; k++ {
			sum += o.weights[k] * sorted[k].x[i]
		}

		o.mean[i] = sum
	}

	// Mean displacement in sigma units.
	delta := make([]float64, o.dim)
	for i := range delta {
		delta[i] = (o.mean[i] - oldMean[i]) / o.sigma
	}

	// Step-size path uses the whitened displacement C^{-1/2} * delta,
	// where C^{-1/2} = B * diag(1/d) * B^T.
	whitened := o.applyInvSqrt(delta)

	csFactor := math.Sqrt(o.cs * (2 - o.cs) * o.mueff)
	for i := range o.ps {
		o.ps[i] = (1-o.cs)*o.ps[i] + csFactor*whitened[i]
	}

	psNorm := norm(o.ps)

	expected := math.Sqrt(1 - math.Pow(1-o.cs, 2*float64(o.gen)))

	hsig := 0.0
	if psNorm/expected/o.chiN < 1.4+2/(float64(o.dim)+1) {
		hsig = 1.0
	}

	ccFactor := math.Sqrt(o.cc * (2 - o.cc) * o.mueff)
	for i := range o.pc {
		o.pc[i] = (1-o.cc)*o.pc[i] + hsig*ccFactor*delta[i]
	}

	// Covariance update: decay, rank-one term from pc, rank-mu term from
	// the best solutions' displacement.
	decay := 1 - o.c1 - o.cmu

	hsigCorrection := (1 - hsig) * o.cc * (2 - o.cc)

	for i := 0; i < o.dim; i++ {
		for j := i; j < o.dim; j++ {
			v := decay*o.c.At(i, j) +
				o.c1*(o.pc[i]*o.pc[j]+hsigCorrection*o.c.At(i, j))

			for k := 0; k < o.muRank; k++ {
				yi := (sorted[k].x[i] - oldMean[i]) / o.sigma
				yj := (sorted[k].x[j] - oldMean[j]) / o.sigma

				v += o.cmu * o.weights[k] * yi * yj
			}

			o.c.SetSym(i, j, v)
		}
	}

	o.sigma *= math.Exp((o.cs / o.damps) * (psNorm/o.chiN - 1))

	return o.decompose()
}

// decompose refreshes the eigendecomposition of the covariance matrix,
// flooring the spectrum so ask and applyInvSqrt stay well defined.
func (o *optimizer) decompose() error {
	var eig mat.EigenSym
	if ok := eig.Factorize(o.c, true); !ok {
		return errors.New("cmaes: covariance eigendecomposition failed")
	}

	values := eig.Values(nil)

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	o.d = make([]float64, o.dim)
	for i, v := range values {
		if v < minEigenvalue {
			v = minEigenvalue
		}

		o.d[i] = math.Sqrt(v)
	}

	o.b = &vectors

	return nil
}

// applyInvSqrt computes C^{-1/2} * v via the cached decomposition.
func (o *optimizer) applyInvSqrt(v []float64) []float64 {
	// t = B^T * v
	t := make([]float64, o.dim)

	for i := 0; i < o.dim; i++ {
		var sum float64

		for j := 0; j < o.dim; j++ {
			sum += o.b.At(j, i) * v[j]
		}

		t[i] = sum / o.d[i]
	}

	// out = B * t
	out := make([]float64, o.dim)

	for i := 0; i < o.dim; i++ {
		var sum float64

		for j := 0; j < o.dim; j++ {
			sum += o.b.At(i, j) * t[j]
		}

		out[i] = sum
	}

	return out
}

func norm(v []float64) float64 {
	var sum float64

	for _, x := range v {
		sum += x * x
	}

	return math.Sqrt(sum)
}
