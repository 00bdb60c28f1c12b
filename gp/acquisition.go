package gp

import (
	"math"
	"math/rand"
)

//////
// Acquisition functions.
// Each function scores how promising a candidate point is, balancing
// exploration (trying uncertain areas) and exploitation (focusing on known
// good areas). Lower scores are more promising: the sampler minimizes the
// surrogate model, flipping signs for maximize studies.
//////

// AcquisitionParams holds the knobs shared by the built-in acquisition
// functions.
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off in UCB.
	// Higher values (3.0-5.0) explore uncertain areas more, lower values
	// (0.1-0.5) exploit known good areas. 2.0 is a solid default.
	Beta float64

	// Xi is the minimum-improvement margin used by PI and EI.
	// Typical values range from 0.01 to 0.1; higher explores more.
	Xi float64

	// BestSoFar is the lowest observed value. Maintained by the sampler;
	// custom acquisition functions can rely on it being current.
	BestSoFar float64

	// RandomState is the generator used by Thompson sampling. Must be
	// non-nil when ThompsonSampling is the active acquisition function.
	RandomState *rand.Rand
}

// Acquisition scores a candidate from the surrogate model's predicted mean
// and variance at that point. Lower return values indicate more promising
// candidates.
type Acquisition func(mean, variance float64, params AcquisitionParams) float64

// UCB is the (lower-)confidence-bound acquisition: the predicted mean minus
// Beta standard deviations. A robust general-purpose default.
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(variance)
}

// ProbabilityOfImprovement scores the probability that a point improves on
// the best value seen so far by at least Xi. Conservative: prefers small,
// reliable improvements.
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	z := (mean - params.BestSoFar - params.Xi) / math.Sqrt(variance)

	return normalCDF(z)
}

// ExpectedImprovement weighs both the probability and the magnitude of an
// improvement over the best value seen so far. The most common choice in
// practice.
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(variance)

	z := (mean - params.BestSoFar - params.Xi) / sigma

	return (mean-params.BestSoFar-params.Xi)*normalCDF(z) + sigma*normalPDF(z)
}

// ThompsonSampling draws a random sample from the posterior at the point.
// No tuning knobs; the randomness itself balances exploration and
// exploitation.
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(variance)*params.RandomState.NormFloat64()
}

// normalCDF is the cumulative distribution function of the standard normal
// distribution, used by PI and EI.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normalPDF is the probability density function of the standard normal
// distribution, used by EI.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}
