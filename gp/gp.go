// Package gp implements a Bayesian relative sampler: a Gaussian Process
// regressor over the normalized numeric search space, combined with an
// acquisition function that picks the most promising candidate out of a
// random batch. It is the classic surrogate-model strategy and works best
// on smooth, low-dimensional objectives.
package gp

import (
	"math"
	"sync"
)

// regressor is a thread-safe Gaussian Process model for regression with
// multidimensional inputs. It predicts the objective score of untested
// parameter combinations from previously observed trials.
//
// Inputs are expected to be normalized to [0, 1] per dimension; the default
// kernel width is tuned for that scale.
type regressor struct {
	// mu protects access to all fields.
	mu sync.RWMutex

	// x stores the observed input points, one normalized parameter vector
	// per trial. Inner slice lengths must be consistent.
	x [][]float64

	// y stores the observed objective values at each point in x.
	y []float64

	// sigma is the RBF kernel width. Larger values give smoother
	// interpolation, smaller values more local influence.
	sigma float64
}

// newRegressor returns an empty model with kernel width suitable for
// normalized inputs.
func newRegressor(sigma float64) *regressor {
	if sigma <= 0 {
		sigma = 1.0
	}

	return &regressor{sigma: sigma}
}

// rbfKernel measures the similarity of two points with the Radial Basis
// Function kernel:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// Identical points score 1.0; distant points approach 0.0. Panics if the
// vectors have different lengths.
func rbfKernel(x1, x2 []float64, sigma float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * sigma * sigma))
}

// Predict estimates the objective value and uncertainty at a point. The
// mean is a kernel-weighted average of observed values; the variance
// shrinks near observed points and approaches 1 far from them. With no
// observations it returns (0, 1).
func (r *regressor) Predict(x []float64) (mean, variance float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.x) == 0 {
		return 0, 1
	}

	k := make([]float64, len(r.x))
	for i := range r.x {
		k[i] = rbfKernel(x, r.x[i], r.sigma)
	}

	var sum float64

	for i := range r.x {
		sum += k[i] * r.y[i]
	}

	mean = sum / float64(len(r.x))

	variance = 1.0

	for i := range r.x {
		for j := range r.x {
			variance -= k[i] * k[j] / float64(len(r.x))
		}
	}

	return mean, variance
}

// Update adds one observation. The input slice is copied, so callers may
// reuse it.
func (r *regressor) Update(x []float64, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	newX := make([]float64, len(x))
	copy(newX, x)

	r.x = append(r.x, newX)
	r.y = append(r.y, y)
}

// Len returns the number of observations.
func (r *regressor) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.x)
}

// Best returns the lowest observed value, or +Inf without observations.
func (r *regressor) Best() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := math.MaxFloat64

	for _, v := range r.y {
		if v < best {
			best = v
		}
	}

	return best
}
