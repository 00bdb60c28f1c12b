package gp

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegressorEmptyPrediction(t *testing.T) {
	reg := newRegressor(1.0)

	mean, variance := reg.Predict([]float64{0.5, 0.5})

	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, variance)
}

func TestRegressorInterpolatesObservation(t *testing.T) {
	reg := newRegressor(1.0)

	reg.Update([]float64{0.5, 0.5}, 3.0)

	// At the observed point the kernel is 1: the mean reproduces the
	// observation and the variance collapses.
	mean, variance := reg.Predict([]float64{0.5, 0.5})

	assert.InDelta(t, 3.0, mean, 1e-12)
	assert.InDelta(t, 0.0, variance, 1e-12)
}

func TestRegressorUncertaintyGrowsWithDistance(t *testing.T) {
	reg := newRegressor(0.2)

	reg.Update([]float64{0.0}, 1.0)

	_, nearVar := reg.Predict([]float64{0.05})
	_, farVar := reg.Predict([]float64{0.9})

	assert.Less(t, nearVar, farVar)
}

func TestRegressorCopiesInput(t *testing.T) {
	reg := newRegressor(1.0)

	x := []float64{0.1, 0.2}
	reg.Update(x, 5.0)

	x[0] = 0.9

	mean, _ := reg.Predict([]float64{0.1, 0.2})
	assert.InDelta(t, 5.0, mean, 1e-9)
}

func TestRegressorConcurrentReadsAndWrites(t *testing.T) {
	reg := newRegressor(1.0)
	reg.Update([]float64{0.5}, 1.0)

	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)

		go func(g int) {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				reg.Predict([]float64{float64(i) / 100})
				reg.Update([]float64{float64(g*100+i) / 1000}, float64(i))
			}
		}(g)
	}

	wg.Wait()

	assert.Equal(t, 1+8*100, reg.Len())
}

func TestRegressorBest(t *testing.T) {
	reg := newRegressor(1.0)

	assert.Equal(t, math.MaxFloat64, reg.Best())

	reg.Update([]float64{0.1}, 4.0)
	reg.Update([]float64{0.2}, -2.0)
	reg.Update([]float64{0.3}, 7.0)

	assert.Equal(t, -2.0, reg.Best())
}

func TestUCB(t *testing.T) {
	params := AcquisitionParams{Beta: 2.0}

	// mean - beta * sqrt(variance)
	assert.InDelta(t, 0.5-2.0*0.4, UCB(0.5, 0.16, params), 1e-12)

	// Higher uncertainty makes a point more promising (lower score).
	assert.Less(t, UCB(0.5, 0.5, params), UCB(0.5, 0.1, params))
}

func TestProbabilityOfImprovement(t *testing.T) {
	params := AcquisitionParams{BestSoFar: 1.0, Xi: 0.0}

	// A predicted mean equal to the best so far has probability 0.5.
	assert.InDelta(t, 0.5, ProbabilityOfImprovement(1.0, 1.0, params), 1e-12)

	// A mean far below the best approaches 0, far above approaches 1.
	assert.Less(t, ProbabilityOfImprovement(-5.0, 0.1, params), 0.01)
	assert.Greater(t, ProbabilityOfImprovement(5.0, 0.1, params), 0.99)
}

func TestExpectedImprovementFinite(t *testing.T) {
	params := AcquisitionParams{BestSoFar: 1.0, Xi: 0.01}

	v := ExpectedImprovement(0.5, 0.2, params)

	assert.False(t, math.IsNaN(v))
	assert.False(t, math.IsInf(v, 0))
}

func TestThompsonSamplingUsesRandomState(t *testing.T) {
	a := AcquisitionParams{RandomState: rand.New(rand.NewSource(1))}
	b := AcquisitionParams{RandomState: rand.New(rand.NewSource(1))}

	require.Equal(t,
		ThompsonSampling(0.5, 0.2, a),
		ThompsonSampling(0.5, 0.2, b),
	)
}
