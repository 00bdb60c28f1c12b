package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelAllen1966/hypertune"
)

func TestKnownOptima(t *testing.T) {
	assert.Equal(t, 0.0, Sphere([]float64{0, 0, 0}))
	assert.Equal(t, 5.0, Sphere([]float64{1, 2}))

	assert.InDelta(t, 0.0, Rastrigin([]float64{0, 0}), 1e-9)

	assert.Equal(t, 0.0, Rosenbrock([]float64{1, 1, 1}))

	assert.InDelta(t, 0.0, Himmelblau([]float64{3, 2}), 1e-9)
}

func TestHimmelblauRequiresTwoDimensions(t *testing.T) {
	assert.Panics(t, func() { Himmelblau([]float64{1}) })
}

func TestByName(t *testing.T) {
	for _, name := range []string{"sphere", "rastrigin", "rosenbrock", "himmelblau"} {
		f, err := ByName(name)
		require.NoError(t, err)
		require.NotNil(t, f)
	}

	_, err := ByName("ackley")
	assert.Error(t, err)
}

func TestDimensions(t *testing.T) {
	assert.Equal(t, 2, Dimensions("himmelblau"))
	assert.Equal(t, 0, Dimensions("sphere"))
	assert.Equal(t, 0, Dimensions("rastrigin"))
}

func TestObjectiveWiresTrialParams(t *testing.T) {
	study, err := hypertune.NewStudy("bench",
		hypertune.WithSampler(hypertune.NewRandomSampler(1)),
	)
	require.NoError(t, err)

	objective := Objective(Sphere, 3, -2, 2)

	require.NoError(t, study.Optimize(context.Background(), objective, 20))

	best, err := study.BestTrial()
	require.NoError(t, err)

	require.Len(t, best.Params, 3)

	for _, name := range []string{"x0", "x1", "x2"} {
		v := best.Params[name].(float64)
		assert.GreaterOrEqual(t, v, -2.0)
		assert.LessOrEqual(t, v, 2.0)
	}
}
