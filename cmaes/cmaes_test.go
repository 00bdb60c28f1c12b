package cmaes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelAllen1966/hypertune"
)

func TestOptimizerDefaults(t *testing.T) {
	o, err := newOptimizer(2, 0, 0, 1)
	require.NoError(t, err)

	// 4 + floor(3 ln 2) = 6.
	assert.Equal(t, 6, o.populationSize())
	assert.Equal(t, 0.3, o.sigma)
	assert.Equal(t, []float64{0.5, 0.5}, o.mean)
}

func TestOptimizerRejectsBadInput(t *testing.T) {
	_, err := newOptimizer(0, 0, 0, 1)
	require.Error(t, err)

	o, err := newOptimizer(2, 4, 0.3, 1)
	require.NoError(t, err)

	err = o.tell([]solution{{x: []float64{0.5, 0.5}, value: 1}})
	assert.Error(t, err)
}

func TestOptimizerAskStaysInUnitCube(t *testing.T) {
	o, err := newOptimizer(3, 0, 0, 2)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		x := o.ask()
		require.Len(t, x, 3)

		for _, v := range x {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestOptimizerAdaptsTowardsBetterRegion(t *testing.T) {
	o, err := newOptimizer(2, 8, 0.3, 3)
	require.NoError(t, err)

	// Reward points near (0.9, 0.1): after a few generations the
	// distribution mean should migrate towards that corner.
	objective := func(x []float64) float64 {
		dx := x[0] - 0.9
		dy := x[1] - 0.1

		return dx*dx + dy*dy
	}

	for gen := 0; gen < 20; gen++ {
		generation := make([]solution, o.populationSize())

		for i := range generation {
			x := o.ask()
			generation[i] = solution{x: x, value: objective(x)}
		}

		require.NoError(t, o.tell(generation))
	}

	assert.Greater(t, o.mean[0], 0.7)
	assert.Less(t, o.mean[1], 0.3)
}

func sphereObjective(t *hypertune.Trial) (float64, error) {
	x, err := t.SuggestFloat("x", -5, 5)
	if err != nil {
		return 0, err
	}

	y, err := t.SuggestFloat("y", -5, 5)
	if err != nil {
		return 0, err
	}

	return x*x + y*y, nil
}

func sphereSpace() hypertune.SearchSpace {
	return hypertune.SearchSpace{
		"x": hypertune.Uniform{Low: -5, High: 5},
		"y": hypertune.Uniform{Low: -5, High: 5},
	}
}

func TestSamplerProposesInsideDomain(t *testing.T) {
	study, err := hypertune.NewStudy("cmaes-bounds",
		hypertune.WithRelativeSampler(New(WithSeed(1)), sphereSpace()),
		hypertune.WithSampler(hypertune.NewRandomSampler(1)),
	)
	require.NoError(t, err)

	require.NoError(t, study.Optimize(context.Background(), sphereObjective, 60))

	trials, err := study.Trials()
	require.NoError(t, err)
	require.Len(t, trials, 60)

	for _, trial := range trials {
		require.Equal(t, hypertune.TrialStateComplete, trial.State)

		x := trial.Params["x"].(float64)
		y := trial.Params["y"].(float64)

		assert.GreaterOrEqual(t, x, -5.0)
		assert.LessOrEqual(t, x, 5.0)
		assert.GreaterOrEqual(t, y, -5.0)
		assert.LessOrEqual(t, y, 5.0)
	}
}

func TestSamplerFindsReasonableOptimum(t *testing.T) {
	study, err := hypertune.NewStudy("cmaes-sphere",
		hypertune.WithRelativeSampler(New(WithSeed(5)), sphereSpace()),
		hypertune.WithSampler(hypertune.NewRandomSampler(5)),
	)
	require.NoError(t, err)

	require.NoError(t, study.Optimize(context.Background(), sphereObjective, 120))

	best, err := study.BestValue()
	require.NoError(t, err)

	// Worst case on the domain is 50; any sampler that is not actively
	// avoiding the origin lands well below 10 in 120 trials.
	assert.Less(t, best, 10.0)
}

func TestSamplerDeterministic(t *testing.T) {
	run := func() float64 {
		study, err := hypertune.NewStudy("cmaes-seeded",
			hypertune.WithRelativeSampler(New(WithSeed(9)), sphereSpace()),
			hypertune.WithSampler(hypertune.NewRandomSampler(9)),
		)
		require.NoError(t, err)

		require.NoError(t, study.Optimize(context.Background(), sphereObjective, 50))

		best, err := study.BestValue()
		require.NoError(t, err)

		return best
	}

	assert.Equal(t, run(), run())
}

func TestSamplerSkipsCategoricalParams(t *testing.T) {
	space := hypertune.SearchSpace{
		"x": hypertune.Uniform{Low: 0, High: 1},
		"c": hypertune.Categorical{Choices: []string{"a", "b"}},
	}

	sampler := New(WithSeed(1))

	study, err := hypertune.NewStudy("cmaes-mixed",
		hypertune.WithRelativeSampler(sampler, space),
		hypertune.WithSampler(hypertune.NewRandomSampler(1)),
	)
	require.NoError(t, err)

	objective := func(trial *hypertune.Trial) (float64, error) {
		x, err := trial.SuggestFloat("x", 0, 1)
		if err != nil {
			return 0, err
		}

		c, err := trial.SuggestCategorical("c", []string{"a", "b"})
		if err != nil {
			return 0, err
		}

		if c == "a" {
			return x, nil
		}

		return 1 - x, nil
	}

	require.NoError(t, study.Optimize(context.Background(), objective, 30))

	trials, err := study.Trials()
	require.NoError(t, err)

	for _, trial := range trials {
		// The categorical parameter came from the fallback sampler, the
		// numeric one from CMA-ES; both must be recorded.
		assert.Contains(t, trial.Params, "x")
		assert.Contains(t, trial.Params, "c")
	}
}
