package tpe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/exp/rand"

	"github.com/MichaelAllen1966/hypertune"
)

func TestDefaultGamma(t *testing.T) {
	assert.Equal(t, 1, DefaultGamma(1))
	assert.Equal(t, 1, DefaultGamma(10))
	assert.Equal(t, 5, DefaultGamma(50))
	assert.Equal(t, 25, DefaultGamma(1000))
}

func TestSplitKeepsBestObservations(t *testing.T) {
	s := New()

	obs := []float64{10, 20, 30, 40}
	values := []float64{3, 1, 4, 2} // Best two are obs[1] and obs[3].

	below, above := s.split(obs, values, 2)

	assert.Equal(t, []float64{20, 40}, below)
	assert.Equal(t, []float64{10, 30}, above)
}

func TestCategoryWeightsSmoothedAndNormalized(t *testing.T) {
	w := categoryWeights([]float64{0, 0, 2}, 3)

	var sum float64
	for _, v := range w {
		sum += v
	}

	assert.InDelta(t, 1.0, sum, 1e-12)

	// Unseen categories keep nonzero mass.
	assert.Greater(t, w[1], 0.0)

	// Seen categories carry more.
	assert.Greater(t, w[0], w[1])
}

func TestWeightedChoiceCoversSupport(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	weights := []float64{0.5, 0.3, 0.2}

	seen := make(map[int]bool)

	for i := 0; i < 200; i++ {
		c := weightedChoice(rnd, weights)
		require.GreaterOrEqual(t, c, 0)
		require.Less(t, c, 3)
		seen[c] = true
	}

	assert.Len(t, seen, 3)
}

func TestParzenStaysNormalizedInsideDomain(t *testing.T) {
	p := newParzen([]float64{0.2, 0.8}, 0, 1)

	// Density is strictly positive across the whole domain thanks to the
	// prior component.
	for _, x := range []float64{0, 0.25, 0.5, 0.75, 1} {
		assert.Greater(t, p.pdf(x), 0.0)
	}

	src := rand.NewSource(2)
	rnd := rand.New(src)

	for i := 0; i < 200; i++ {
		x := p.sample(rnd, src)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, 1.0)
	}
}

func quadraticObjective(t *hypertune.Trial) (float64, error) {
	x, err := t.SuggestFloat("x", -10, 10)
	if err != nil {
		return 0, err
	}

	return (x - 2) * (x - 2), nil
}

func TestSamplerStaysInBounds(t *testing.T) {
	study, err := hypertune.NewStudy("tpe-bounds",
		hypertune.WithSampler(New(WithSeed(1))),
	)
	require.NoError(t, err)

	objective := func(trial *hypertune.Trial) (float64, error) {
		x, err := trial.SuggestLogFloat("lr", 1e-5, 1e-1)
		if err != nil {
			return 0, err
		}

		n, err := trial.SuggestInt("n", 1, 100)
		if err != nil {
			return 0, err
		}

		c, err := trial.SuggestCategorical("c", []string{"a", "b", "c"})
		if err != nil {
			return 0, err
		}

		assert.GreaterOrEqual(t, x, 1e-5)
		assert.LessOrEqual(t, x, 1e-1)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 100)
		assert.Contains(t, []string{"a", "b", "c"}, c)

		return x * float64(n), nil
	}

	require.NoError(t, study.Optimize(context.Background(), objective, 50))
}

func TestSamplerImprovesOnQuadratic(t *testing.T) {
	study, err := hypertune.NewStudy("tpe-quadratic",
		hypertune.WithSampler(New(WithSeed(42))),
	)
	require.NoError(t, err)

	require.NoError(t, study.Optimize(context.Background(), quadraticObjective, 80))

	best, err := study.BestValue()
	require.NoError(t, err)

	// Even blind uniform sampling lands within 2 of the optimum with
	// near certainty over 80 trials; the estimator should do no worse.
	assert.Less(t, best, 4.0)
}

func TestSamplerDeterministic(t *testing.T) {
	run := func() ([]hypertune.FrozenTrial, error) {
		study, err := hypertune.NewStudy("tpe-seeded",
			hypertune.WithSampler(New(WithSeed(7))),
		)
		if err != nil {
			return nil, err
		}

		if err := study.Optimize(context.Background(), quadraticObjective, 40); err != nil {
			return nil, err
		}

		return study.Trials()
	}

	trialsA, err := run()
	require.NoError(t, err)

	trialsB, err := run()
	require.NoError(t, err)

	require.Len(t, trialsB, len(trialsA))

	for i := range trialsA {
		assert.Equal(t, trialsA[i].Value, trialsB[i].Value)
	}
}

func TestSamplerMaximizeDirection(t *testing.T) {
	study, err := hypertune.NewStudy("tpe-maximize",
		hypertune.WithDirection(hypertune.Maximize),
		hypertune.WithSampler(New(WithSeed(3))),
	)
	require.NoError(t, err)

	// Maximum 100 at the domain edges.
	objective := func(trial *hypertune.Trial) (float64, error) {
		x, err := trial.SuggestFloat("x", -10, 10)
		if err != nil {
			return 0, err
		}

		return x * x, nil
	}

	require.NoError(t, study.Optimize(context.Background(), objective, 60))

	best, err := study.BestValue()
	require.NoError(t, err)

	assert.Greater(t, best, 25.0)
}
