package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelAllen1966/hypertune"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hypertune.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
study: demo
params:
  - name: x
    type: float
    low: -5
    high: 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Study)
	assert.Equal(t, "minimize", cfg.Direction)
	assert.Equal(t, "random", cfg.Sampler)
	assert.Equal(t, 100, cfg.Trials)
	assert.Equal(t, "sphere", cfg.Objective)
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `direction: minimize`))
	assert.Error(t, err) // Missing study name.

	_, err = LoadConfig(writeConfig(t, `
study: demo
trials: 0
params:
  - name: x
    type: float
    low: 0
    high: 1
`))
	assert.Error(t, err) // Zero trial budget.

	_, err = LoadConfig(writeConfig(t, `study: demo`))
	assert.Error(t, err) // No parameters.
}

func TestLoadConfigObjectiveArity(t *testing.T) {
	// Himmelblau is strictly two-dimensional; a one-parameter space must be
	// rejected at load time, not crash the first trial.
	_, err := LoadConfig(writeConfig(t, `
study: demo
objective: himmelblau
params:
  - name: x
    type: float
    low: -5
    high: 5
`))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `
study: demo
objective: himmelblau
params:
  - name: x
    type: float
    low: -5
    high: 5
  - name: y
    type: float
    low: -5
    high: 5
`))
	assert.NoError(t, err)
}

func TestSearchSpaceConstruction(t *testing.T) {
	cfg := &Config{
		Study: "space",
		Params: []ParamConfig{
			{Name: "lr", Type: "logfloat", Low: 1e-5, High: 1e-1},
			{Name: "depth", Type: "int", Low: 1, High: 12},
			{Name: "criterion", Type: "categorical", Choices: []string{"gini", "entropy"}},
		},
	}

	space, err := cfg.searchSpace()
	require.NoError(t, err)
	require.Len(t, space, 3)

	assert.Equal(t, hypertune.LogUniform{Low: 1e-5, High: 1e-1}, space["lr"])
	assert.Equal(t, hypertune.IntUniform{Low: 1, High: 12}, space["depth"])
	assert.Equal(t, hypertune.Categorical{Choices: []string{"gini", "entropy"}}, space["criterion"])
}

func TestSearchSpaceRejectsDuplicatesAndUnknownTypes(t *testing.T) {
	cfg := &Config{
		Params: []ParamConfig{
			{Name: "x", Type: "float", Low: 0, High: 1},
			{Name: "x", Type: "float", Low: 0, High: 1},
		},
	}

	_, err := cfg.searchSpace()
	assert.Error(t, err)

	cfg = &Config{
		Params: []ParamConfig{
			{Name: "x", Type: "gaussian"},
		},
	}

	_, err = cfg.searchSpace()
	assert.Error(t, err)
}

func TestDirectionParsing(t *testing.T) {
	cfg := &Config{Direction: "maximize"}

	d, err := cfg.direction()
	require.NoError(t, err)
	assert.Equal(t, hypertune.Maximize, d)

	cfg.Direction = "sideways"

	_, err = cfg.direction()
	assert.Error(t, err)
}
