package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MichaelAllen1966/hypertune"
	"github.com/MichaelAllen1966/hypertune/bench"
)

// Config describes one study run.
type Config struct {
	// Study is the study name (durable when a storage DSN is set).
	Study string `yaml:"study"`

	// Direction is "minimize" (default) or "maximize".
	Direction string `yaml:"direction"`

	// Sampler is one of random, grid, tpe, cmaes, gp. Default random.
	Sampler string `yaml:"sampler"`

	// Seed makes the run reproducible. Default 0.
	Seed int64 `yaml:"seed"`

	// Trials is the evaluation budget. Default 100.
	Trials int `yaml:"trials"`

	// Objective names a built-in benchmark function. Default sphere.
	Objective string `yaml:"objective"`

	// Storage is an optional PostgreSQL DSN; empty keeps the study
	// in memory.
	Storage string `yaml:"storage"`

	// Params declares the search space, in objective argument order.
	Params []ParamConfig `yaml:"params"`
}

// ParamConfig declares one tunable parameter.
type ParamConfig struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"` // float, logfloat, int, categorical
	Low     float64  `yaml:"low"`
	High    float64  `yaml:"high"`
	Step    int      `yaml:"step"`
	Choices []string `yaml:"choices"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		Direction: "minimize",
		Sampler:   "random",
		Trials:    100,
		Objective: "sphere",
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Study == "" {
		return nil, fmt.Errorf("config: study name is required")
	}

	if len(cfg.Params) == 0 {
		return nil, fmt.Errorf("config: at least one parameter is required")
	}

	if cfg.Trials < 1 {
		return nil, fmt.Errorf("config: trials must be >= 1, got %d", cfg.Trials)
	}

	if d := bench.Dimensions(cfg.Objective); d != 0 && len(cfg.Params) != d {
		return nil, fmt.Errorf("config: objective %q takes exactly %d parameters, got %d",
			cfg.Objective, d, len(cfg.Params))
	}

	return cfg, nil
}

// direction maps the config string onto a hypertune.Direction.
func (c *Config) direction() (hypertune.Direction, error) {
	switch c.Direction {
	case "", "minimize":
		return hypertune.Minimize, nil
	case "maximize":
		return hypertune.Maximize, nil
	default:
		return 0, fmt.Errorf("config: unknown direction %q", c.Direction)
	}
}

// searchSpace builds the declared search space.
func (c *Config) searchSpace() (hypertune.SearchSpace, error) {
	space := make(hypertune.SearchSpace, len(c.Params))

	for _, p := range c.Params {
		d, err := p.distribution()
		if err != nil {
			return nil, err
		}

		if _, dup := space[p.Name]; dup {
			return nil, fmt.Errorf("config: duplicate parameter %q", p.Name)
		}

		space[p.Name] = d
	}

	return space, nil
}

func (p ParamConfig) distribution() (hypertune.Distribution, error) {
	switch p.Type {
	case "float":
		return hypertune.Uniform{Low: p.Low, High: p.High}, nil
	case "logfloat":
		return hypertune.LogUniform{Low: p.Low, High: p.High}, nil
	case "int":
		return hypertune.IntUniform{Low: int(p.Low), High: int(p.High), Step: p.Step}, nil
	case "categorical":
		return hypertune.Categorical{Choices: p.Choices}, nil
	default:
		return nil, fmt.Errorf("config: parameter %q: unknown type %q", p.Name, p.Type)
	}
}

// objective wraps a benchmark function as a study objective over the
// declared parameters, in declaration order.
func (c *Config) objective(f bench.Func) hypertune.ObjectiveFunc {
	return func(t *hypertune.Trial) (float64, error) {
		x := make([]float64, 0, len(c.Params))

		for _, p := range c.Params {
			switch p.Type {
			case "float":
				v, err := t.SuggestFloat(p.Name, p.Low, p.High)
				if err != nil {
					return 0, err
				}

				x = append(x, v)

			case "logfloat":
				v, err := t.SuggestLogFloat(p.Name, p.Low, p.High)
				if err != nil {
					return 0, err
				}

				x = append(x, v)

			case "int":
				step := p.Step
				if step <= 0 {
					step = 1
				}

				v, err := t.SuggestSteppedInt(p.Name, int(p.Low), int(p.High), step)
				if err != nil {
					return 0, err
				}

				x = append(x, float64(v))

			case "categorical":
				// Benchmark functions take float vectors; a categorical
				// choice contributes its index.
				v, err := t.SuggestCategorical(p.Name, p.Choices)
				if err != nil {
					return 0, err
				}

				for i, c := range p.Choices {
					if c == v {
						x = append(x, float64(i))

						break
					}
				}

			default:
				return 0, fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
			}
		}

		return f(x), nil
	}
}
