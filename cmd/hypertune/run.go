package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/MichaelAllen1966/hypertune"
	"github.com/MichaelAllen1966/hypertune/bench"
	"github.com/MichaelAllen1966/hypertune/cmaes"
	"github.com/MichaelAllen1966/hypertune/gp"
	"github.com/MichaelAllen1966/hypertune/rdb"
	"github.com/MichaelAllen1966/hypertune/tpe"
)

var (
	runConfigPath string
	runVerbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a study described by a YAML config",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := LoadConfig(runConfigPath)
		if err != nil {
			return err
		}

		logger := zap.NewNop()

		if runVerbose {
			logger, err = zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()
		}

		study, cleanup, err := buildStudy(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		f, err := bench.ByName(cfg.Objective)
		if err != nil {
			return err
		}

		if err := study.Optimize(cmd.Context(), cfg.objective(f), cfg.Trials); err != nil {
			return err
		}

		return printBest(cmd, study)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "hypertune.yaml", "path to the study config")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "log every trial")

	rootCmd.AddCommand(runCmd)
}

// buildStudy assembles storage, sampler, and study from the config. The
// returned cleanup closes the storage when it owns a connection.
func buildStudy(cfg *Config, logger *zap.Logger) (*hypertune.Study, func(), error) {
	cleanup := func() {}

	direction, err := cfg.direction()
	if err != nil {
		return nil, nil, err
	}

	space, err := cfg.searchSpace()
	if err != nil {
		return nil, nil, err
	}

	opts := []hypertune.StudyOption{
		hypertune.WithDirection(direction),
		hypertune.WithLogger(logger),
	}

	if cfg.Storage != "" {
		store, err := rdb.Open(cfg.Storage)
		if err != nil {
			return nil, nil, err
		}

		cleanup = func() { store.Close() }

		opts = append(opts, hypertune.WithStorage(store))
	}

	switch cfg.Sampler {
	case "", "random":
		opts = append(opts, hypertune.WithSampler(hypertune.NewRandomSampler(cfg.Seed)))

	case "grid":
		sampler, err := hypertune.NewGridSampler(space)
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, hypertune.WithRelativeSampler(sampler, space))

	case "tpe":
		opts = append(opts, hypertune.WithSampler(tpe.New(tpe.WithSeed(uint64(cfg.Seed)))))

	case "cmaes":
		opts = append(opts,
			hypertune.WithRelativeSampler(cmaes.New(cmaes.WithSeed(cfg.Seed)), space),
			hypertune.WithSampler(hypertune.NewRandomSampler(cfg.Seed)),
		)

	case "gp":
		opts = append(opts,
			hypertune.WithRelativeSampler(gp.New(gp.WithSeed(cfg.Seed)), space),
			hypertune.WithSampler(hypertune.NewRandomSampler(cfg.Seed)),
		)

	default:
		return nil, nil, fmt.Errorf("config: unknown sampler %q", cfg.Sampler)
	}

	study, err := hypertune.NewStudy(cfg.Study, opts...)
	if err != nil {
		cleanup()

		return nil, nil, err
	}

	return study, cleanup, nil
}

// printBest reports the study outcome: best score then the best parameter
// mapping, one parameter per line.
func printBest(cmd *cobra.Command, study *hypertune.Study) error {
	best, err := study.BestTrial()
	if err != nil {
		return err
	}

	cmd.Printf("best trial: %d\n", best.ID)
	cmd.Printf("best value: %g\n", best.Value)

	names := maps.Keys(best.Params)
	sort.Strings(names)

	for _, name := range names {
		cmd.Printf("  %s = %v\n", name, best.Params[name])
	}

	return nil
}
