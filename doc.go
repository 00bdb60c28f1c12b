// Package hypertune provides define-by-run hyperparameter optimization.
// An objective function receives a Trial, asks it for parameter values
// (floats, integers, categorical choices), and returns a score; a Study
// repeatedly executes the objective, records every trial in an append-only
// store, and tracks the best parameter assignment found so far.
//
// # Features
//
// The package includes the following key features:
//
//   - Define-by-run API: The search space is declared by the objective
//     itself through Trial.Suggest* calls, not by a separate schema
//   - Pluggable Samplers: Random search, exhaustive grid search, and
//     model-guided strategies (Tree-structured Parzen Estimator, CMA-ES,
//     Gaussian Process with acquisition functions) behind one contract
//   - Pluggable Storage: Thread-safe in-memory ledger by default, with a
//     PostgreSQL-backed implementation in the rdb subpackage
//   - Both Directions: Studies can minimize or maximize the objective
//   - Reproducible: Every sampler accepts an explicit seed; a fixed seed,
//     the same search space, and a deterministic objective reproduce the
//     same trial sequence
//   - Progress Monitoring: Real-time updates on optimization progress via
//     channels, plus optional structured logging
//   - Thread-safe Implementation: Storage and model state are guarded for
//     concurrent studies
//
// # Quick start
//
//	study, _ := hypertune.NewStudy("example",
//	    hypertune.WithDirection(hypertune.Minimize),
//	    hypertune.WithSampler(hypertune.NewRandomSampler(42)),
//	)
//
//	objective := func(t *hypertune.Trial) (float64, error) {
//	    x, err := t.SuggestFloat("x", -10, 10)
//	    if err != nil {
//	        return 0, err
//	    }
//	    y, err := t.SuggestInt("y", 0, 8)
//	    if err != nil {
//	        return 0, err
//	    }
//	    return x*x + float64(y), nil
//	}
//
//	if err := study.Optimize(context.Background(), objective, 100); err != nil {
//	    log.Fatal(err)
//	}
//
//	best, _ := study.BestTrial()
//	fmt.Println(best.Value, best.Params)
//
// # Samplers
//
// Four strategies ship with the module:
//
// 1. Random search (RandomSampler):
//
//   - Independent uniform or log-uniform draw per parameter
//
//   - Baseline strategy and the fallback for parameters a model-guided
//     sampler does not cover
//
// 2. Grid search (GridSampler):
//
//   - Full Cartesian enumeration of a discrete search space
//
//   - Visits each point at most once and reports ErrGridExhausted when
//     the product set is spent
//
// 3. Tree-structured Parzen Estimator (tpe.Sampler):
//
//   - Splits history into good and bad trials, fits a density to each,
//     and proposes the candidate maximizing their ratio
//
// 4. CMA-ES (cmaes.Sampler) and Gaussian Process (gp.Sampler):
//
//   - Joint proposals over the whole numeric space, adapting a covariance
//     matrix or a GP posterior to the observed scores
//
// # Error handling
//
// A trial whose objective returns an error is recorded with state
// TrialStateFail and the error is returned from Optimize; pass
// WithContinueOnFailure to record the failure and keep optimizing.
// Returning ErrTrialPruned marks the trial pruned without failing the
// study. Failed and pruned trials never participate in best-trial lookup.
package hypertune
