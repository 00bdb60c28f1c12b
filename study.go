package hypertune

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

//////
// Study: the optimization run.
//////

// ErrNoCompletedTrials is returned by best-trial lookup before any trial
// has completed.
var ErrNoCompletedTrials = errors.New("no completed trials")

// Direction declares whether lower or higher objective values are better.
type Direction int

const (
	// Minimize treats lower objective values as better.
	Minimize Direction = iota

	// Maximize treats higher objective values as better.
	Maximize
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}

	return "minimize"
}

// ObjectiveFunc maps one trial's parameter assignment to a scalar score.
// Implementations call the trial's Suggest methods to obtain parameter
// values and return the score to optimize, or an error to fail the trial
// (ErrTrialPruned to prune it instead).
type ObjectiveFunc func(t *Trial) (float64, error)

// ProgressUpdate represents the state of the optimization after one trial.
type ProgressUpdate struct {
	// TrialID is the number of the trial that just finished.
	TrialID int

	// State is the terminal state the trial reached.
	State TrialState

	// Value is the trial's score (zero for failed and pruned trials).
	Value float64

	// BestValue is the best score over completed trials so far.
	BestValue float64

	// BestParams holds the parameters that produced BestValue.
	BestParams map[string]any

	// Elapsed is the wall-clock duration of the objective call.
	Elapsed time.Duration
}

// Study is the full record of one optimization run: its configuration plus
// an append-only sequence of trials. Construct with NewStudy, drive with
// Optimize, inspect with BestTrial and Trials.
type Study struct {
	id        string
	name      string
	direction Direction

	storage         Storage
	sampler         Sampler
	relativeSampler RelativeSampler
	space           SearchSpace

	logger            *zap.Logger
	progress          chan<- ProgressUpdate
	continueOnFailure bool
}

// StudyOption customizes a study at construction time.
type StudyOption func(*Study)

// WithDirection sets the optimization direction. Default Minimize.
func WithDirection(d Direction) StudyOption {
	return func(s *Study) { s.direction = d }
}

// WithSampler sets the independent per-parameter sampler. Default is a
// RandomSampler seeded from the wall clock.
func WithSampler(sampler Sampler) StudyOption {
	return func(s *Study) { s.sampler = sampler }
}

// WithRelativeSampler installs a joint sampler over the given search space.
// Before each trial the study asks it for a full assignment; parameters it
// leaves out (or suggested outside space) fall back to the independent
// sampler.
func WithRelativeSampler(sampler RelativeSampler, space SearchSpace) StudyOption {
	return func(s *Study) {
		s.relativeSampler = sampler
		s.space = space
	}
}

// WithStorage sets the trial ledger. Default is a fresh InMemoryStorage.
func WithStorage(storage Storage) StudyOption {
	return func(s *Study) { s.storage = storage }
}

// WithLogger sets a structured logger for per-trial events. Default is a
// no-op logger.
func WithLogger(logger *zap.Logger) StudyOption {
	return func(s *Study) { s.logger = logger }
}

// WithProgressChan sets a channel receiving one ProgressUpdate per finished
// trial. Sends are non-blocking: if the channel is full the update is
// dropped, never stalling the optimize loop.
func WithProgressChan(ch chan<- ProgressUpdate) StudyOption {
	return func(s *Study) { s.progress = ch }
}

// WithContinueOnFailure makes Optimize record a failing trial and keep
// going instead of returning the objective's error.
func WithContinueOnFailure() StudyOption {
	return func(s *Study) { s.continueOnFailure = true }
}

// NewStudy creates a study and registers it with its storage.
func NewStudy(name string, opts ...StudyOption) (*Study, error) {
	s := &Study{
		name:      name,
		direction: Minimize,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.storage == nil {
		s.storage = NewInMemoryStorage()
	}

	if s.sampler == nil {
		s.sampler = NewRandomSampler(time.Now().UnixNano())
	}

	for name, d := range s.space {
		if err := validateDistribution(name, d); err != nil {
			return nil, err
		}
	}

	id, err := s.storage.CreateStudy(name, s.direction)
	if err != nil {
		return nil, fmt.Errorf("create study %q: %w", name, err)
	}

	s.id = id

	return s, nil
}

// Name returns the study name.
func (s *Study) Name() string { return s.name }

// ID returns the storage ID of the study.
func (s *Study) ID() string { return s.id }

// Direction returns the optimization direction.
func (s *Study) Direction() Direction { return s.direction }

// Storage returns the study's trial ledger.
func (s *Study) Storage() Storage { return s.storage }

// Optimize runs the objective for up to trials new trials, appending each
// outcome to the ledger.
//
// Stop conditions:
//   - the trial budget is spent (returns nil)
//   - ctx is canceled (returns ctx.Err())
//   - a grid sampler exhausts its Cartesian product (returns nil; every
//     point has been visited exactly once)
//   - the objective returns an error other than ErrTrialPruned and the
//     study was not built WithContinueOnFailure (returns that error, with
//     the trial recorded as failed)
//
// Optimize may be called repeatedly on the same study; later calls resume
// with the accumulated history.
func (s *Study) Optimize(ctx context.Context, objective ObjectiveFunc, trials int) error {
	for i := 0; i < trials; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.runTrial(objective)

		switch {
		case err == nil:

		case errors.Is(err, ErrGridExhausted):
			s.logger.Info("grid exhausted", zap.String("study", s.name))

			return nil

		case s.continueOnFailure:
			s.logger.Warn("trial failed", zap.String("study", s.name), zap.Error(err))

		default:
			return err
		}
	}

	return nil
}

// runTrial executes one trial end to end: obtain a joint proposal if a
// relative sampler is installed, create the record, evaluate the objective,
// and promote the record to its terminal state.
func (s *Study) runTrial(objective ObjectiveFunc) error {
	var rel map[string]float64

	// The proposal comes before the record: a sampler with nothing left to
	// propose (an exhausted grid) must not grow the ledger. Failed trials
	// are objective outcomes only.
	if s.relativeSampler != nil {
		var err error

		rel, err = s.relativeSampler.SampleRelative(s, FrozenTrial{State: TrialStateRunning}, s.space)
		if err != nil {
			return err
		}
	}

	trialID, err := s.storage.CreateTrial(s.id)
	if err != nil {
		return fmt.Errorf("create trial: %w", err)
	}

	trial := &Trial{study: s, id: trialID, relativeParams: rel}

	start := time.Now()
	value, err := objective(trial)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrTrialPruned):
		if serr := s.storage.SetTrialState(s.id, trialID, TrialStatePruned); serr != nil {
			return serr
		}

		s.logger.Debug("trial pruned",
			zap.String("study", s.name),
			zap.Int("trial", trialID),
		)

		s.sendProgress(trialID, TrialStatePruned, 0, elapsed)

		return nil

	case err != nil:
		if serr := s.storage.SetTrialState(s.id, trialID, TrialStateFail); serr != nil {
			return serr
		}

		s.sendProgress(trialID, TrialStateFail, 0, elapsed)

		return fmt.Errorf("trial %d: %w", trialID, err)
	}

	if err := s.storage.SetTrialValue(s.id, trialID, value); err != nil {
		return err
	}

	if err := s.storage.SetTrialState(s.id, trialID, TrialStateComplete); err != nil {
		return err
	}

	s.logger.Debug("trial complete",
		zap.String("study", s.name),
		zap.Int("trial", trialID),
		zap.Float64("value", value),
		zap.Duration("elapsed", elapsed),
	)

	s.sendProgress(trialID, TrialStateComplete, value, elapsed)

	return nil
}

// sendProgress publishes a non-blocking progress update. Updates are
// dropped when the channel is full.
func (s *Study) sendProgress(trialID int, state TrialState, value float64, elapsed time.Duration) {
	if s.progress == nil {
		return
	}

	update := ProgressUpdate{
		TrialID: trialID,
		State:   state,
		Value:   value,
		Elapsed: elapsed,
	}

	if best, err := s.BestTrial(); err == nil {
		update.BestValue = best.Value
		update.BestParams = best.Params
	}

	select {
	case s.progress <- update:
	default:
		// Skip update if channel is full.
	}
}

// BestTrial returns the completed trial whose value is the extremum under
// the study direction. Failed and pruned trials are ignored.
func (s *Study) BestTrial() (FrozenTrial, error) {
	trials, err := s.storage.Trials(s.id)
	if err != nil {
		return FrozenTrial{}, err
	}

	var (
		best  FrozenTrial
		found bool
	)

	for _, t := range trials {
		if t.State != TrialStateComplete {
			continue
		}

		if !found || s.better(t.Value, best.Value) {
			best = t
			found = true
		}
	}

	if !found {
		return FrozenTrial{}, ErrNoCompletedTrials
	}

	return best, nil
}

// BestValue returns the best completed score.
func (s *Study) BestValue() (float64, error) {
	best, err := s.BestTrial()
	if err != nil {
		return 0, err
	}

	return best.Value, nil
}

// BestParams returns the parameter assignment of the best completed trial.
func (s *Study) BestParams() (map[string]any, error) {
	best, err := s.BestTrial()
	if err != nil {
		return nil, err
	}

	return best.Params, nil
}

// Trials returns the full trial ledger in creation order.
func (s *Study) Trials() ([]FrozenTrial, error) {
	return s.storage.Trials(s.id)
}

// better reports whether a beats b under the study direction.
func (s *Study) better(a, b float64) bool {
	if s.direction == Maximize {
		return a > b
	}

	return a < b
}
