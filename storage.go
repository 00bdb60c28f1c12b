package hypertune

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

//////
// Trial storage.
//////

// ErrStudyNotFound is returned when a study ID is unknown to the storage.
var ErrStudyNotFound = errors.New("study not found")

// ErrTrialNotFound is returned when a trial ID is unknown to the storage.
var ErrTrialNotFound = errors.New("trial not found")

// Storage is the append-only trial ledger behind a study. Trials are only
// ever created and promoted to a terminal state; nothing is deleted or
// rewritten, which is what makes the best-trial invariant checkable from
// history alone.
//
// Implementations must be safe for concurrent use: several studies may
// share one storage, and a study's progress consumers may read while the
// optimize loop writes.
type Storage interface {
	// CreateStudy registers a study and returns its storage ID. An
	// implementation backed by a durable store may return the ID of an
	// existing study with the same name instead of creating a new one.
	CreateStudy(name string, direction Direction) (string, error)

	// CreateTrial appends a new trial in state TrialStateRunning and
	// returns its number.
	CreateTrial(studyID string) (int, error)

	// SetTrialParam records one sampled parameter of a running trial.
	SetTrialParam(studyID string, trialID int, name string, ir float64, d Distribution) error

	// SetTrialValue records the objective score of a running trial.
	SetTrialValue(studyID string, trialID int, value float64) error

	// SetTrialState promotes a trial to a terminal state. Promoting an
	// already-finished trial is an error.
	SetTrialState(studyID string, trialID int, state TrialState) error

	// Trial returns a copy of one trial record.
	Trial(studyID string, trialID int) (FrozenTrial, error)

	// Trials returns copies of all trial records, in creation order.
	Trials(studyID string) ([]FrozenTrial, error)
}

// InMemoryStorage is the default Storage: an in-process, RWMutex-guarded
// ledger. All state is lost when the process exits; use the rdb subpackage
// for a persistent study.
type InMemoryStorage struct {
	mu      sync.RWMutex
	studies map[string]*memoryStudy
}

type memoryStudy struct {
	name      string
	direction Direction
	trials    []FrozenTrial
}

// NewInMemoryStorage returns an empty in-memory ledger.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{studies: make(map[string]*memoryStudy)}
}

// CreateStudy implements Storage. Each call creates a fresh study, even
// under a reused name.
func (s *InMemoryStorage) CreateStudy(name string, direction Direction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.studies[id] = &memoryStudy{name: name, direction: direction}

	return id, nil
}

// CreateTrial implements Storage.
func (s *InMemoryStorage) CreateTrial(studyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.studies[studyID]
	if !ok {
		return 0, ErrStudyNotFound
	}

	id := len(st.trials)

	st.trials = append(st.trials, FrozenTrial{
		ID:             id,
		State:          TrialStateRunning,
		InternalParams: make(map[string]float64),
		Params:         make(map[string]any),
		Distributions:  make(map[string]Distribution),
	})

	return id, nil
}

// SetTrialParam implements Storage.
func (s *InMemoryStorage) SetTrialParam(studyID string, trialID int, name string, ir float64, d Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.running(studyID, trialID)
	if err != nil {
		return err
	}

	t.InternalParams[name] = ir
	t.Params[name] = d.External(ir)
	t.Distributions[name] = d

	return nil
}

// SetTrialValue implements Storage.
func (s *InMemoryStorage) SetTrialValue(studyID string, trialID int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.running(studyID, trialID)
	if err != nil {
		return err
	}

	t.Value = value

	return nil
}

// SetTrialState implements Storage.
func (s *InMemoryStorage) SetTrialState(studyID string, trialID int, state TrialState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.running(studyID, trialID)
	if err != nil {
		return err
	}

	t.State = state

	return nil
}

// Trial implements Storage.
func (s *InMemoryStorage) Trial(studyID string, trialID int) (FrozenTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.studies[studyID]
	if !ok {
		return FrozenTrial{}, ErrStudyNotFound
	}

	if trialID < 0 || trialID >= len(st.trials) {
		return FrozenTrial{}, ErrTrialNotFound
	}

	return copyTrial(st.trials[trialID]), nil
}

// Trials implements Storage.
func (s *InMemoryStorage) Trials(studyID string) ([]FrozenTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.studies[studyID]
	if !ok {
		return nil, ErrStudyNotFound
	}

	out := make([]FrozenTrial, len(st.trials))
	for i, t := range st.trials {
		out[i] = copyTrial(t)
	}

	return out, nil
}

// running returns a pointer into the ledger for mutation, rejecting trials
// that already reached a terminal state.
func (s *InMemoryStorage) running(studyID string, trialID int) (*FrozenTrial, error) {
	st, ok := s.studies[studyID]
	if !ok {
		return nil, ErrStudyNotFound
	}

	if trialID < 0 || trialID >= len(st.trials) {
		return nil, ErrTrialNotFound
	}

	t := &st.trials[trialID]
	if t.State.Finished() {
		return nil, fmt.Errorf("trial %d already %s", trialID, t.State)
	}

	return t, nil
}

// copyTrial deep-copies the map fields so callers cannot mutate the ledger
// through a returned record.
func copyTrial(t FrozenTrial) FrozenTrial {
	out := t

	out.InternalParams = make(map[string]float64, len(t.InternalParams))
	out.Params = make(map[string]any, len(t.Params))
	out.Distributions = make(map[string]Distribution, len(t.Distributions))

	for k, v := range t.InternalParams {
		out.InternalParams[k] = v
	}

	for k, v := range t.Params {
		out.Params[k] = v
	}

	for k, v := range t.Distributions {
		out.Distributions[k] = v
	}

	return out
}
