package hypertune

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStorageLifecycle(t *testing.T) {
	storage := NewInMemoryStorage()

	studyID, err := storage.CreateStudy("lifecycle", Minimize)
	require.NoError(t, err)
	require.NotEmpty(t, studyID)

	trialID, err := storage.CreateTrial(studyID)
	require.NoError(t, err)
	assert.Equal(t, 0, trialID)

	d := Uniform{Low: 0, High: 1}

	require.NoError(t, storage.SetTrialParam(studyID, trialID, "x", 0.25, d))
	require.NoError(t, storage.SetTrialValue(studyID, trialID, 0.0625))
	require.NoError(t, storage.SetTrialState(studyID, trialID, TrialStateComplete))

	trial, err := storage.Trial(studyID, trialID)
	require.NoError(t, err)

	assert.Equal(t, TrialStateComplete, trial.State)
	assert.Equal(t, 0.0625, trial.Value)
	assert.Equal(t, 0.25, trial.InternalParams["x"])
	assert.Equal(t, 0.25, trial.Params["x"])
}

func TestInMemoryStorageAppendOnly(t *testing.T) {
	storage := NewInMemoryStorage()

	studyID, err := storage.CreateStudy("append-only", Minimize)
	require.NoError(t, err)

	trialID, err := storage.CreateTrial(studyID)
	require.NoError(t, err)

	require.NoError(t, storage.SetTrialState(studyID, trialID, TrialStateComplete))

	// A finished trial is immutable.
	assert.Error(t, storage.SetTrialValue(studyID, trialID, 1))
	assert.Error(t, storage.SetTrialState(studyID, trialID, TrialStateFail))
	assert.Error(t, storage.SetTrialParam(studyID, trialID, "x", 0, Uniform{Low: 0, High: 1}))
}

func TestInMemoryStorageReturnsCopies(t *testing.T) {
	storage := NewInMemoryStorage()

	studyID, err := storage.CreateStudy("copies", Minimize)
	require.NoError(t, err)

	trialID, err := storage.CreateTrial(studyID)
	require.NoError(t, err)

	require.NoError(t, storage.SetTrialParam(studyID, trialID, "x", 0.5, Uniform{Low: 0, High: 1}))

	trial, err := storage.Trial(studyID, trialID)
	require.NoError(t, err)

	// Mutating a returned record must not reach the ledger.
	trial.InternalParams["x"] = 99
	trial.Params["x"] = 99

	reread, err := storage.Trial(studyID, trialID)
	require.NoError(t, err)

	assert.Equal(t, 0.5, reread.InternalParams["x"])
	assert.Equal(t, 0.5, reread.Params["x"])
}

func TestInMemoryStorageUnknownIDs(t *testing.T) {
	storage := NewInMemoryStorage()

	_, err := storage.CreateTrial("nope")
	assert.ErrorIs(t, err, ErrStudyNotFound)

	studyID, err := storage.CreateStudy("known", Minimize)
	require.NoError(t, err)

	_, err = storage.Trial(studyID, 4)
	assert.ErrorIs(t, err, ErrTrialNotFound)

	_, err = storage.Trials("nope")
	assert.ErrorIs(t, err, ErrStudyNotFound)
}

func TestInMemoryStorageIndependentStudies(t *testing.T) {
	storage := NewInMemoryStorage()

	a, err := storage.CreateStudy("same-name", Minimize)
	require.NoError(t, err)

	b, err := storage.CreateStudy("same-name", Maximize)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	_, err = storage.CreateTrial(a)
	require.NoError(t, err)

	trialsB, err := storage.Trials(b)
	require.NoError(t, err)
	assert.Empty(t, trialsB)
}
