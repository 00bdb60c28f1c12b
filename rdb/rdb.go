// Package rdb provides a PostgreSQL-backed trial ledger, so studies
// survive process restarts and several processes can inspect the same
// history. It implements the hypertune.Storage contract with hand-written
// SQL over database/sql and the pq driver.
package rdb

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"

	"github.com/MichaelAllen1966/hypertune"
)

const schema = `
CREATE TABLE IF NOT EXISTS studies (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	direction  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trials (
	study_id   UUID NOT NULL REFERENCES studies(id),
	number     INTEGER NOT NULL,
	state      TEXT NOT NULL,
	value      DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (study_id, number)
);

CREATE TABLE IF NOT EXISTS trial_params (
	study_id     UUID NOT NULL,
	trial_number INTEGER NOT NULL,
	name         TEXT NOT NULL,
	internal     DOUBLE PRECISION NOT NULL,
	distribution JSONB NOT NULL,
	PRIMARY KEY (study_id, trial_number, name),
	FOREIGN KEY (study_id, trial_number) REFERENCES trials(study_id, number)
);
`

// Storage is a PostgreSQL trial ledger.
type Storage struct {
	db *sql.DB
}

// Open connects to a PostgreSQL DSN, verifies the connection, and ensures
// the schema exists.
func Open(dsn string) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := New(db)
	if err := s.Migrate(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// New wraps an existing connection pool. The caller owns the pool's
// lifecycle unless Close is used.
func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Migrate creates the schema if it does not exist.
func (s *Storage) Migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

// CreateStudy implements hypertune.Storage. A study name is durable: if it
// already exists, its ID is returned and optimization resumes with the
// accumulated history.
func (s *Storage) CreateStudy(name string, direction hypertune.Direction) (string, error) {
	if id, err := s.StudyID(name); err == nil {
		return id, nil
	} else if err != hypertune.ErrStudyNotFound {
		return "", err
	}

	id := uuid.NewString()

	query := `
		INSERT INTO studies (id, name, direction) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`

	if _, err := s.db.Exec(query, id, name, direction.String()); err != nil {
		return "", fmt.Errorf("create study %q: %w", name, err)
	}

	// A concurrent creator may have won the conflict; resolve by name.
	return s.StudyID(name)
}

// StudyID resolves a study name to its storage ID.
func (s *Storage) StudyID(name string) (string, error) {
	var id string

	err := s.db.QueryRow(`SELECT id FROM studies WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return "", hypertune.ErrStudyNotFound
	}

	if err != nil {
		return "", fmt.Errorf("lookup study %q: %w", name, err)
	}

	return id, nil
}

// CreateTrial implements hypertune.Storage.
func (s *Storage) CreateTrial(studyID string) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists bool

	if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM studies WHERE id = $1)`, studyID).Scan(&exists); err != nil {
		return 0, err
	}

	if !exists {
		return 0, hypertune.ErrStudyNotFound
	}

	var number int

	query := `SELECT COALESCE(MAX(number) + 1, 0) FROM trials WHERE study_id = $1`

	if err := tx.QueryRow(query, studyID).Scan(&number); err != nil {
		return 0, err
	}

	insert := `INSERT INTO trials (study_id, number, state) VALUES ($1, $2, $3)`

	if _, err := tx.Exec(insert, studyID, number, hypertune.TrialStateRunning.String()); err != nil {
		return 0, fmt.Errorf("create trial: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return number, nil
}

// SetTrialParam implements hypertune.Storage.
func (s *Storage) SetTrialParam(studyID string, trialID int, name string, ir float64, d hypertune.Distribution) error {
	payload, err := encodeDistribution(d)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO trial_params (study_id, trial_number, name, internal, distribution)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.Exec(query, studyID, trialID, name, ir, payload); err != nil {
		return fmt.Errorf("record param %q: %w", name, err)
	}

	return nil
}

// SetTrialValue implements hypertune.Storage.
func (s *Storage) SetTrialValue(studyID string, trialID int, value float64) error {
	query := `
		UPDATE trials SET value = $3
		WHERE study_id = $1 AND number = $2 AND state = 'running'
	`

	res, err := s.db.Exec(query, studyID, trialID, value)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}

	return requireRow(res, trialID)
}

// SetTrialState implements hypertune.Storage. Only running trials can be
// promoted, which keeps the ledger append-only.
func (s *Storage) SetTrialState(studyID string, trialID int, state hypertune.TrialState) error {
	query := `
		UPDATE trials SET state = $3
		WHERE study_id = $1 AND number = $2 AND state = 'running'
	`

	res, err := s.db.Exec(query, studyID, trialID, state.String())
	if err != nil {
		return fmt.Errorf("set state: %w", err)
	}

	return requireRow(res, trialID)
}

// Trial implements hypertune.Storage.
func (s *Storage) Trial(studyID string, trialID int) (hypertune.FrozenTrial, error) {
	query := `SELECT number, state, value FROM trials WHERE study_id = $1 AND number = $2`

	row := s.db.QueryRow(query, studyID, trialID)

	t, err := scanTrial(row)
	if err == sql.ErrNoRows {
		return hypertune.FrozenTrial{}, hypertune.ErrTrialNotFound
	}

	if err != nil {
		return hypertune.FrozenTrial{}, err
	}

	if err := s.loadParams(studyID, &t); err != nil {
		return hypertune.FrozenTrial{}, err
	}

	return t, nil
}

// Trials implements hypertune.Storage.
func (s *Storage) Trials(studyID string) ([]hypertune.FrozenTrial, error) {
	rows, err := s.db.Query(
		`SELECT number, state, value FROM trials WHERE study_id = $1 ORDER BY number`,
		studyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hypertune.FrozenTrial

	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadParams(studyID, &out[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// loadParams fills a trial's parameter maps from the trial_params table.
func (s *Storage) loadParams(studyID string, t *hypertune.FrozenTrial) error {
	rows, err := s.db.Query(
		`SELECT name, internal, distribution FROM trial_params WHERE study_id = $1 AND trial_number = $2`,
		studyID, t.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name    string
			ir      float64
			payload []byte
		)

		if err := rows.Scan(&name, &ir, &payload); err != nil {
			return err
		}

		d, err := decodeDistribution(payload)
		if err != nil {
			return fmt.Errorf("param %q: %w", name, err)
		}

		t.InternalParams[name] = ir
		t.Params[name] = d.External(ir)
		t.Distributions[name] = d
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrial(row rowScanner) (hypertune.FrozenTrial, error) {
	var (
		t     hypertune.FrozenTrial
		state string
		value sql.NullFloat64
	)

	if err := row.Scan(&t.ID, &state, &value); err != nil {
		return t, err
	}

	st, err := parseState(state)
	if err != nil {
		return t, err
	}

	t.State = st
	t.Value = value.Float64

	t.InternalParams = make(map[string]float64)
	t.Params = make(map[string]any)
	t.Distributions = make(map[string]hypertune.Distribution)

	return t, nil
}

func parseState(s string) (hypertune.TrialState, error) {
	switch s {
	case "running":
		return hypertune.TrialStateRunning, nil
	case "complete":
		return hypertune.TrialStateComplete, nil
	case "fail":
		return hypertune.TrialStateFail, nil
	case "pruned":
		return hypertune.TrialStatePruned, nil
	default:
		return 0, fmt.Errorf("unknown trial state %q", s)
	}
}

func requireRow(res sql.Result, trialID int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("trial %d: not running or not found", trialID)
	}

	return nil
}
