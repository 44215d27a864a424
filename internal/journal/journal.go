// Package journal persists run and trial outcomes to SQLite so a result
// directory with gaps can still be accounted for after the process exits.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Run struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment"`
	TrialCount  int       `json:"trial_count"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

type Trial struct {
	RunID      string        `json:"run_id"`
	Index      int           `json:"index"`
	OK         bool          `json:"ok"`
	Duration   time.Duration `json:"duration"`
	Artifact   string        `json:"artifact,omitempty"`
	Error      string        `json:"error,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	environment TEXT NOT NULL DEFAULT '',
	trial_count INTEGER NOT NULL,
	completed   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);
CREATE TABLE IF NOT EXISTS trials (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	idx         INTEGER NOT NULL,
	ok          INTEGER NOT NULL,
	duration_us INTEGER NOT NULL,
	artifact    TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	recorded_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, idx)
);
CREATE INDEX IF NOT EXISTS idx_trials_run_id ON trials(run_id);
`

type Journal struct {
	db *sql.DB
}

// dsnWithPragmas applies WAL and a busy timeout per connection; the
// driver applies _pragma query params to every new connection.
func dsnWithPragmas(path string) string {
	return path + "?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(path))
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) StartRun(id, environment string, trialCount int) error {
	_, err := j.db.Exec(
		`INSERT INTO runs (id, environment, trial_count, started_at) VALUES (?, ?, ?, ?)`,
		id, environment, trialCount, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

func (j *Journal) FinishRun(id string, completed, failed int) error {
	res, err := j.db.Exec(
		`UPDATE runs SET completed = ?, failed = ?, finished_at = ? WHERE id = ?`,
		completed, failed, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: unknown run", id)
	}
	return nil
}

// RecordTrial implements trial.Recorder.
func (j *Journal) RecordTrial(runID string, index int, ok bool, duration time.Duration, artifact, errMsg string) error {
	_, err := j.db.Exec(
		`INSERT INTO trials (run_id, idx, ok, duration_us, artifact, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, index, ok, duration.Microseconds(), artifact, errMsg, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record trial %d of run %s: %w", index, runID, err)
	}
	return nil
}

func (j *Journal) GetRun(id string) (*Run, error) {
	row := j.db.QueryRow(
		`SELECT id, environment, trial_count, completed, failed, started_at, finished_at
		 FROM runs WHERE id = ?`, id,
	)
	var r Run
	var finished sql.NullTime
	if err := row.Scan(&r.ID, &r.Environment, &r.TrialCount, &r.Completed, &r.Failed, &r.StartedAt, &finished); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

func (j *Journal) ListTrials(runID string) ([]Trial, error) {
	rows, err := j.db.Query(
		`SELECT run_id, idx, ok, duration_us, artifact, error, recorded_at
		 FROM trials WHERE run_id = ? ORDER BY idx`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trials for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Trial
	for rows.Next() {
		var t Trial
		var us int64
		if err := rows.Scan(&t.RunID, &t.Index, &t.OK, &us, &t.Artifact, &t.Error, &t.RecordedAt); err != nil {
			return nil, err
		}
		t.Duration = time.Duration(us) * time.Microsecond
		out = append(out, t)
	}
	return out, rows.Err()
}
