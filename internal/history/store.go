// Package history keeps a SQLite log of runs and their events.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// Run is a stored run.
type Run struct {
	ID            int64
	RequestID     string
	Stages        [][]string
	StartedAt     time.Time
	StoppedAt     *time.Time
	LastEvent     string
	Err           string
	ExitRequested bool
	Lines         int
}

// Event is a stored event of a run.
type Event struct {
	RunID      int64
	Seq        int
	Kind       string
	LineNumber int
	Line       string
	At         time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	// runs are recorded from many workers, sqlite takes one writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating history %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		stages TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		stopped_at TIMESTAMP,
		last_event TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		exit_requested INTEGER NOT NULL DEFAULT 0,
		lines INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		line_number INTEGER NOT NULL,
		line TEXT NOT NULL,
		at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_request ON runs(request_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) createRun(ctx context.Context, requestID string, stages [][]string, at time.Time) (int64, error) {
	b, err := json.Marshal(stages)
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (request_id, stages, started_at) VALUES (?, ?, ?)`,
		requestID, string(b), at.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("executing sql insert failed: %w", err)
	}
	return result.LastInsertId()
}

func (s *Store) addEvent(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, seq, kind, line_number, line, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Seq, e.Kind, e.LineNumber, e.Line, e.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("executing sql insert failed: %w", err)
	}
	return nil
}

func (s *Store) finishRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stopped_at = ?, last_event = ?, error = ?, exit_requested = ?, lines = ? WHERE id = ?`,
		run.StoppedAt, run.LastEvent, run.Err, run.ExitRequested, run.Lines, run.ID,
	)
	if err != nil {
		return fmt.Errorf("executing sql update failed: %w", err)
	}
	return nil
}

// Runs returns the latest runs first, at most limit of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, stages, started_at, stopped_at, last_event, error, exit_requested, lines
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []Run
	for rows.Next() {
		var run Run
		var stages string
		var stoppedAt sql.NullTime
		err := rows.Scan(
			&run.ID, &run.RequestID, &stages, &run.StartedAt, &stoppedAt,
			&run.LastEvent, &run.Err, &run.ExitRequested, &run.Lines,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stages), &run.Stages); err != nil {
			return nil, fmt.Errorf("decoding stages of run %d: %w", run.ID, err)
		}
		if stoppedAt.Valid {
			run.StoppedAt = &stoppedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Events returns events of a run in the order they were emitted,
// ErrNotFound when the run does not exist.
func (s *Store) Events(ctx context.Context, runID int64) ([]Event, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, kind, line_number, line, at FROM events WHERE run_id = ? ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Kind, &e.LineNumber, &e.Line, &e.At); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
