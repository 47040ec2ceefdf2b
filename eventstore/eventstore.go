// Package eventstore records the diagnostic events of pipeline runs
// in a SQLite database.
package eventstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/eaburns/xform/opt"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id      TEXT PRIMARY KEY,
	started TEXT NOT NULL,
	mode    TEXT NOT NULL,
	funcs   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	run   TEXT NOT NULL REFERENCES runs(id),
	seq   INTEGER NOT NULL,
	func  TEXT NOT NULL,
	phase TEXT NOT NULL,
	msg   TEXT NOT NULL,
	debug INTEGER NOT NULL,
	PRIMARY KEY (run, seq)
);
`

// timeLayout sorts in time order as a string.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// A Store is a database of runs.
type Store struct {
	db *sql.DB
}

// A Run describes one recorded run.
type Run struct {
	ID      string
	Started time.Time
	Mode    string
	Funcs   int
	Events  int
}

// Open opens or creates the database at path.
// The path ":memory:" is an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record records the events of a finished analysis as a new run
// and returns the run's ID.
func (s *Store) Record(ctx context.Context, a *opt.Analysis) (string, error) {
	var events []opt.Event
	if a.Log != nil {
		events = a.Log.Events
	}
	return s.RecordEvents(ctx, a.Mode().String(), len(a.Funcs()), events)
}

// RecordEvents records events as a new run and returns the run's ID.
func (s *Store) RecordEvents(ctx context.Context, mode string, funcs int, events []opt.Event) (id string, err error) {
	id = uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	started := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started, mode, funcs) VALUES (?, ?, ?, ?)`,
		id, started, mode, funcs); err != nil {
		return "", errors.Wrap(err, "insert run")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run, seq, func, phase, msg, debug) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare")
	}
	defer stmt.Close()
	for i, e := range events {
		if _, err := stmt.ExecContext(ctx, id, i, e.Func, string(e.Phase), e.Msg, e.Debug); err != nil {
			return "", errors.Wrapf(err, "insert event %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit")
	}
	return id, nil
}

// Runs returns the recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started, r.mode, r.funcs, COUNT(e.seq)
		FROM runs r LEFT JOIN events e ON e.run = r.id
		GROUP BY r.id
		ORDER BY r.started, r.rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Mode, &r.Funcs, &r.Events); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if r.Started, err = time.Parse(timeLayout, started); err != nil {
			return nil, errors.Wrapf(err, "run %s", r.ID)
		}
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "query runs")
}

// Events returns the events of a run in their recorded order.
// If phase is non-empty, only events of that phase are returned.
func (s *Store) Events(ctx context.Context, run string, phase opt.Phase) ([]opt.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT func, phase, msg, debug FROM events
		WHERE run = ? AND (? = '' OR phase = ?)
		ORDER BY seq`, run, string(phase), string(phase))
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()
	var events []opt.Event
	for rows.Next() {
		var e opt.Event
		var ph string
		if err := rows.Scan(&e.Func, &ph, &e.Msg, &e.Debug); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		e.Phase = opt.Phase(ph)
		events = append(events, e)
	}
	return events, errors.Wrap(rows.Err(), "query events")
}
