package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn in WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS render_runs (
	id           TEXT PRIMARY KEY,
	table_id     TEXT NOT NULL,
	level        TEXT NOT NULL,
	buckets      INTEGER NOT NULL,
	format       TEXT NOT NULL,
	column_name  TEXT NOT NULL DEFAULT '',
	output       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	row_count    INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_render_runs_started_at ON render_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_render_runs_table_id ON render_runs(table_id);
`

// Migrate creates the render_runs table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Start records a running render.
func (s *SQLiteStore) Start(ctx context.Context, p StartParams) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		TableID:   p.TableID,
		Level:     p.Level,
		Buckets:   p.Buckets,
		Format:    p.Format,
		Output:    p.Output,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO render_runs (id, table_id, level, buckets, format, output, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TableID, run.Level, run.Buckets, run.Format, run.Output, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: start run")
	}
	return run, nil
}

// Complete marks a run as finished.
func (s *SQLiteStore) Complete(ctx context.Context, id, column string, rows int) error {
	return s.finish(ctx, id, StatusComplete, column, rows, "")
}

// Fail marks a run as failed with cause.
func (s *SQLiteStore) Fail(ctx context.Context, id string, cause error) error {
	return s.finish(ctx, id, StatusFailed, "", 0, errorText(cause))
}

func (s *SQLiteStore) finish(ctx context.Context, id string, status Status, column string, rows int, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE render_runs SET status = ?, column_name = ?, row_count = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), column, rows, msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", id)
	}
	return nil
}

// List returns the most recent runs first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, table_id, level, buckets, format, column_name, output, status, row_count, error, started_at, completed_at
		 FROM render_runs ORDER BY started_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			status    string
			completed sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.TableID, &r.Level, &r.Buckets, &r.Format, &r.Column, &r.Output,
			&status, &r.Rows, &r.Error, &r.StartedAt, &completed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = Status(status)
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}
