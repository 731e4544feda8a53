package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS render_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	table_id     TEXT NOT NULL,
	level        TEXT NOT NULL,
	buckets      INTEGER NOT NULL,
	format       TEXT NOT NULL,
	column_name  TEXT NOT NULL DEFAULT '',
	output       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	row_count    INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_render_runs_started_at ON render_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_render_runs_table_id ON render_runs(table_id);
`

// Migrate creates the render_runs table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Start records a running render.
func (s *PostgresStore) Start(ctx context.Context, p StartParams) (*Run, error) {
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO render_runs (id, table_id, level, buckets, format, output, status, started_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.TableID, run.Level, run.Buckets, run.Format, run.Output, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: start run")
	}
	return run, nil
}

// Complete marks a run as finished.
func (s *PostgresStore) Complete(ctx context.Context, id, column string, rows int) error {
	return s.finish(ctx, id, StatusComplete, column, rows, "")
}

// Fail marks a run as failed with cause.
func (s *PostgresStore) Fail(ctx context.Context, id string, cause error) error {
	return s.finish(ctx, id, StatusFailed, "", 0, errorText(cause))
}

func (s *PostgresStore) finish(ctx context.Context, id string, status Status, column string, rows int, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE render_runs SET status = $1, column_name = $2, row_count = $3, error = $4, completed_at = $5 WHERE id = $6`,
		string(status), column, rows, msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", id)
	}
	return nil
}

// List returns the most recent runs first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, table_id, level, buckets, format, column_name, output, status, row_count, error, started_at, completed_at
		 FROM render_runs ORDER BY started_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r      Run
			status string
		)
		if err := rows.Scan(&r.ID, &r.TableID, &r.Level, &r.Buckets, &r.Format, &r.Column, &r.Output,
			&status, &r.Rows, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = Status(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
