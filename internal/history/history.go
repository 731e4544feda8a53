// Package history records every choropleth render invocation so operators can
// see what was drawn, when, and whether it succeeded.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Status is the lifecycle state of a render.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Run is one recorded render invocation.
type Run struct {
	ID          string     `json:"id"`
	TableID     string     `json:"table_id"`
	Level       string     `json:"level"`
	Buckets     int        `json:"buckets"`
	Format      string     `json:"format"`
	Column      string     `json:"column,omitempty"`
	Output      string     `json:"output,omitempty"`
	Status      Status     `json:"status"`
	Rows        int        `json:"rows"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StartParams describes a render that is about to begin.
type StartParams struct {
	TableID string
	Level   string
	Buckets int
	Format  string
	Output  string
}

// Store persists render runs.
type Store interface {
	Migrate(ctx context.Context) error
	Start(ctx context.Context, p StartParams) (*Run, error)
	Complete(ctx context.Context, id, column string, rows int) error
	Fail(ctx context.Context, id string, cause error) error
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Config selects and locates the backing database.
type Config struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int32  `mapstructure:"max_conns"`
}

// Open connects to the configured driver and migrates the schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "acsmap.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres", "postgresql":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	default:
		return nil, eris.Errorf("history: unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
