package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS render_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Start(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO render_runs`).
		WithArgs(pgxmock.AnyArg(), "B19013", "state", 9, "geojson", "B19013_state.geojson", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.Start(context.Background(), StartParams{
		TableID: "B19013",
		Level:   "state",
		Buckets: 9,
		Format:  "geojson",
		Output:  "B19013_state.geojson",
	})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, StatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Start_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO render_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	_, err := s.Start(context.Background(), StartParams{TableID: "B19013"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: start run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Complete(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE render_runs SET status = \$1`).
		WithArgs("complete", "B19013_001E", 52, "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.Complete(context.Background(), "run-1", "B19013_001E", 52))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Fail_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE render_runs SET status = \$1`).
		WithArgs("failed", "", 0, "fetch error: boom", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.Fail(context.Background(), "missing", errors.New("fetch error: boom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	done := started.Add(3 * time.Second)
	var pending *time.Time

	mock.ExpectQuery(`SELECT id, table_id, level, .* FROM render_runs ORDER BY started_at DESC LIMIT \$1`).
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "table_id", "level", "buckets", "format", "column_name", "output",
			"status", "row_count", "error", "started_at", "completed_at",
		}).
			AddRow("run-2", "B01003", "zip", 5, "xlsx", "", "", "running", 0, "", started, pending).
			AddRow("run-1", "B19013", "state", 9, "geojson", "B19013_001E", "out.geojson", "complete", 52, "", started, &done))

	runs, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].CompletedAt)
	assert.Zero(t, runs[0].Duration())

	assert.Equal(t, "B19013_001E", runs[1].Column)
	assert.Equal(t, 52, runs[1].Rows)
	require.NotNil(t, runs[1].CompletedAt)
	assert.Equal(t, 3*time.Second, runs[1].Duration())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, table_id`).
		WithArgs(10).
		WillReturnError(errors.New("timeout"))

	_, err := s.List(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: list runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}
