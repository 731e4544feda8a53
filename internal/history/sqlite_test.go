package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_StartAndComplete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.Start(ctx, StartParams{TableID: "B19013", Level: "state", Buckets: 9, Format: "geojson", Output: "out.geojson"})
	require.NoError(t, err)
	require.NoError(t, st.Complete(ctx, run.ID, "B19013_001E", 52))

	runs, err := st.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "B19013", got.TableID)
	assert.Equal(t, "state", got.Level)
	assert.Equal(t, 9, got.Buckets)
	assert.Equal(t, "geojson", got.Format)
	assert.Equal(t, "out.geojson", got.Output)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, "B19013_001E", got.Column)
	assert.Equal(t, 52, got.Rows)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
}

func TestSQLite_Fail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.Start(ctx, StartParams{TableID: "B01003", Level: "zip", Buckets: 5, Format: "table"})
	require.NoError(t, err)
	require.NoError(t, st.Fail(ctx, run.ID, errors.New("fetch error: 503")))

	runs, err := st.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "fetch error: 503", runs[0].Error)
}

func TestSQLite_FinishUnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.Complete(context.Background(), "nope", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListOrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for _, table := range []string{"B01001", "B01002", "B01003"} {
		run, err := st.Start(ctx, StartParams{TableID: table, Level: "state", Buckets: 9, Format: "table"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := st.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Contains(t, ids, r.ID)
		assert.Equal(t, StatusRunning, r.Status)
		assert.Nil(t, r.CompletedAt)
	}
	assert.False(t, runs[0].StartedAt.Before(runs[1].StartedAt), "newest first")
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, Config{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	assert.NoError(t, st.Close())

	_, err = Open(ctx, Config{Driver: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")

	_, err = Open(ctx, Config{Driver: "postgres", DatabaseURL: "::not a dsn::"})
	assert.Error(t, err)
}
