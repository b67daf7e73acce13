package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/milestone/internal/testutil"
	"github.com/leapstack-labs/milestone/pkg/core"
)

var startTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*SQLiteStore, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(startTime)
	store := NewSQLiteStore(testutil.NewTestLogger(t)).WithClock(clock)
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "state.db")))

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "closing twice is a no-op")
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)

	_, err := store.CreateRun(NewRun{Job: "orders"})
	assert.ErrorIs(t, err, ErrNotOpened)
	assert.ErrorIs(t, store.CompleteRun("x", Outcome{}), ErrNotOpened)
	_, err = store.GetRun("x")
	assert.ErrorIs(t, err, ErrNotOpened)
	_, err = store.ListRuns("", 10)
	assert.ErrorIs(t, err, ErrNotOpened)
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	store, clock := setupTestStore(t)

	run, err := store.CreateRun(NewRun{Job: "orders", Main: "mart.orders", Mode: "unitemporal_delta", Dialect: "duckdb"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.BatchID)
	assert.True(t, startTime.Equal(got.StartedAt))

	clock.Advance(time.Minute)
	err = store.CompleteRun(run.ID, Outcome{
		Status:  RunStatusCompleted,
		BatchID: 4,
		Ranges: []RangeStats{
			{
				Range:      &core.DataSplitRange{Lower: 1, Upper: 1},
				Statistics: map[core.StatisticName]int64{core.StatIncomingRecordCount: 3, core.StatRowsInserted: 3},
			},
			{
				Range:      &core.DataSplitRange{Lower: 2, Upper: 5},
				Statistics: map[core.StatisticName]int64{core.StatIncomingRecordCount: 2, core.StatRowsInserted: 1},
			},
		},
	})
	require.NoError(t, err)

	got, err = store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	require.NotNil(t, got.BatchID)
	assert.Equal(t, int64(4), *got.BatchID)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, startTime.Add(time.Minute).Equal(*got.CompletedAt))
	assert.Empty(t, got.Error)

	require.Len(t, got.Ranges, 2)
	assert.Equal(t, &core.DataSplitRange{Lower: 1, Upper: 1}, got.Ranges[0].Range)
	assert.Equal(t, &core.DataSplitRange{Lower: 2, Upper: 5}, got.Ranges[1].Range)
	assert.Equal(t, int64(5), got.Total(core.StatIncomingRecordCount))
	assert.Equal(t, int64(4), got.Total(core.StatRowsInserted))
}

func TestSQLiteStore_FailedRun(t *testing.T) {
	store, _ := setupTestStore(t)

	run, err := store.CreateRun(NewRun{Job: "orders"})
	require.NoError(t, err)

	require.NoError(t, store.CompleteRun(run.ID, Outcome{
		Status:     RunStatusFailed,
		EmptyBatch: true,
		Ranges:     []RangeStats{{Statistics: map[core.StatisticName]int64{core.StatIncomingRecordCount: 0}}},
		Error:      "empty batch",
	}))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.True(t, got.EmptyBatch)
	assert.Equal(t, "empty batch", got.Error)
	require.Len(t, got.Ranges, 1)
	assert.Nil(t, got.Ranges[0].Range)
}

func TestSQLiteStore_CompleteUnknownRun(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.CompleteRun("missing", Outcome{Status: RunStatusCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	_, err = store.GetRun("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store, clock := setupTestStore(t)

	var ids []string
	for _, job := range []string{"orders", "customers", "orders"} {
		run, err := store.CreateRun(NewRun{Job: job})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		clock.Advance(time.Hour)
	}

	tests := []struct {
		name  string
		job   string
		limit int
		want  []string
	}{
		{name: "all jobs newest first", job: "", limit: 10, want: []string{ids[2], ids[1], ids[0]}},
		{name: "filtered by job", job: "orders", limit: 10, want: []string{ids[2], ids[0]}},
		{name: "limited", job: "", limit: 1, want: []string{ids[2]}},
		{name: "unknown job", job: "nope", limit: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(tt.job, tt.limit)
			require.NoError(t, err)
			var got []string
			for _, r := range runs {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
