package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/milestone/pkg/adapter"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, adapter.Config{Type: "duckdb", Path: dbPath}))
			defer func() { _ = adp.Close() }()

			assert.True(t, adp.IsConnected())
			assert.NotNil(t, adp.DB())
			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorIs(t, adp.Exec(ctx, "SELECT 1"), adapter.ErrNotConnected)
	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	assert.NoError(t, adp.Close())
}

func TestAdapter_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{Type: "duckdb"}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE staging ("id" INTEGER, "name" VARCHAR)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO staging VALUES (1, 'a'), (2, 'b')`))

	rows, err := adp.Query(ctx, `SELECT COUNT(*) as "incomingRecordCount" FROM staging as stage`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, int64(2), n)
	require.NoError(t, rows.Err())
}

func TestAdapter_Settings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	cfg := adapter.Config{
		Type:   "duckdb",
		Params: map[string]any{"settings": map[string]any{"threads": "2"}},
	}
	require.NoError(t, adp.Connect(ctx, cfg))
	defer func() { _ = adp.Close() }()

	var threads int64
	require.NoError(t, adp.DB().QueryRowContext(ctx, "SELECT current_setting('threads')").Scan(&threads))
	assert.Equal(t, int64(2), threads)
}

func TestAdapter_InvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), adapter.Config{
		Type:   "duckdb",
		Params: map[string]any{"unknown": true},
	})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}

func TestAdapter_Registered(t *testing.T) {
	adp, err := adapter.NewAdapter(adapter.Config{Type: "duckdb"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", adp.Dialect().GetName())
}
