package adapter

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		expectErr bool
	}{
		{
			name:      "close with nil DB",
			setupDB:   false,
			expectErr: false,
		},
		{
			name:      "close with open DB",
			setupDB:   true,
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.Conn = db
			}

			err := base.Close()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		wantErr   error
		errMsg    string
	}{
		{
			name:    "exec without connection",
			sql:     "SELECT 1",
			wantErr: ErrNotConnected,
		},
		{
			name:    "metadata table ddl",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS batch_metadata`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql: `CREATE TABLE IF NOT EXISTS batch_metadata ("table_name" VARCHAR(255), "table_batch_id" INTEGER)`,
		},
		{
			name:    "driver error is wrapped",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM main`)).WillReturnError(assert.AnError)
			},
			sql:     `DELETE FROM main as sink WHERE sink."batch_id_out" = 999999999`,
			wantErr: assert.AnError,
			errMsg:  "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := &BaseSQLAdapter{}

			var mock sqlmock.Sqlmock
			if tt.setupDB {
				db, m, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				mock = m
				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.Conn = db
			}

			err := base.Exec(ctx, tt.sql)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
			if mock != nil {
				assert.NoError(t, mock.ExpectationsWereMet())
			}
		})
	}
}

func TestBaseSQLAdapter_QueryNextBatchID(t *testing.T) {
	const nextID = `SELECT COALESCE(MAX(batch_metadata."table_batch_id"),0)+1 FROM batch_metadata as batch_metadata WHERE UPPER(batch_metadata."table_name") = 'MAIN'`

	t.Run("not connected", func(t *testing.T) {
		rows, err := (&BaseSQLAdapter{}).Query(context.Background(), nextID)
		require.ErrorIs(t, err, ErrNotConnected)
		assert.Nil(t, rows)
	})

	t.Run("reads the next id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectQuery(regexp.QuoteMeta(nextID)).
			WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))

		base := &BaseSQLAdapter{Conn: db}
		rows, err := base.Query(context.Background(), nextID)
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		require.True(t, rows.Next())
		var id int64
		require.NoError(t, rows.Scan(&id))
		assert.Equal(t, int64(4), id)
		assert.False(t, rows.Next())
		require.NoError(t, rows.Err())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

		rows, err := (&BaseSQLAdapter{Conn: db}).Query(context.Background(), nextID)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to execute query")
		assert.Nil(t, rows)
	})
}

// The executor opens its transactions on DB(), so statements issued through
// the pool and through Exec share one connection state.
func TestBaseSQLAdapter_DBCarriesTransactions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	base := &BaseSQLAdapter{Conn: db, Cfg: Config{Type: "postgres"}}
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS main`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO batch_metadata`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, base.Exec(ctx, `CREATE TABLE IF NOT EXISTS main ("id" INTEGER)`))

	tx, err := base.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO batch_metadata ("table_name") VALUES ('main')`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_OpenAndPing(t *testing.T) {
	t.Run("keeps connection and config", func(t *testing.T) {
		db, _, err := sqlmock.NewWithDSN("milestone_open_ok")
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		base := &BaseSQLAdapter{}
		cfg := Config{Type: "postgres", Database: "warehouse"}
		require.NoError(t, base.OpenAndPing(context.Background(), "sqlmock", "milestone_open_ok", cfg))
		defer func() { _ = base.Close() }()

		assert.True(t, base.IsConnected())
		assert.Equal(t, cfg, base.Cfg)
	})

	t.Run("ping failure leaves adapter unconnected", func(t *testing.T) {
		db, mock, err := sqlmock.NewWithDSN("milestone_ping_fail", sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing().WillReturnError(assert.AnError)

		base := &BaseSQLAdapter{}
		err = base.OpenAndPing(context.Background(), "sqlmock", "milestone_ping_fail", Config{Type: "memsql"})
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to ping memsql")
		assert.False(t, base.IsConnected())
	})

	t.Run("unknown driver", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		err := base.OpenAndPing(context.Background(), "no_such_driver", "", Config{Type: "duckdb"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open duckdb connection")
		assert.False(t, base.IsConnected())
	})
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	tests := []struct {
		name     string
		setupDB  bool
		expected bool
	}{
		{
			name:     "not connected",
			setupDB:  false,
			expected: false,
		},
		{
			name:     "connected",
			setupDB:  true,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, _, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				base.Conn = db
			}

			assert.Equal(t, tt.expected, base.IsConnected())
		})
	}
}

func TestBaseSQLAdapter_DB(t *testing.T) {
	base := &BaseSQLAdapter{}
	assert.Nil(t, base.DB())

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	base.Conn = db
	assert.Same(t, db, base.DB())

	require.NoError(t, base.Close())
	assert.False(t, base.IsConnected(), "Close should drop the connection")
}

func TestDecodeParams(t *testing.T) {
	type params struct {
		Extensions []string          `mapstructure:"extensions"`
		Settings   map[string]string `mapstructure:"settings"`
		Threads    int               `mapstructure:"threads"`
	}

	tests := []struct {
		name    string
		input   map[string]any
		want    params
		wantErr bool
	}{
		{
			name: "nil params",
		},
		{
			name: "all fields",
			input: map[string]any{
				"extensions": []any{"json", "httpfs"},
				"settings":   map[string]any{"memory_limit": "1GB"},
				"threads":    "4",
			},
			want: params{
				Extensions: []string{"json", "httpfs"},
				Settings:   map[string]string{"memory_limit": "1GB"},
				Threads:    4,
			},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extension": "json"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got params
			err := DecodeParams(tt.input, &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid adapter params")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
