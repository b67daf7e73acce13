package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/milestone/pkg/adapter"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		params   Params
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name:   "params",
			config: adapter.Config{Database: "warehouse", Password: "p w'd"},
			params: Params{
				SearchPath:      "staging,public",
				ApplicationName: "milestone",
				Runtime:         map[string]string{"statement_timeout": "60000", "lock_timeout": "5000"},
			},
			expected: `host=localhost port=5432 dbname=warehouse sslmode=disable password='p w\'d' application_name=milestone ` +
				`search_path='staging,public' lock_timeout=5000 statement_timeout=60000`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config, tt.params))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.Nil(t, adp.DB(), "DB should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.Dialect().GetName())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorIs(t, adp.Exec(ctx, "SELECT 1"), adapter.ErrNotConnected)
	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestAdapter_InvalidParams(t *testing.T) {
	err := New(nil).Connect(context.Background(), adapter.Config{
		Type:   "postgres",
		Params: map[string]any{"search_paths": "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid adapter params")
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"), "postgres adapter should be registered")

	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.NotNil(t, pg.Logger)
}

func TestAdapter_Close(t *testing.T) {
	// Close should not error even without connection
	adp := New(nil)
	assert.NoError(t, adp.Close())
}
