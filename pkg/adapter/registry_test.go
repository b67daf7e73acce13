package adapter

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/milestone/pkg/dialect"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()

	assert.Contains(t, msg, `"fake_db"`)
	assert.Contains(t, msg, "[duckdb postgres]")
	assert.Contains(t, msg, "target.type in milestone.yaml")
}

// stubAdapter is an unconnected adapter that records its logger.
type stubAdapter struct {
	BaseSQLAdapter
}

func (s *stubAdapter) Connect(_ context.Context, cfg Config) error {
	s.Cfg = cfg
	return nil
}

func (s *stubAdapter) Dialect() *dialect.Dialect { return nil }

func TestRegister(t *testing.T) {
	Register("stub_register", func(l *slog.Logger) Adapter { return &stubAdapter{BaseSQLAdapter{Logger: l}} })

	assert.True(t, IsRegistered("stub_register"))
	factory, ok := Get("stub_register")
	require.True(t, ok)
	require.NotNil(t, factory)
	assert.Contains(t, ListAdapters(), "stub_register")
	assert.True(t, sort.StringsAreSorted(ListAdapters()))
}

func TestNewAdapter_PassesLogger(t *testing.T) {
	Register("stub_logger", func(l *slog.Logger) Adapter { return &stubAdapter{BaseSQLAdapter{Logger: l}} })

	t.Run("given logger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		a, err := NewAdapter(Config{Type: "stub_logger"}, logger)
		require.NoError(t, err)
		stub, ok := a.(*stubAdapter)
		require.True(t, ok)
		assert.Same(t, logger, stub.Logger)
		assert.False(t, stub.IsConnected(), "factories return unconnected adapters")
		assert.Nil(t, stub.DB())
	})

	t.Run("nil logger is replaced", func(t *testing.T) {
		a, err := NewAdapter(Config{Type: "stub_logger"}, nil)
		require.NoError(t, err)
		assert.NotNil(t, a.(*stubAdapter).Logger)
		// Close on an unconnected adapter logs nothing and succeeds.
		assert.NoError(t, a.Close())
	})
}

func TestNewAdapter_EmptyType(t *testing.T) {
	cfg := Config{
		Type: "",
	}

	_, err := NewAdapter(cfg, nil)
	require.Error(t, err, "NewAdapter with empty type should fail")
	assert.ErrorIs(t, err, ErrTypeRequired)
}

func TestNewAdapter_Unknown(t *testing.T) {
	Register("test_adapter_known", func(l *slog.Logger) Adapter { return &stubAdapter{BaseSQLAdapter{Logger: l}} })

	_, err := NewAdapter(Config{Type: "fake_db"}, nil)
	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "fake_db", unknown.Type)
	assert.Contains(t, unknown.Available, "test_adapter_known")
}
