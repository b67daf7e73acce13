// Package duckdb provides a DuckDB database adapter.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/milestone/pkg/adapter"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	duckdbdialect "github.com/leapstack-labs/milestone/pkg/dialects/duckdb"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return duckdbdialect.DuckDB
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))
	if err := a.OpenAndPing(ctx, "duckdb", path, cfg); err != nil {
		return err
	}
	a.params = params

	if err := a.setup(ctx); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

// setup loads extensions and applies session settings.
func (a *Adapter) setup(ctx context.Context) error {
	for _, ext := range a.params.Extensions {
		a.Logger.Debug("loading duckdb extension", slog.String("extension", ext))
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	// Apply settings in a stable order.
	keys := make([]string, 0, len(a.params.Settings))
	for k := range a.params.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := strings.ReplaceAll(a.params.Settings[k], "'", "''")
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", k, value)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
