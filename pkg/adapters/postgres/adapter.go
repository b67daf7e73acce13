// Package postgres provides a PostgreSQL database adapter.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/leapstack-labs/milestone/pkg/adapter"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	pgdialect "github.com/leapstack-labs/milestone/pkg/dialects/postgres"
)

// Params holds PostgreSQL-specific configuration.
type Params struct {
	// SearchPath sets the session search_path.
	SearchPath string `mapstructure:"search_path"`

	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string `mapstructure:"application_name"`

	// Runtime holds further run-time parameters sent at connect time.
	Runtime map[string]string `mapstructure:"runtime"`
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return pgdialect.Postgres
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return a.OpenAndPing(ctx, "pgx", buildPostgresDSN(cfg, params), cfg)
}

// buildPostgresDSN constructs a key=value PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config, params Params) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", quoteValue(cfg.Password))
	}
	if params.ApplicationName != "" {
		dsn += fmt.Sprintf(" application_name=%s", quoteValue(params.ApplicationName))
	}
	if params.SearchPath != "" {
		dsn += fmt.Sprintf(" search_path=%s", quoteValue(params.SearchPath))
	}

	keys := make([]string, 0, len(params.Runtime))
	for k := range params.Runtime {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dsn += fmt.Sprintf(" %s=%s", k, quoteValue(params.Runtime[k]))
	}
	return dsn
}

// quoteValue quotes a DSN value when it holds spaces, quotes or commas.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\,`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
