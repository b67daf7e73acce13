// Package adapter provides the database connections compiled plans run on.
//
// This package contains the contract every adapter implements. Concrete
// adapters live in pkg/adapters/ subdirectories and register themselves in
// init(); import them with a blank identifier to make a type available.
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/milestone/pkg/dialect"
)

// Config is the connection configuration of a target database.
type Config struct {
	// Type selects the adapter (duckdb, postgres, memsql).
	Type string `koanf:"type" json:"type" yaml:"type"`

	// Path is the database file for embedded databases (":memory:" when empty).
	Path string `koanf:"path" json:"path,omitempty" yaml:"path,omitempty"`

	Host     string `koanf:"host" json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `koanf:"port" json:"port,omitempty" yaml:"port,omitempty"`
	Database string `koanf:"database" json:"database,omitempty" yaml:"database,omitempty"`
	Username string `koanf:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password string `koanf:"password" json:"-" yaml:"-"`

	// Options are driver connection options (e.g. sslmode).
	Options map[string]string `koanf:"options" json:"options,omitempty" yaml:"options,omitempty"`

	// Params holds adapter-specific settings, decoded by each adapter with
	// DecodeParams.
	Params map[string]any `koanf:"params" json:"params,omitempty" yaml:"params,omitempty"`
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*sql.Rows, error)

	// DB returns the underlying connection pool. The executor opens its
	// transactions on it.
	DB() *sql.DB

	// Dialect returns the SQL dialect plans for this database are compiled with.
	Dialect() *dialect.Dialect
}
