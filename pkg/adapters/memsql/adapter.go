// Package memsql provides a MemSQL (SingleStore) database adapter over the
// MySQL wire protocol.
package memsql

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/milestone/pkg/adapter"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	memsqldialect "github.com/leapstack-labs/milestone/pkg/dialects/memsql"
)

const defaultPort = 3306

// Params holds MemSQL-specific configuration.
type Params struct {
	// Timeout is the dial timeout, e.g. "10s".
	Timeout string `mapstructure:"timeout"`

	// TLS selects a registered TLS config ("true", "skip-verify", "preferred").
	TLS string `mapstructure:"tls"`
}

// Adapter implements the adapter.Adapter interface for MemSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MemSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the MemSQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return memsqldialect.MemSQL
}

// Connect establishes a connection to MemSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return err
	}
	dsn, err := buildDSN(cfg, params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to memsql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return a.OpenAndPing(ctx, "mysql", dsn, cfg)
}

// buildDSN constructs a go-sql-driver DSN.
func buildDSN(cfg adapter.Config, params Params) (string, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.MultiStatements = false
	mc.TLSConfig = params.TLS

	if params.Timeout != "" {
		d, err := time.ParseDuration(params.Timeout)
		if err != nil {
			return "", fmt.Errorf("invalid adapter params: timeout: %w", err)
		}
		mc.Timeout = d
	}
	if len(cfg.Options) > 0 {
		mc.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN(), nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
