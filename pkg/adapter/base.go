package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
)

// ErrNotConnected is returned when a statement is issued before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query and DB implementations.
type BaseSQLAdapter struct {
	Conn   *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.Conn == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection", slog.String("type", b.Cfg.Type))
	}
	err := b.Conn.Close()
	b.Conn = nil
	return err
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.Conn == nil {
		return ErrNotConnected
	}
	if _, err := b.Conn.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows. The caller closes them.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*sql.Rows, error) {
	if b.Conn == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.Conn.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// DB returns the connection pool, nil before Connect.
func (b *BaseSQLAdapter) DB() *sql.DB {
	return b.Conn
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.Conn != nil
}

// OpenAndPing opens driverName with dsn and checks the connection.
func (b *BaseSQLAdapter) OpenAndPing(ctx context.Context, driverName, dsn string, cfg Config) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", cfg.Type, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", cfg.Type, err)
	}
	b.Conn = db
	b.Cfg = cfg
	return nil
}

// DecodeParams decodes an adapter's Params map into out, a pointer to a
// struct with mapstructure tags. Unknown keys are rejected.
func DecodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("creating params decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid adapter params: %w", err)
	}
	return nil
}
