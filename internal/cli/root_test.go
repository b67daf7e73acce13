package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		verbose   bool
		wantDebug bool
		wantWarn  bool
		wantErr   bool
	}{
		{name: "warn", level: "warn", wantWarn: true},
		{name: "lower case debug", level: "debug", wantDebug: true, wantWarn: true},
		{name: "verbose forces debug", level: "error", verbose: true, wantDebug: true, wantWarn: true},
		{name: "invalid", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(&buf, tt.level, tt.verbose)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebug, logger.Enabled(t.Context(), slog.LevelDebug))
			assert.Equal(t, tt.wantWarn, logger.Enabled(t.Context(), slog.LevelWarn))

			logger.Warn("lock held", "table", "orders")
			if tt.wantWarn {
				assert.Contains(t, buf.String(), "lock held")
				assert.NotContains(t, buf.String(), "\x1b[", "no color when not a terminal")
			}
		})
	}
}

func TestRootCommand(t *testing.T) {
	root := NewRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "dialects", "run", "history", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootExecuteDialects(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "milestone.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output: json\n"), 0o644))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"dialects", "--config", cfgPath})

	require.NoError(t, root.Execute())
	for _, name := range []string{"ansi", "bigquery", "databricks", "duckdb", "h2", "memsql", "postgres", "snowflake"} {
		assert.Contains(t, out.String(), `"name": "`+name+`"`)
	}
	assert.Contains(t, out.String(), `"adapter": true`)
}

func TestRootExecuteInvalidOutput(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "milestone.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("dialect: ansi\n"), 0o644))

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"dialects", "--config", cfgPath, "-o", "xml"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
