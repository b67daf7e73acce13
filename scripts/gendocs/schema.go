package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/milestone/internal/cli/config"
)

// generateSchemaDocs generates the configuration and job file references.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateJobFileDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate jobs.md: %w", err)
	}
	log.Printf("  Generated jobs.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
	Category    string // "project", "target", "duckdb", "postgres", "memsql", "metrics"
}

// getConfigSchema returns the milestone.yaml keys.
// This is based on internal/cli/config/types.go and adapter.Config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "dialect", Type: "string", Description: "Dialect used when neither the job nor the target selects one", Category: "project"},
		{Name: "jobs_dir", Type: "string", Default: config.DefaultJobsDir, Description: "Directory scanned for job files", Category: "project"},
		{Name: "state_path", Type: "string", Default: config.DefaultStateFile, Description: "SQLite file holding run history", Category: "project"},
		{Name: "environment", Type: "string", Default: config.DefaultEnv, Description: "Entry of `environments` to apply", Category: "project"},
		{Name: "log_level", Type: "string", Default: config.DefaultLogLevel, Description: "debug, info, warn or error", Category: "project"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "auto, text, markdown, json or yaml", Category: "project"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Shorthand for log_level debug", Category: "project"},

		{Name: "type", Type: "string", Required: true, Description: "Adapter type: duckdb, postgres or memsql", Category: "target"},
		{Name: "path", Type: "string", Description: "Database file (DuckDB); empty or `:memory:` runs in memory", Category: "target"},
		{Name: "host", Type: "string", Description: "Database host", Category: "target"},
		{Name: "port", Type: "int", Description: "Database port", Category: "target"},
		{Name: "database", Type: "string", Description: "Database name", Category: "target"},
		{Name: "username", Type: "string", Description: "Database username", Category: "target"},
		{Name: "password", Type: "string", Description: "Database password, usually `${VAR}`", Category: "target"},
		{Name: "options", Type: "map[string]string", Description: "Driver connection options", Category: "target"},
		{Name: "params", Type: "map[string]any", Description: "Adapter-specific settings, listed below", Category: "target"},

		{Name: "extensions", Type: "[]string", Description: "Extensions installed and loaded on connect", Category: "duckdb"},
		{Name: "settings", Type: "map[string]string", Description: "Session settings such as memory_limit or threads", Category: "duckdb"},

		{Name: "search_path", Type: "string", Description: "Session search_path", Category: "postgres"},
		{Name: "application_name", Type: "string", Description: "Name shown in pg_stat_activity", Category: "postgres"},
		{Name: "runtime", Type: "map[string]string", Description: "Further run-time parameters sent at connect time", Category: "postgres"},

		{Name: "timeout", Type: "string", Description: "Dial timeout, e.g. `10s`", Category: "memsql"},
		{Name: "tls", Type: "string", Description: "TLS mode: true, skip-verify or preferred", Category: "memsql"},

		{Name: "textfile", Type: "string", Description: "Write run metrics in the node_exporter textfile format", Category: "metrics"},
		{Name: "push_url", Type: "string", Description: "Push run metrics to a Prometheus Pushgateway", Category: "metrics"},
		{Name: "job", Type: "string", Default: "milestone", Description: "Pushgateway job label", Category: "metrics"},
	}
}

// fieldRows renders the fields of one category.
func fieldRows(category string, withDefault bool) (headers []string, rows [][]string) {
	headers = []string{"Field", "Type", "Description"}
	if withDefault {
		headers = []string{"Field", "Type", "Default", "Description"}
	}
	for _, f := range getConfigSchema() {
		if f.Category != category {
			continue
		}
		name := InlineCode(f.Name)
		if f.Required {
			name += " (required)"
		}
		if !withDefault {
			rows = append(rows, []string{name, f.Type, f.Description})
			continue
		}
		def := "-"
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		rows = append(rows, []string{name, f.Type, def, f.Description})
	}
	return headers, rows
}

// generateConfigurationDoc generates the milestone.yaml reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "milestone project configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("milestone reads `milestone.yaml` from the project root. The root is the directory of `--config`, " +
		"or the nearest parent of the working directory holding a `milestone.yaml`. A `.env` file next to it is " +
		"loaded into the process environment first.")

	w.Header(2, "Project Settings")
	w.Table(fieldRows("project", true))

	w.Header(2, "Target")
	w.Paragraph("The `target` key describes the database `milestone run` executes against. " +
		"Relative paths are resolved against the project root.")
	w.Table(fieldRows("target", false))

	w.Header(3, "DuckDB params")
	w.Table(fieldRows("duckdb", false))
	w.CodeBlock("yaml", `target:
  type: duckdb
  path: ./warehouse.duckdb
  params:
    extensions: [json]
    settings:
      threads: "4"`)

	w.Header(3, "PostgreSQL params")
	w.Table(fieldRows("postgres", false))
	w.CodeBlock("yaml", `target:
  type: postgres
  host: localhost
  port: 5432
  database: warehouse
  username: loader
  password: ${PGPASSWORD}
  options:
    sslmode: disable
  params:
    search_path: mart`)

	w.Header(3, "MemSQL params")
	w.Table(fieldRows("memsql", false))

	w.Header(2, "Metrics")
	w.Paragraph("Each `milestone run` records Prometheus counters and histograms. They are exported only when configured.")
	w.Table(fieldRows("metrics", true))

	w.Header(2, "Environments")
	w.Paragraph("Entries under `environments` override `dialect` and merge into `target` for the selected environment.")
	w.CodeBlock("yaml", `dialect: duckdb
target:
  type: duckdb
  path: ./dev.duckdb

environments:
  ci:
    target:
      path: ":memory:"
  prod:
    dialect: postgres
    target:
      type: postgres
      host: db.internal
      database: warehouse
      password: ${PROD_PASSWORD}`)

	w.Header(2, "Environment Variables")
	w.Paragraph("Any key can be set with the `" + config.EnvPrefix + "` prefix. Nested keys use a double underscore:")
	w.CodeBlock("bash", `MILESTONE_OUTPUT=json
MILESTONE_TARGET__HOST=db.internal
MILESTONE_METRICS__TEXTFILE=/var/lib/node_exporter/milestone.prom`)
	w.Paragraph("Precedence, lowest first: defaults, `milestone.yaml`, environment variables, command-line flags.")

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// generateJobFileDoc generates the job file reference page.
func generateJobFileDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Job files", "milestone job file reference")
	w.GeneratedMarker()

	w.Header(1, "Job files")
	w.Paragraph("A job file describes one ingest from a staging table into a main table. " +
		"The job name defaults to the file name without its extension.")

	w.Header(2, "Top-level keys")
	w.Table([]string{"Key", "Description"}, [][]string{
		{InlineCode("name"), "Job name"},
		{InlineCode("dialect"), "Dialect to compile for"},
		{InlineCode("datasets"), "The main, staging, metadata and temp tables"},
		{InlineCode("schema"), "Staging schema; the main schema is derived from it"},
		{InlineCode("main_schema"), "Explicit main schema"},
		{InlineCode("mode"), "Ingest mode and its settings"},
		{InlineCode("options"), "Compiler options"},
	})

	w.Header(2, "Datasets")
	w.Paragraph("Each dataset takes `database`, `group`, `name` and `alias`. The staging dataset also takes `filters`, " +
		"each a `field`, an `op` (gt, gte, lt, lte, eq) and a `value`.")

	w.Header(2, "Schema")
	w.Paragraph("Fields take `name`, `type`, `length`, `scale`, `role`, `primary_key`, `not_null` and `unique`.")
	w.Paragraph("Types: INTEGER, INT, BIGINT, SMALLINT, TINYINT, VARCHAR, CHAR, STRING, DOUBLE, FLOAT, DECIMAL, " +
		"BOOLEAN, DATE, TIME, DATETIME, TIMESTAMP, JSON.")
	w.Paragraph("Roles:")
	w.BulletList([]string{
		InlineCode("primary_key"), InlineCode("digest"), InlineCode("version"),
		InlineCode("batch_id_in") + ", " + InlineCode("batch_id_out"),
		InlineCode("batch_time_in") + ", " + InlineCode("batch_time_out"),
		InlineCode("validity_from") + ", " + InlineCode("validity_through"),
		InlineCode("delete_indicator"), InlineCode("data_split"), InlineCode("partition"),
	})

	w.Header(2, "Modes")
	w.Table([]string{"Kind", "Settings"}, [][]string{
		{InlineCode("nontemporal_snapshot"), "auditing, empty_batch"},
		{InlineCode("nontemporal_delta"), "auditing, delete_indicator"},
		{InlineCode("append_only"), "auditing, filter_existing_records"},
		{InlineCode("unitemporal_delta"), "transaction, delete_indicator"},
		{InlineCode("unitemporal_snapshot"), "transaction, partitioning, empty_batch"},
		{InlineCode("bitemporal"), "transaction, validity, delete_indicator"},
	})
	w.Paragraph("Every mode takes `dedup` (allow_duplicates, filter_duplicates, fail_on_duplicates) and `versioning` " +
		"(`kind` none, max_version or all_version; `field`; `stage_versioning`; `resolver` greater_than, " +
		"greater_than_equal_to or digest_based). A setting the mode does not take is rejected.")

	w.Header(2, "Options")
	w.Table([]string{"Key", "Description"}, [][]string{
		{InlineCode("case_conversion"), "none, upper or lower"},
		{InlineCode("placeholders"), "Leave batch id and time placeholders in the SQL"},
		{InlineCode("batch_success_status"), "batch_status written on success (default DONE)"},
		{InlineCode("sample_row_count"), "Rows returned by error sample queries (default 20)"},
		{InlineCode("cleanup_staging_data"), "Empty staging after the batch"},
		{InlineCode("create_staging_dataset"), "Create the staging table in the pre-actions"},
		{InlineCode("enable_concurrent_safety"), "Take a per-table lock row"},
		{InlineCode("batch_id_sentinel"), "Batch id marking open rows"},
		{InlineCode("additional_metadata"), "Extra JSON stored with the batch metadata"},
	})

	w.Header(2, "Example")
	w.CodeBlock("yaml", `name: customers
dialect: duckdb
datasets:
  main: {group: mart, name: customers}
  staging: {group: raw, name: customers_stage}
schema:
  - {name: id, type: integer, role: primary_key}
  - {name: name, type: varchar, length: 64}
  - {name: digest, type: varchar, role: digest}
mode:
  kind: unitemporal_delta
  dedup: filter_duplicates`)

	filename := filepath.Join(outDir, "jobs.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
