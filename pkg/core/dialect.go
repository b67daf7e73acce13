package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data with no rendering logic.
//
// The runtime behavior (quoting, type names, literal templates) lives in
// pkg/dialect.Dialect, which embeds this config.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "ansi", "bigquery")
	Name string

	// Identifiers defines quoting and normalization rules
	Identifiers IdentifierConfig

	// DefaultSchema is the schema used when a dataset has no group
	DefaultSchema string

	// Types maps each semantic type to the dialect's type name.
	// Kinds missing from the map fall back to the ANSI name.
	Types map[TypeKind]string

	// Optional features
	SupportsMerge         bool // MERGE INTO ... USING ... WHEN MATCHED
	SupportsCTE           bool // WITH name AS (...)
	SupportsWindow        bool // DENSE_RANK() OVER (...)
	PrimaryKeyNotEnforced bool // PRIMARY KEY (...) NOT ENFORCED
	DropCascade           bool // DROP TABLE ... CASCADE
	TruncateTable         bool // TRUNCATE TABLE instead of DELETE FROM for compiler-owned tables

	// UpdateStyle selects how a joined UPDATE is rendered.
	UpdateStyle UpdateStyle
	// UnqualifiedSetTargets renders SET targets without the table alias.
	UnqualifiedSetTargets bool

	// Literal templates. "{}" is replaced by the escaped value.
	TimestampLiteral string // e.g. "'{}'", "PARSE_DATETIME('%Y-%m-%d %H:%M:%E6S','{}')"
	JSONLiteral      string // e.g. "PARSE_JSON('{}')"
	CurrentTimestamp string // e.g. "CURRENT_TIMESTAMP()"
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Snowflake, H2).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly (MySQL, MemSQL).
	NormCaseSensitive
	// NormCaseInsensitive normalizes to lowercase for comparison (BigQuery, Databricks, DuckDB).
	NormCaseInsensitive
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `, [
	QuoteEnd      string                // End quote character (usually same as Quote, ] for [)
	Escape        string                // Escape sequence: "", ``, ]]
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}

// UpdateStyle selects the rendering of an UPDATE whose new values come from
// another table.
type UpdateStyle int

const (
	// UpdateCorrelated uses one correlated subquery per SET column plus a
	// WHERE EXISTS guard. Portable to every ANSI engine.
	UpdateCorrelated UpdateStyle = iota
	// UpdateJoin uses UPDATE target INNER JOIN source ON ... SET ... (MySQL family).
	UpdateJoin
	// UpdateFrom uses UPDATE target SET ... FROM source WHERE ... (PostgreSQL family).
	UpdateFrom
)

// String returns the string representation of UpdateStyle.
func (s UpdateStyle) String() string {
	switch s {
	case UpdateCorrelated:
		return "correlated"
	case UpdateJoin:
		return "join"
	case UpdateFrom:
		return "from"
	default:
		return "unknown"
	}
}
