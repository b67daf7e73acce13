// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the DuckDB dialect configuration.
var Config = &core.DialectConfig{
	Name:          "duckdb",
	DefaultSchema: "main",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},

	Types: map[core.TypeKind]string{
		core.TypeString:   "VARCHAR",
		core.TypeDatetime: "TIMESTAMP",
	},

	SupportsMerge:         false,
	SupportsCTE:           true,
	SupportsWindow:        true,
	DropCascade:           true,
	TruncateTable:         true,
	UpdateStyle:           core.UpdateFrom,
	UnqualifiedSetTargets: true,

	TimestampLiteral: "'{}'",
	JSONLiteral:      "CAST('{}' AS JSON)",
	CurrentTimestamp: "CURRENT_TIMESTAMP",
}
