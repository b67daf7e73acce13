// Package snowflake provides the Snowflake SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package snowflake

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the Snowflake SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "snowflake",
	DefaultSchema: "PUBLIC",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormUppercase, // Snowflake normalizes to uppercase
	},

	Types: map[core.TypeKind]string{
		core.TypeDatetime:  "TIMESTAMP_NTZ",
		core.TypeTimestamp: "TIMESTAMP_NTZ",
		core.TypeJSON:      "VARIANT",
		core.TypeString:    "VARCHAR",
	},

	SupportsMerge:  true,
	SupportsCTE:    true,
	SupportsWindow: true,
	DropCascade:    true,
	TruncateTable:  true,
	UpdateStyle:    core.UpdateFrom,

	TimestampLiteral: "'{}'",
	JSONLiteral:      "PARSE_JSON('{}')",
	CurrentTimestamp: "CURRENT_TIMESTAMP()",
}
