// Package bigquery provides the BigQuery SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package bigquery

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the BigQuery dialect configuration.
var Config = &core.DialectConfig{
	Name: "bigquery",
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "\\`",
		Normalization: core.NormCaseInsensitive,
	},

	Types: map[core.TypeKind]string{
		core.TypeInteger:  "INT64",
		core.TypeInt:      "INT64",
		core.TypeBigInt:   "INT64",
		core.TypeSmallInt: "INT64",
		core.TypeTinyInt:  "INT64",
		core.TypeVarchar:  "STRING",
		core.TypeChar:     "STRING",
		core.TypeString:   "STRING",
		core.TypeDouble:   "FLOAT64",
		core.TypeFloat:    "FLOAT64",
		core.TypeDecimal:  "NUMERIC",
		core.TypeBoolean:  "BOOL",
	},

	SupportsMerge:         true,
	SupportsCTE:           true,
	SupportsWindow:        true,
	PrimaryKeyNotEnforced: true, // BigQuery rejects enforced keys
	TruncateTable:         true,
	UpdateStyle:           core.UpdateFrom,
	UnqualifiedSetTargets: true,

	TimestampLiteral: "PARSE_DATETIME('%Y-%m-%d %H:%M:%E6S','{}')",
	JSONLiteral:      "PARSE_JSON('{}')",
	CurrentTimestamp: "CURRENT_DATETIME()",
}
