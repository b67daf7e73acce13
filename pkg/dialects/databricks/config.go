// Package databricks provides the Databricks SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package databricks

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the Databricks SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "databricks",
	DefaultSchema: "default",
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "``",
		Normalization: core.NormCaseInsensitive,
	},

	Types: map[core.TypeKind]string{
		core.TypeInteger:  "INT",
		core.TypeVarchar:  "STRING",
		core.TypeChar:     "STRING",
		core.TypeDatetime: "TIMESTAMP",
		core.TypeJSON:     "STRING", // no native JSON column type
	},

	SupportsMerge:  true,
	SupportsCTE:    true,
	SupportsWindow: true,
	TruncateTable:  true,
	UpdateStyle:    core.UpdateCorrelated,

	TimestampLiteral: "'{}'",
	JSONLiteral:      "'{}'",
	CurrentTimestamp: "CURRENT_TIMESTAMP()",
}
