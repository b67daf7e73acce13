// Package memsql provides the MemSQL (SingleStore) dialect definition.
// This package is pure Go with no database driver dependencies.
package memsql

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the MemSQL dialect configuration.
var Config = &core.DialectConfig{
	Name: "memsql",
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "``",
		Normalization: core.NormCaseSensitive,
	},

	Types: map[core.TypeKind]string{
		core.TypeString: "TEXT",
	},

	SupportsMerge:  false,
	SupportsCTE:    true,
	SupportsWindow: true,
	TruncateTable:  true,
	UpdateStyle:    core.UpdateJoin,

	TimestampLiteral: "'{}'",
	JSONLiteral:      "'{}'",
	CurrentTimestamp: "CURRENT_TIMESTAMP()",
}
