// Package h2 provides the H2 dialect definition.
package h2

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the H2 dialect configuration.
var Config = &core.DialectConfig{
	Name:          "h2",
	DefaultSchema: "PUBLIC",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormUppercase,
	},

	Types: map[core.TypeKind]string{
		core.TypeString:   "VARCHAR",
		core.TypeDatetime: "TIMESTAMP",
	},

	SupportsCTE:    true,
	SupportsWindow: true,
	DropCascade:    true,
	TruncateTable:  true,
	UpdateStyle:    core.UpdateCorrelated,

	TimestampLiteral: "'{}'",
	JSONLiteral:      "JSON '{}'",
	CurrentTimestamp: "CURRENT_TIMESTAMP()",
}
