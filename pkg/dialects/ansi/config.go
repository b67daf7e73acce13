// Package ansi provides the base ANSI SQL dialect.
//
// ANSI renders joined updates as correlated subqueries and has no MERGE, so
// every statement it produces runs on any SQL:2003 engine. Other dialect
// packages start from the same shape and switch on the features they have.
package ansi

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the ANSI SQL dialect configuration.
// This is pure data - accessible by both adapters and the compiler.
var Config = &core.DialectConfig{
	Name: "ansi",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase,
	},

	// ANSI names are the defaults, nothing to override.
	Types: map[core.TypeKind]string{},

	SupportsMerge:  false,
	SupportsCTE:    true,
	SupportsWindow: true,
	DropCascade:    true,
	UpdateStyle:    core.UpdateCorrelated,

	TimestampLiteral: "'{}'",
	JSONLiteral:      "PARSE_JSON('{}')",
	CurrentTimestamp: "CURRENT_TIMESTAMP()",
}
