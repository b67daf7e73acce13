// Package postgres provides the PostgreSQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import "github.com/leapstack-labs/milestone/pkg/core"

// Config is the PostgreSQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "postgres",
	DefaultSchema: "public",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase,
	},

	Types: map[core.TypeKind]string{
		core.TypeTinyInt:  "SMALLINT",
		core.TypeString:   "TEXT",
		core.TypeDouble:   "DOUBLE PRECISION",
		core.TypeFloat:    "REAL",
		core.TypeDatetime: "TIMESTAMP",
		core.TypeJSON:     "JSONB",
	},

	// MERGE only exists from PostgreSQL 15; UPDATE ... FROM works everywhere.
	SupportsMerge:         false,
	SupportsCTE:           true,
	SupportsWindow:        true,
	DropCascade:           true,
	TruncateTable:         true,
	UpdateStyle:           core.UpdateFrom,
	UnqualifiedSetTargets: true,

	TimestampLiteral: "'{}'",
	JSONLiteral:      "'{}'::jsonb",
	CurrentTimestamp: "CURRENT_TIMESTAMP",
}
