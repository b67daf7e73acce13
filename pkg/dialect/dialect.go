// Package dialect provides the dialect capability provider used to render SQL.
//
// A Dialect wraps a pure-data core.DialectConfig and exposes identifier
// quoting, type names, literal templates and feature flags. Concrete dialects
// are registered from pkg/dialects/*/ packages.
package dialect

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/milestone/pkg/core"
)

// Feature is an optional SQL construct a dialect may lack.
type Feature string

// Feature constants.
const (
	FeatureMerge                 Feature = "MERGE"
	FeatureCTE                   Feature = "WITH (common table expressions)"
	FeatureWindow                Feature = "window functions"
	FeaturePrimaryKeyNotEnforced Feature = "PRIMARY KEY NOT ENFORCED"
	FeatureDropCascade           Feature = "DROP TABLE CASCADE"
	FeatureTruncate              Feature = "TRUNCATE TABLE"
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string

	types    map[core.TypeKind]string
	features map[Feature]bool

	updateStyle           core.UpdateStyle
	unqualifiedSetTargets bool

	timestampLiteral string
	jsonLiteral      string
	currentTimestamp string
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	types := make(map[core.TypeKind]string, len(d.types))
	for k, v := range d.types {
		types[k] = v
	}
	return &core.DialectConfig{
		Name:                  d.Name,
		Identifiers:           d.Identifiers,
		DefaultSchema:         d.DefaultSchema,
		Types:                 types,
		SupportsMerge:         d.features[FeatureMerge],
		SupportsCTE:           d.features[FeatureCTE],
		SupportsWindow:        d.features[FeatureWindow],
		PrimaryKeyNotEnforced: d.features[FeaturePrimaryKeyNotEnforced],
		DropCascade:           d.features[FeatureDropCascade],
		TruncateTable:         d.features[FeatureTruncate],
		UpdateStyle:           d.updateStyle,
		UnqualifiedSetTargets: d.unqualifiedSetTargets,
		TimestampLiteral:      d.timestampLiteral,
		JSONLiteral:           d.jsonLiteral,
		CurrentTimestamp:      d.currentTimestamp,
	}
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// NormalizeName normalizes an identifier according to the dialect's rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return strings.ToUpper(name)
	case core.NormCaseSensitive:
		return name
	default:
		return strings.ToLower(name)
	}
}

// Supports reports whether the dialect has feature f.
func (d *Dialect) Supports(f Feature) bool {
	return d.features[f]
}

// Require returns a *CapabilityError when the dialect lacks feature f.
func (d *Dialect) Require(f Feature) error {
	if d.features[f] {
		return nil
	}
	return &CapabilityError{Dialect: d.Name, Feature: f}
}

// UpdateStyle returns how joined UPDATE statements are rendered.
func (d *Dialect) UpdateStyle() core.UpdateStyle {
	return d.updateStyle
}

// UnqualifiedSetTargets reports whether SET targets must omit the table alias.
func (d *Dialect) UnqualifiedSetTargets() bool {
	return d.unqualifiedSetTargets
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// TableName renders a table reference without its alias. Qualified names are
// quoted part by part; an unqualified name is left bare.
func (d *Dialect) TableName(t *core.TableRef) string {
	if !t.Qualified() {
		return t.Name
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Database, t.Group, t.Name} {
		if p != "" {
			parts = append(parts, d.QuoteIdentifier(p))
		}
	}
	return strings.Join(parts, ".")
}

// TypeName returns the dialect spelling of a semantic type.
func (d *Dialect) TypeName(t core.DataType) string {
	name, ok := d.types[t.Kind]
	if !ok {
		name = t.Kind.String()
	}
	switch {
	case t.Length > 0 && t.Scale > 0:
		return name + "(" + strconv.Itoa(t.Length) + "," + strconv.Itoa(t.Scale) + ")"
	case t.Length > 0:
		return name + "(" + strconv.Itoa(t.Length) + ")"
	default:
		return name
	}
}

// StringLiteral quotes s as a SQL string literal.
func (d *Dialect) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// TimestampLiteral renders a fixed timestamp value.
func (d *Dialect) TimestampLiteral(value string) string {
	return fill(d.timestampLiteral, value)
}

// JSONLiteral renders a JSON document.
func (d *Dialect) JSONLiteral(doc string) string {
	return fill(d.jsonLiteral, doc)
}

// CurrentTimestamp returns the current-timestamp expression.
func (d *Dialect) CurrentTimestamp() string {
	return d.currentTimestamp
}

func fill(template, value string) string {
	return strings.Replace(template, "{}", strings.ReplaceAll(value, "'", "''"), 1)
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with ANSI defaults.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			types:            make(map[core.TypeKind]string),
			features:         map[Feature]bool{FeatureCTE: true, FeatureWindow: true},
			timestampLiteral: "'{}'",
			jsonLiteral:      "PARSE_JSON('{}')",
			currentTimestamp: "CURRENT_TIMESTAMP()",
		},
	}
}

// New creates a dialect builder from a DialectConfig.
// This is the preferred constructor for dialect packages.
func New(cfg *core.DialectConfig) *Builder {
	b := NewDialect(cfg.Name)
	b.dialect.Identifiers = cfg.Identifiers
	b.dialect.DefaultSchema = cfg.DefaultSchema
	for k, v := range cfg.Types {
		b.dialect.types[k] = v
	}
	b.dialect.features = map[Feature]bool{
		FeatureMerge:                 cfg.SupportsMerge,
		FeatureCTE:                   cfg.SupportsCTE,
		FeatureWindow:                cfg.SupportsWindow,
		FeaturePrimaryKeyNotEnforced: cfg.PrimaryKeyNotEnforced,
		FeatureDropCascade:           cfg.DropCascade,
		FeatureTruncate:              cfg.TruncateTable,
	}
	b.dialect.updateStyle = cfg.UpdateStyle
	b.dialect.unqualifiedSetTargets = cfg.UnqualifiedSetTargets
	if cfg.TimestampLiteral != "" {
		b.dialect.timestampLiteral = cfg.TimestampLiteral
	}
	if cfg.JSONLiteral != "" {
		b.dialect.jsonLiteral = cfg.JSONLiteral
	}
	if cfg.CurrentTimestamp != "" {
		b.dialect.currentTimestamp = cfg.CurrentTimestamp
	}
	return b
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// TypeName overrides the spelling of one semantic type.
func (b *Builder) TypeName(kind core.TypeKind, name string) *Builder {
	b.dialect.types[kind] = name
	return b
}

// Feature turns an optional feature on or off.
func (b *Builder) Feature(f Feature, on bool) *Builder {
	b.dialect.features[f] = on
	return b
}

// UpdateStyle sets how joined UPDATE statements are rendered.
func (b *Builder) UpdateStyle(style core.UpdateStyle, unqualifiedTargets bool) *Builder {
	b.dialect.updateStyle = style
	b.dialect.unqualifiedSetTargets = unqualifiedTargets
	return b
}

// Literals sets the timestamp, JSON and current-timestamp templates.
// Empty arguments keep the current value.
func (b *Builder) Literals(timestamp, json, current string) *Builder {
	if timestamp != "" {
		b.dialect.timestampLiteral = timestamp
	}
	if json != "" {
		b.dialect.jsonLiteral = json
	}
	if current != "" {
		b.dialect.currentTimestamp = current
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
