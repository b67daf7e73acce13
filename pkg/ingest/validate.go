package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
)

// validate rejects schema/mode combinations that cannot be compiled. It runs
// on folded names, before any statement is built.
func (p *plan) validate(ds core.Datasets) error {
	if ds.Main.Name == "" {
		return core.Configf("main", "dataset name is required")
	}
	if ds.Staging.Name == "" {
		return core.Configf("staging", "dataset name is required")
	}
	s := ds.Staging.Schema
	if len(s.Fields) == 0 {
		return core.Configf("staging", "schema has no fields")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if len(ds.Main.Schema.Fields) > 0 {
		if err := ds.Main.Schema.Validate(); err != nil {
			return err
		}
	}
	for _, f := range ds.Staging.Filters {
		if _, ok := s.Field(f.Field); !ok {
			return core.Configf(f.Field, "staging filter references an unknown field")
		}
		if _, ok := filterOps[f.Op]; !ok {
			return core.Configf(f.Field, "unknown filter operator %q", f.Op)
		}
	}

	m := p.mode
	hasPK := len(s.PrimaryKeys()) > 0
	_, hasDigest := s.FieldByRole(core.RoleDigest)
	_, hasSplit := s.FieldByRole(core.RoleDataSplit)
	snapshot := m.Kind() == core.ModeNontemporalSnapshot || m.Kind() == core.ModeUnitemporalSnapshot

	if err := p.validateVersioning(s, hasPK, snapshot, hasSplit); err != nil {
		return err
	}
	if hasSplit && snapshot {
		return core.Configf("data_split", "data splits are not supported by %s", m.Kind())
	}

	switch mode := m.(type) {
	case core.NontemporalSnapshot:
		return validateAuditing(s, mode.Auditing)

	case core.NontemporalDelta:
		if !hasPK {
			return core.Configf("primary_key", "%s requires a primary key", m.Kind())
		}
		v := mode.VersionBy
		if !hasDigest && (v.Kind == core.NoVersioning || v.Resolver == core.ResolveDigest) {
			return core.Configf("digest", "%s requires a digest field", m.Kind())
		}
		if err := validateDeleteIndicator(s, mode.DeleteIndicator); err != nil {
			return err
		}
		return validateAuditing(s, mode.Auditing)

	case core.AppendOnly:
		if (mode.FilterExistingRecords || mode.VersionBy.Kind != core.NoVersioning) && !hasDigest {
			return core.Configf("digest", "filtering existing records requires a digest field")
		}
		return validateAuditing(s, mode.Auditing)

	case core.UnitemporalDelta:
		if !hasPK {
			return core.Configf("primary_key", "%s requires a primary key", m.Kind())
		}
		if !hasDigest {
			return core.Configf("digest", "%s requires a digest field", m.Kind())
		}
		if err := validateDeleteIndicator(s, mode.DeleteIndicator); err != nil {
			return err
		}
		return validateTransaction(s, mode.Transaction)

	case core.UnitemporalSnapshot:
		if !hasDigest {
			return core.Configf("digest", "%s requires a digest field", m.Kind())
		}
		if err := validatePartitioning(s, mode.Partitioning); err != nil {
			return err
		}
		return validateTransaction(s, mode.Transaction)

	case core.Bitemporal:
		if !hasPK {
			return core.Configf("primary_key", "%s requires a primary key", m.Kind())
		}
		if !hasDigest {
			return core.Configf("digest", "%s requires a digest field", m.Kind())
		}
		if _, ok := s.FieldByRole(core.RoleValidityFrom); !ok {
			return core.Configf("validity_from", "%s requires a staging field with role validity_from", m.Kind())
		}
		_, hasThrough := s.FieldByRole(core.RoleValidityThrough)
		switch {
		case mode.Validity.Kind == core.ValidFromThrough && !hasThrough:
			return core.Configf("validity_through", "from_through validity requires a staging field with role validity_through")
		case mode.Validity.Kind == core.ValidFromOnly && hasThrough:
			return core.Configf("validity_through", "from_only validity takes no validity_through field")
		}
		if err := validateDeleteIndicator(s, mode.DeleteIndicator); err != nil {
			return err
		}
		return validateTransaction(s, mode.Transaction)

	default:
		return core.Configf("mode", "unsupported ingest mode %T", m)
	}
}

func (p *plan) validateVersioning(s core.Schema, hasPK, snapshot, hasSplit bool) error {
	v := p.mode.Versioning()
	if v.Kind == core.NoVersioning {
		return nil
	}
	if v.Field == "" {
		return core.Configf("versioning", "%s versioning requires a version field", v.Kind)
	}
	if _, ok := s.Field(v.Field); !ok {
		return core.Configf(v.Field, "version field is not in the staging schema")
	}
	if !hasPK {
		return core.Configf("versioning", "versioning requires a primary key")
	}
	if v.Kind == core.AllVersion {
		if snapshot {
			return core.Configf("versioning", "all_version is not supported by %s", p.mode.Kind())
		}
		if hasSplit {
			return core.Configf("versioning", "all_version derives its own data splits; remove the data_split field")
		}
	}
	return nil
}

func validateAuditing(s core.Schema, a core.Auditing) error {
	for _, name := range []string{a.DateTimeField, a.BatchIDField} {
		if name == "" {
			continue
		}
		if _, ok := s.Field(name); ok {
			return core.Configf(name, "audit field collides with a staging field")
		}
	}
	if a.DateTimeField != "" && a.DateTimeField == a.BatchIDField {
		return core.Configf(a.DateTimeField, "audit fields must differ")
	}
	return nil
}

func validateTransaction(s core.Schema, t core.Transaction) error {
	t = t.WithDefaults()
	var cols []string
	if t.UsesBatchID() {
		cols = append(cols, t.BatchIDIn, t.BatchIDOut)
	}
	if t.UsesBatchTime() {
		cols = append(cols, t.BatchTimeIn, t.BatchTimeOut)
	}
	for _, c := range cols {
		if _, ok := s.Field(c); ok {
			return core.Configf(c, "transaction column collides with a staging field")
		}
	}
	return nil
}

func validateDeleteIndicator(s core.Schema, di *core.DeleteIndicator) error {
	_, hasField := s.FieldByRole(core.RoleDeleteIndicator)
	switch {
	case di == nil && hasField:
		return core.Configf("delete_indicator", "staging has a delete_indicator field but the mode sets no delete values")
	case di == nil:
		return nil
	case !hasField:
		return core.Configf("delete_indicator", "delete values require a staging field with role delete_indicator")
	case len(di.Values) == 0:
		return core.Configf("delete_indicator", "at least one delete value is required")
	}
	return nil
}

func validatePartitioning(s core.Schema, part *core.Partitioning) error {
	if part == nil {
		return nil
	}
	if len(part.Fields) == 0 {
		return core.Configf("partition", "partitioning requires at least one field")
	}
	known := make(map[string]bool, len(part.Fields))
	for _, f := range part.Fields {
		if _, ok := s.Field(f); !ok {
			return core.Configf(f, "partition field is not in the staging schema")
		}
		known[f] = true
	}
	if len(part.Values) > 0 && len(part.Specs) > 0 {
		return core.Configf("partition", "set either partition values or partition specs, not both")
	}
	for f, values := range part.Values {
		if !known[f] {
			return core.Configf(f, "partition values name a field that is not a partition field")
		}
		if len(values) == 0 {
			return core.Configf(f, "partition values must not be empty")
		}
	}
	for _, spec := range part.Specs {
		if len(spec) != len(part.Fields) {
			return core.Configf("partition", "each partition spec must set every partition field")
		}
		for f := range spec {
			if !known[f] {
				return core.Configf(f, "partition spec names a field that is not a partition field")
			}
		}
	}
	return nil
}
