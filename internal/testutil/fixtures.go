package testutil

import "github.com/leapstack-labs/milestone/pkg/core"

// StagingSchema is keyed on (id, name) and carries a digest. extra fields
// are appended after the business columns.
func StagingSchema(extra ...core.Field) core.Schema {
	s := core.NewSchema(
		core.Field{Name: "id", Type: core.Type(core.TypeInteger), Role: core.RolePrimaryKey},
		core.Field{Name: "name", Type: core.Varchar(64), Role: core.RolePrimaryKey},
		core.Field{Name: "amount", Type: core.Type(core.TypeDouble)},
		core.Field{Name: "biz_date", Type: core.Type(core.TypeDate)},
		core.Field{Name: "digest", Type: core.Varchar(32), Role: core.RoleDigest},
	)
	return s.Append(extra...)
}

// Datasets returns main and staging tables named "main" and "staging" over
// StagingSchema(extra...).
func Datasets(extra ...core.Field) core.Datasets {
	return core.Datasets{
		Main:    core.Dataset{Name: "main"},
		Staging: core.Dataset{Name: "staging", Schema: StagingSchema(extra...)},
	}
}
