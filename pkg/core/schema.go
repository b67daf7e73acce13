package core

import (
	"fmt"
	"strings"
)

// FieldRole tags the part a column plays in milestoning.
type FieldRole int

// FieldRole constants.
const (
	RolePlain FieldRole = iota
	RolePrimaryKey
	RoleDigest
	RoleVersion
	RoleBatchIDIn
	RoleBatchIDOut
	RoleBatchTimeIn
	RoleBatchTimeOut
	RoleValidityFrom
	RoleValidityThrough
	RoleDeleteIndicator
	RoleDataSplit
	RolePartition
)

var roleNames = map[FieldRole]string{
	RolePlain:           "plain",
	RolePrimaryKey:      "primary_key",
	RoleDigest:          "digest",
	RoleVersion:         "version",
	RoleBatchIDIn:       "batch_id_in",
	RoleBatchIDOut:      "batch_id_out",
	RoleBatchTimeIn:     "batch_time_in",
	RoleBatchTimeOut:    "batch_time_out",
	RoleValidityFrom:    "validity_from",
	RoleValidityThrough: "validity_through",
	RoleDeleteIndicator: "delete_indicator",
	RoleDataSplit:       "data_split",
	RolePartition:       "partition",
}

// String returns the role name used in job files.
func (r FieldRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("FieldRole(%d)", int(r))
}

// ParseFieldRole resolves a role name; the empty string is RolePlain.
func ParseFieldRole(name string) (FieldRole, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return RolePlain, nil
	}
	for r, rn := range roleNames {
		if rn == n {
			return r, nil
		}
	}
	return RolePlain, fmt.Errorf("unknown field role %q", name)
}

// IsTechnical reports whether at most one field may carry the role.
func (r FieldRole) IsTechnical() bool {
	return r != RolePlain && r != RolePrimaryKey && r != RolePartition
}

// Field is a typed column descriptor.
type Field struct {
	Name       string
	Type       DataType
	Role       FieldRole
	PrimaryKey bool // part of the primary key without carrying RolePrimaryKey (e.g. batch_id_in on main)
	NotNull    bool
	Unique     bool
}

// IsPrimaryKey reports whether the field belongs to the primary key.
func (f Field) IsPrimaryKey() bool {
	return f.Role == RolePrimaryKey || f.PrimaryKey
}

// Schema is an ordered set of fields.
type Schema struct {
	Fields []Field
}

// NewSchema builds a schema from fields.
func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// Field returns the field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldByRole returns the first field carrying role.
func (s Schema) FieldByRole(role FieldRole) (Field, bool) {
	for _, f := range s.Fields {
		if f.Role == role {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKeys returns the primary key fields in schema order.
func (s Schema) PrimaryKeys() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.IsPrimaryKey() {
			out = append(out, f)
		}
	}
	return out
}

// PrimaryKeyNames returns the names of PrimaryKeys.
func (s Schema) PrimaryKeyNames() []string {
	pks := s.PrimaryKeys()
	out := make([]string, len(pks))
	for i, f := range pks {
		out[i] = f.Name
	}
	return out
}

// Names returns every field name in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Without returns a copy of the schema minus the fields carrying any of roles.
func (s Schema) Without(roles ...FieldRole) Schema {
	out := Schema{Fields: make([]Field, 0, len(s.Fields))}
outer:
	for _, f := range s.Fields {
		for _, r := range roles {
			if f.Role == r {
				continue outer
			}
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

// Append returns a copy of the schema with fields added at the end.
func (s Schema) Append(fields ...Field) Schema {
	out := Schema{Fields: make([]Field, 0, len(s.Fields)+len(fields))}
	out.Fields = append(out.Fields, s.Fields...)
	out.Fields = append(out.Fields, fields...)
	return out
}

// Validate checks the structural invariants of a schema: unique names and at
// most one field per technical role.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	roles := make(map[FieldRole]string)
	for _, f := range s.Fields {
		if f.Name == "" {
			return &ConfigError{Field: "schema", Reason: "field name must not be empty"}
		}
		if seen[f.Name] {
			return &ConfigError{Field: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = true
		if f.Role.IsTechnical() {
			if other, ok := roles[f.Role]; ok {
				return &ConfigError{Field: f.Name, Reason: fmt.Sprintf("role %s already assigned to %q", f.Role, other)}
			}
			roles[f.Role] = f.Name
		}
	}
	return nil
}
