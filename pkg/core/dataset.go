package core

import (
	"fmt"
	"strings"
)

// Dataset is a table bound to a schema and a physical location.
type Dataset struct {
	Database string // catalog / project
	Group    string // schema / dataset
	Name     string
	Alias    string
	Schema   Schema
	Filters  []Filter // staging only: restricts every read of the dataset
}

// QualifiedName returns database.group.name, skipping empty parts.
func (d Dataset) QualifiedName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Database, d.Group, d.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Ref returns an IR table reference for the dataset using alias.
func (d Dataset) Ref(alias string) *TableRef {
	return &TableRef{Database: d.Database, Group: d.Group, Name: d.Name, Alias: alias}
}

// FilterOp is a staging filter comparison.
type FilterOp string

// FilterOp constants.
const (
	FilterGT  FilterOp = "GT"
	FilterGTE FilterOp = "GTE"
	FilterLT  FilterOp = "LT"
	FilterLTE FilterOp = "LTE"
	FilterEQ  FilterOp = "EQ"
)

// ParseFilterOp resolves a filter operator name.
func ParseFilterOp(s string) (FilterOp, error) {
	op := FilterOp(strings.ToUpper(strings.TrimSpace(s)))
	switch op {
	case FilterGT, FilterGTE, FilterLT, FilterLTE, FilterEQ:
		return op, nil
	default:
		return "", fmt.Errorf("unknown filter operator %q", s)
	}
}

// Filter restricts a staging read to rows where Field Op Value holds.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Datasets groups the tables a compilation touches. Temp and
// TempWithDeleteIndicator are synthesized when left empty.
type Datasets struct {
	Main                    Dataset
	Staging                 Dataset
	Metadata                Dataset
	Temp                    Dataset
	TempWithDeleteIndicator Dataset
}

// DataSplitRange is an inclusive range of data_split values.
type DataSplitRange struct {
	Lower int64 `json:"lower" yaml:"lower"`
	Upper int64 `json:"upper" yaml:"upper"`
}

// Contains reports whether v lies inside the range.
func (r DataSplitRange) Contains(v int64) bool {
	return v >= r.Lower && v <= r.Upper
}

// String renders the range as [lower, upper].
func (r DataSplitRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Lower, r.Upper)
}
