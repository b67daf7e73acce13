package core

import (
	"fmt"
	"strings"
)

// TypeKind is a semantic column type, independent of any dialect.
type TypeKind int

// TypeKind constants.
const (
	TypeInteger TypeKind = iota
	TypeInt
	TypeBigInt
	TypeSmallInt
	TypeTinyInt
	TypeVarchar
	TypeChar
	TypeString
	TypeDouble
	TypeFloat
	TypeDecimal
	TypeBoolean
	TypeDate
	TypeTime
	TypeDatetime
	TypeTimestamp
	TypeJSON
)

var typeKindNames = map[TypeKind]string{
	TypeInteger:   "INTEGER",
	TypeInt:       "INT",
	TypeBigInt:    "BIGINT",
	TypeSmallInt:  "SMALLINT",
	TypeTinyInt:   "TINYINT",
	TypeVarchar:   "VARCHAR",
	TypeChar:      "CHAR",
	TypeString:    "STRING",
	TypeDouble:    "DOUBLE",
	TypeFloat:     "FLOAT",
	TypeDecimal:   "DECIMAL",
	TypeBoolean:   "BOOLEAN",
	TypeDate:      "DATE",
	TypeTime:      "TIME",
	TypeDatetime:  "DATETIME",
	TypeTimestamp: "TIMESTAMP",
	TypeJSON:      "JSON",
}

// String returns the ANSI name of the kind.
func (k TypeKind) String() string {
	if name, ok := typeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// ParseTypeKind resolves a type name such as "varchar" or "BIGINT".
func ParseTypeKind(name string) (TypeKind, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for k, n := range typeKindNames {
		if n == upper {
			return k, nil
		}
	}
	switch upper {
	case "TEXT":
		return TypeVarchar, nil
	case "NUMERIC":
		return TypeDecimal, nil
	case "BOOL":
		return TypeBoolean, nil
	case "REAL":
		return TypeFloat, nil
	}
	return 0, fmt.Errorf("unknown data type %q", name)
}

// DataType is a semantic type with optional length/precision and scale.
type DataType struct {
	Kind   TypeKind
	Length int // VARCHAR(Length), DECIMAL(Length,Scale); 0 means unset
	Scale  int
}

// Type returns a DataType of the given kind without parameters.
func Type(kind TypeKind) DataType {
	return DataType{Kind: kind}
}

// Varchar returns a VARCHAR of the given length (0 for unbounded).
func Varchar(length int) DataType {
	return DataType{Kind: TypeVarchar, Length: length}
}

// Decimal returns a DECIMAL(precision, scale).
func Decimal(precision, scale int) DataType {
	return DataType{Kind: TypeDecimal, Length: precision, Scale: scale}
}

// IsNumeric reports whether the type is an integer or decimal type.
func (t DataType) IsNumeric() bool {
	switch t.Kind {
	case TypeInteger, TypeInt, TypeBigInt, TypeSmallInt, TypeTinyInt, TypeDecimal, TypeDouble, TypeFloat:
		return true
	default:
		return false
	}
}

// IsTemporal reports whether the type is a date or time type.
func (t DataType) IsTemporal() bool {
	switch t.Kind {
	case TypeDate, TypeTime, TypeDatetime, TypeTimestamp:
		return true
	default:
		return false
	}
}

// IsOrderable reports whether values of the type can drive version comparison.
func (t DataType) IsOrderable() bool {
	return t.IsNumeric() || t.IsTemporal()
}
