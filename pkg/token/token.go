// Package token defines the operator and keyword kinds used by the SQL IR.
//
// The renderer in pkg/format maps each kind to its spelling; nodes in pkg/core
// reference kinds instead of raw strings so a typo cannot produce invalid SQL.
package token

import "fmt"

// TokenType identifies an operator or keyword.
//
//nolint:revive // token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // ALL_CAPS names follow SQL token conventions
const (
	ILLEGAL TokenType = iota

	// Arithmetic operators
	PLUS  // +
	MINUS // -

	// Comparison operators
	EQ // =
	NE // <>
	LT // <
	GT // >
	LE // <=
	GE // >=

	// Boolean connectives
	AND
	OR
	NOT

	// Predicates
	IN
	NOTIN
	EXISTS
	ISNULL
	ISNOTNULL

	// Ordering
	ASC
	DESC

	// Join kinds
	INNER
	LEFT
)

var tokenNames = map[TokenType]string{
	ILLEGAL:   "ILLEGAL",
	PLUS:      "+",
	MINUS:     "-",
	EQ:        "=",
	NE:        "<>",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	AND:       "AND",
	OR:        "OR",
	NOT:       "NOT",
	IN:        "IN",
	NOTIN:     "NOT IN",
	EXISTS:    "EXISTS",
	ISNULL:    "IS NULL",
	ISNOTNULL: "IS NOT NULL",
	ASC:       "ASC",
	DESC:      "DESC",
	INNER:     "INNER JOIN",
	LEFT:      "LEFT OUTER JOIN",
}

// String returns the SQL spelling of the token.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// IsArithmetic reports whether t renders without surrounding spaces.
func (t TokenType) IsArithmetic() bool {
	return t == PLUS || t == MINUS
}

// IsComparison reports whether t is a binary comparison operator.
func (t TokenType) IsComparison() bool {
	switch t {
	case EQ, NE, LT, GT, LE, GE:
		return true
	default:
		return false
	}
}

// Negate returns the comparison that is true exactly when t is false.
// Non-comparison tokens are returned unchanged.
func (t TokenType) Negate() TokenType {
	switch t {
	case EQ:
		return NE
	case NE:
		return EQ
	case LT:
		return GE
	case GE:
		return LT
	case GT:
		return LE
	case LE:
		return GT
	case IN:
		return NOTIN
	case NOTIN:
		return IN
	default:
		return t
	}
}
