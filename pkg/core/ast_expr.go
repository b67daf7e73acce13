package core

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/milestone/pkg/token"
)

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	Table  string // optional table/alias qualifier, rendered unquoted
	Column string
}

func (*ColumnRef) exprNode() {}

// Col builds a column reference qualified by alias.
func Col(alias, column string) *ColumnRef {
	return &ColumnRef{Table: alias, Column: column}
}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for SQL literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
	LiteralTimestamp // rendered through the dialect timestamp template
	LiteralJSON      // rendered through the dialect JSON template
	LiteralRaw       // rendered verbatim (placeholder tokens)
)

// Literal represents a literal value.
type Literal struct {
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// String builds a string literal.
func String(s string) *Literal { return &Literal{Type: LiteralString, Value: s} }

// Int builds an integer literal.
func Int(n int64) *Literal { return &Literal{Type: LiteralNumber, Value: strconv.FormatInt(n, 10)} }

// Timestamp builds a timestamp literal.
func Timestamp(s string) *Literal { return &Literal{Type: LiteralTimestamp, Value: s} }

// JSON builds a JSON literal.
func JSON(s string) *Literal { return &Literal{Type: LiteralJSON, Value: s} }

// Raw builds a literal rendered verbatim.
func Raw(s string) *Literal { return &Literal{Type: LiteralRaw, Value: s} }

// Null is the NULL literal.
func Null() *Literal { return &Literal{Type: LiteralNull} }

// LiteralOf converts a Go value from configuration into a literal.
func LiteralOf(v any) *Literal {
	switch v := v.(type) {
	case nil:
		return Null()
	case string:
		return String(v)
	case bool:
		if v {
			return &Literal{Type: LiteralBool, Value: "TRUE"}
		}
		return &Literal{Type: LiteralBool, Value: "FALSE"}
	case int:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint64:
		return &Literal{Type: LiteralNumber, Value: strconv.FormatUint(v, 10)}
	case float32:
		return &Literal{Type: LiteralNumber, Value: strconv.FormatFloat(float64(v), 'f', -1, 32)}
	case float64:
		return &Literal{Type: LiteralNumber, Value: strconv.FormatFloat(v, 'f', -1, 64)}
	case fmt.Stringer:
		return String(v.String())
	default:
		return String(fmt.Sprint(v))
	}
}

// Star represents * or alias.*.
type Star struct {
	Table string
}

func (*Star) exprNode() {}

// CurrentTimestamp renders the dialect's current timestamp function.
type CurrentTimestamp struct{}

func (*CurrentTimestamp) exprNode() {}

// BinaryExpr represents a comparison or arithmetic expression.
type BinaryExpr struct {
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// Eq builds left = right.
func Eq(left, right Expr) *BinaryExpr { return &BinaryExpr{Left: left, Op: token.EQ, Right: right} }

// Ne builds left <> right.
func Ne(left, right Expr) *BinaryExpr { return &BinaryExpr{Left: left, Op: token.NE, Right: right} }

// AndExpr is a conjunction. Each term is parenthesized when there is more than one.
type AndExpr struct {
	Terms []Expr
}

func (*AndExpr) exprNode() {}

// And builds a conjunction, dropping nil terms. A single term is returned as is.
func And(terms ...Expr) Expr {
	kept := compact(terms)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &AndExpr{Terms: kept}
	}
}

// OrExpr is a disjunction. Each term is parenthesized when there is more than one.
type OrExpr struct {
	Terms []Expr
}

func (*OrExpr) exprNode() {}

// Or builds a disjunction, dropping nil terms. A single term is returned as is.
func Or(terms ...Expr) Expr {
	kept := compact(terms)
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &OrExpr{Terms: kept}
	}
}

func compact(terms []Expr) []Expr {
	kept := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return kept
}

// NotExpr renders NOT (expr).
type NotExpr struct {
	Expr Expr
}

func (*NotExpr) exprNode() {}

// Not negates expr.
func Not(expr Expr) *NotExpr { return &NotExpr{Expr: expr} }

// ExistsExpr renders EXISTS (select).
type ExistsExpr struct {
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// Exists builds EXISTS (select).
func Exists(sel *SelectStmt) *ExistsExpr { return &ExistsExpr{Select: sel} }

// InExpr renders left [NOT] IN (values) or left [NOT] IN (select).
type InExpr struct {
	Left   Expr
	Values []Expr
	Select *SelectStmt
	Not    bool
}

func (*InExpr) exprNode() {}

// IsNullExpr renders expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// FuncCall represents a function call.
type FuncCall struct {
	Name     string
	Args     []Expr
	Distinct bool
}

func (*FuncCall) exprNode() {}

// Func builds a function call.
func Func(name string, args ...Expr) *FuncCall { return &FuncCall{Name: name, Args: args} }

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// WhenClause is one WHEN ... THEN ... arm.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CaseExpr is a searched CASE expression.
type CaseExpr struct {
	Whens []WhenClause
	Else  Expr
}

func (*CaseExpr) exprNode() {}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// WindowExpr is fn OVER (PARTITION BY ... ORDER BY ...).
type WindowExpr struct {
	Func        *FuncCall
	PartitionBy []Expr
	OrderBy     []OrderItem
}

func (*WindowExpr) exprNode() {}
