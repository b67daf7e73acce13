package core

import "github.com/leapstack-labs/milestone/pkg/token"

// ---------- Table Expressions ----------

// TableRef is a physical table. Qualified names are quoted part by part; an
// unqualified name is rendered bare.
type TableRef struct {
	Database string
	Group    string
	Name     string
	Alias    string
}

func (*TableRef) tableNode() {}

// Qualified reports whether the reference carries a database or group.
func (t *TableRef) Qualified() bool {
	return t.Database != "" || t.Group != ""
}

// WithAlias returns a copy of the reference using alias.
func (t *TableRef) WithAlias(alias string) *TableRef {
	c := *t
	c.Alias = alias
	return &c
}

// DerivedTable is (SELECT ...) as alias.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

func (*DerivedTable) tableNode() {}

// JoinExpr joins two table expressions. Kind is token.INNER or token.LEFT.
type JoinExpr struct {
	Left  TableExpr
	Right TableExpr
	Kind  token.TokenType
	On    Expr
}

func (*JoinExpr) tableNode() {}
