package core

// Node is implemented by every IR node.
type Node interface {
	node()
}

// Expr is a scalar or boolean expression.
type Expr interface {
	Node
	exprNode()
}

// TableExpr is anything that can follow FROM or USING.
type TableExpr interface {
	Node
	tableNode()
}

// Statement is a complete SQL statement.
type Statement interface {
	Node
	stmtNode()
}

func (*ColumnRef) node() {}
func (*Literal) node() {}
func (*Star) node() {}
func (*CurrentTimestamp) node() {}
func (*BinaryExpr) node() {}
func (*AndExpr) node() {}
func (*OrExpr) node() {}
func (*NotExpr) node() {}
func (*ExistsExpr) node() {}
func (*InExpr) node() {}
func (*IsNullExpr) node() {}
func (*FuncCall) node() {}
func (*SubqueryExpr) node() {}
func (*CaseExpr) node() {}
func (*WindowExpr) node() {}

func (*TableRef) node() {}
func (*DerivedTable) node() {}
func (*JoinExpr) node() {}

func (*SelectStmt) node() {}
func (*InsertStmt) node() {}
func (*UpdateStmt) node() {}
func (*MergeStmt) node() {}
func (*DeleteStmt) node() {}
func (*CreateStmt) node() {}
func (*DropStmt) node() {}
func (*TruncateStmt) node() {}
