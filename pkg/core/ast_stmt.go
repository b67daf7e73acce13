package core

// ---------- Statement Types ----------

// SelectItem is one projected expression.
type SelectItem struct {
	Expr  Expr
	Alias string // quoted when rendered
}

// CTE is a named subquery in a WITH clause.
type CTE struct {
	Name   string
	Select *SelectStmt
}

// SelectStmt is a SELECT query. An empty Columns list renders as *.
type SelectStmt struct {
	With     []CTE
	Distinct bool
	Columns  []SelectItem
	From     TableExpr
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Limit    int
}

func (*SelectStmt) stmtNode() {}

// Items wraps expressions as unaliased select items.
func Items(exprs ...Expr) []SelectItem {
	out := make([]SelectItem, len(exprs))
	for i, e := range exprs {
		out[i] = SelectItem{Expr: e}
	}
	return out
}

// InsertStmt is INSERT INTO table (columns) (select).
type InsertStmt struct {
	Table   *TableRef
	Columns []string
	Select  *SelectStmt
}

func (*InsertStmt) stmtNode() {}

// Assignment is one SET entry.
type Assignment struct {
	Column string
	Value  Expr
}

// UpdateStmt updates Table. When Source is set the statement is a joined
// update whose new values may reference the source alias and whose rows are
// restricted to those matching Match; the dialect picks the rendering.
type UpdateStmt struct {
	Table  *TableRef
	Set    []Assignment
	Source TableExpr
	Match  Expr
	Where  Expr
}

func (*UpdateStmt) stmtNode() {}

// MergeUpdate is the WHEN MATCHED [AND cond] THEN UPDATE SET arm.
type MergeUpdate struct {
	Condition Expr
	Set       []Assignment
}

// MergeInsert is the WHEN NOT MATCHED [AND cond] THEN INSERT arm.
type MergeInsert struct {
	Condition Expr
	Columns   []string
	Values    []Expr
}

// MergeStmt is MERGE INTO target USING source ON cond.
type MergeStmt struct {
	Table      *TableRef
	Source     TableExpr
	On         Expr
	Matched    *MergeUpdate
	NotMatched *MergeInsert
}

func (*MergeStmt) stmtNode() {}

// DeleteStmt is DELETE FROM table [WHERE cond].
type DeleteStmt struct {
	Table *TableRef
	Where Expr
}

func (*DeleteStmt) stmtNode() {}

// CreateStmt is CREATE TABLE. Primary key and uniqueness come from the fields.
type CreateStmt struct {
	Table       *TableRef
	Fields      []Field
	IfNotExists bool
}

func (*CreateStmt) stmtNode() {}

// DropStmt is DROP TABLE.
type DropStmt struct {
	Table    *TableRef
	IfExists bool
}

func (*DropStmt) stmtNode() {}

// TruncateStmt is TRUNCATE TABLE.
type TruncateStmt struct {
	Table *TableRef
}

func (*TruncateStmt) stmtNode() {}
