package format

import "github.com/leapstack-labs/milestone/pkg/core"

// references reports whether expr reads a column qualified by alias.
func references(expr core.Expr, alias string) bool {
	if alias == "" {
		return false
	}
	found := false
	var visit func(e core.Expr)
	visit = func(e core.Expr) {
		if found || e == nil {
			return
		}
		switch e := e.(type) {
		case *core.ColumnRef:
			found = e.Table == alias
		case *core.Star:
			found = e.Table == alias
		case *core.BinaryExpr:
			visit(e.Left)
			visit(e.Right)
		case *core.AndExpr:
			for _, t := range e.Terms {
				visit(t)
			}
		case *core.OrExpr:
			for _, t := range e.Terms {
				visit(t)
			}
		case *core.NotExpr:
			visit(e.Expr)
		case *core.IsNullExpr:
			visit(e.Expr)
		case *core.InExpr:
			visit(e.Left)
			for _, v := range e.Values {
				visit(v)
			}
		case *core.FuncCall:
			for _, a := range e.Args {
				visit(a)
			}
		case *core.CaseExpr:
			for _, w := range e.Whens {
				visit(w.Condition)
				visit(w.Result)
			}
			visit(e.Else)
		case *core.WindowExpr:
			visit(e.Func)
			for _, x := range e.PartitionBy {
				visit(x)
			}
		}
	}
	visit(expr)
	return found
}
