package format

import (
	"strconv"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/leapstack-labs/milestone/pkg/token"
)

func (p *Printer) formatExpr(expr core.Expr) {
	switch e := expr.(type) {
	case nil:
		return
	case *core.ColumnRef:
		if e.Table != "" {
			p.write(e.Table)
			p.write(".")
		}
		p.ident(e.Column)
	case *core.Literal:
		p.formatLiteral(e)
	case *core.Star:
		if e.Table != "" {
			p.write(e.Table)
			p.write(".")
		}
		p.write("*")
	case *core.CurrentTimestamp:
		p.write(p.dialect.CurrentTimestamp())
	case *core.BinaryExpr:
		p.formatExpr(e.Left)
		if e.Op.IsArithmetic() {
			p.write(e.Op.String())
		} else {
			p.space()
			p.write(e.Op.String())
			p.space()
		}
		p.formatExpr(e.Right)
	case *core.AndExpr:
		p.formatConnective(e.Terms, token.AND)
	case *core.OrExpr:
		p.formatConnective(e.Terms, token.OR)
	case *core.NotExpr:
		p.write(token.NOT.String())
		p.space()
		p.parenthesized(func() { p.formatExpr(e.Expr) })
	case *core.ExistsExpr:
		p.write(token.EXISTS.String())
		p.space()
		p.parenthesized(func() { p.formatSelect(e.Select) })
	case *core.InExpr:
		p.formatIn(e)
	case *core.IsNullExpr:
		p.formatExpr(e.Expr)
		p.space()
		if e.Not {
			p.write(token.ISNOTNULL.String())
		} else {
			p.write(token.ISNULL.String())
		}
	case *core.FuncCall:
		p.formatFunc(e)
	case *core.SubqueryExpr:
		p.parenthesized(func() { p.formatSelect(e.Select) })
	case *core.CaseExpr:
		p.formatCase(e)
	case *core.WindowExpr:
		p.formatWindow(e)
	}
}

func (p *Printer) formatLiteral(l *core.Literal) {
	switch l.Type {
	case core.LiteralString:
		p.write(p.dialect.StringLiteral(l.Value))
	case core.LiteralNull:
		p.write("NULL")
	case core.LiteralTimestamp:
		p.write(p.dialect.TimestampLiteral(l.Value))
	case core.LiteralJSON:
		p.write(p.dialect.JSONLiteral(l.Value))
	default:
		p.write(l.Value)
	}
}

// formatConnective prints each term in parentheses joined by op.
func (p *Printer) formatConnective(terms []core.Expr, op token.TokenType) {
	if len(terms) == 1 {
		p.formatExpr(terms[0])
		return
	}
	p.formatList(len(terms), func(i int) {
		p.parenthesized(func() { p.formatExpr(terms[i]) })
	}, " "+op.String()+" ")
}

func (p *Printer) formatIn(e *core.InExpr) {
	p.formatExpr(e.Left)
	p.space()
	if e.Not {
		p.write(token.NOTIN.String())
	} else {
		p.write(token.IN.String())
	}
	p.space()
	p.parenthesized(func() {
		if e.Select != nil {
			p.formatSelect(e.Select)
			return
		}
		p.formatList(len(e.Values), func(i int) { p.formatExpr(e.Values[i]) }, ",")
	})
}

func (p *Printer) formatFunc(f *core.FuncCall) {
	p.write(f.Name)
	p.parenthesized(func() {
		args := func() {
			p.formatList(len(f.Args), func(i int) { p.formatExpr(f.Args[i]) }, ",")
		}
		if f.Distinct {
			p.write("DISTINCT")
			p.parenthesized(args)
			return
		}
		args()
	})
}

func (p *Printer) formatCase(c *core.CaseExpr) {
	p.parenthesized(func() {
		p.write("CASE")
		for _, w := range c.Whens {
			p.write(" WHEN ")
			p.formatExpr(w.Condition)
			p.write(" THEN ")
			p.formatExpr(w.Result)
		}
		if c.Else != nil {
			p.write(" ELSE ")
			p.formatExpr(c.Else)
		}
		p.write(" END")
	})
}

func (p *Printer) formatWindow(w *core.WindowExpr) {
	p.require(dialect.FeatureWindow)
	p.formatFunc(w.Func)
	p.write(" OVER ")
	p.parenthesized(func() {
		sep := ""
		if len(w.PartitionBy) > 0 {
			p.write("PARTITION BY ")
			p.formatList(len(w.PartitionBy), func(i int) { p.formatExpr(w.PartitionBy[i]) }, ",")
			sep = " "
		}
		if len(w.OrderBy) > 0 {
			p.write(sep)
			p.write("ORDER BY ")
			p.formatOrderBy(w.OrderBy)
		}
	})
}

func (p *Printer) formatOrderBy(items []core.OrderItem) {
	p.formatList(len(items), func(i int) {
		p.formatExpr(items[i].Expr)
		p.space()
		if items[i].Desc {
			p.write(token.DESC.String())
		} else {
			p.write(token.ASC.String())
		}
	}, ",")
}

func (p *Printer) formatLimit(n int) {
	p.write(" LIMIT ")
	p.write(strconv.Itoa(n))
}
