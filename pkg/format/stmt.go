package format

import (
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
)

func (p *Printer) formatStatement(stmt core.Statement) {
	switch s := stmt.(type) {
	case *core.SelectStmt:
		p.formatSelect(s)
	case *core.InsertStmt:
		p.formatInsert(s)
	case *core.UpdateStmt:
		p.formatUpdate(s)
	case *core.MergeStmt:
		p.formatMerge(s)
	case *core.DeleteStmt:
		p.write("DELETE FROM ")
		p.formatTableRef(s.Table)
		p.formatWhere(s.Where)
	case *core.TruncateStmt:
		p.require(dialect.FeatureTruncate)
		p.write("TRUNCATE TABLE ")
		p.write(p.dialect.TableName(s.Table))
	case *core.CreateStmt:
		p.formatCreate(s)
	case *core.DropStmt:
		p.write("DROP TABLE ")
		if s.IfExists {
			p.write("IF EXISTS ")
		}
		p.write(p.dialect.TableName(s.Table))
		if p.dialect.Supports(dialect.FeatureDropCascade) {
			p.write(" CASCADE")
		}
	}
}

// ---------- SELECT ----------

func (p *Printer) formatSelect(s *core.SelectStmt) {
	if s == nil {
		return
	}
	if len(s.With) > 0 {
		p.require(dialect.FeatureCTE)
		p.write("WITH ")
		p.formatList(len(s.With), func(i int) {
			p.write(s.With[i].Name)
			p.write(" as ")
			p.parenthesized(func() { p.formatSelect(s.With[i].Select) })
		}, ", ")
		p.space()
	}

	p.write("SELECT ")
	if s.Distinct {
		p.write("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		p.write("*")
	} else {
		p.formatList(len(s.Columns), func(i int) { p.formatSelectItem(s.Columns[i]) }, ",")
	}
	if s.From != nil {
		p.write(" FROM ")
		p.formatTableExpr(s.From)
	}
	p.formatWhere(s.Where)
	if len(s.GroupBy) > 0 {
		p.write(" GROUP BY ")
		p.formatList(len(s.GroupBy), func(i int) { p.formatExpr(s.GroupBy[i]) }, ", ")
	}
	if s.Having != nil {
		p.write(" HAVING ")
		p.formatExpr(s.Having)
	}
	if len(s.OrderBy) > 0 {
		p.write(" ORDER BY ")
		p.formatOrderBy(s.OrderBy)
	}
	if s.Limit > 0 {
		p.formatLimit(s.Limit)
	}
}

func (p *Printer) formatSelectItem(item core.SelectItem) {
	p.formatExpr(item.Expr)
	if item.Alias != "" {
		p.write(" as ")
		p.ident(item.Alias)
	}
}

func (p *Printer) formatWhere(where core.Expr) {
	if where == nil {
		return
	}
	p.write(" WHERE ")
	p.formatExpr(where)
}

// ---------- Tables ----------

func (p *Printer) formatTableExpr(t core.TableExpr) {
	switch t := t.(type) {
	case *core.TableRef:
		p.formatTableRef(t)
	case *core.DerivedTable:
		p.parenthesized(func() { p.formatSelect(t.Select) })
		p.write(" as ")
		p.write(t.Alias)
	case *core.JoinExpr:
		p.formatTableExpr(t.Left)
		p.space()
		p.write(t.Kind.String())
		p.space()
		p.formatTableExpr(t.Right)
		if t.On != nil {
			p.write(" ON ")
			p.formatExpr(t.On)
		}
	}
}

func (p *Printer) formatTableRef(t *core.TableRef) {
	p.write(p.dialect.TableName(t))
	if t.Alias != "" {
		p.write(" as ")
		p.write(t.Alias)
	}
}

func tableAlias(t core.TableExpr) string {
	switch t := t.(type) {
	case *core.TableRef:
		return t.Alias
	case *core.DerivedTable:
		return t.Alias
	default:
		return ""
	}
}

// ---------- INSERT ----------

func (p *Printer) formatInsert(s *core.InsertStmt) {
	p.write("INSERT INTO ")
	p.write(p.dialect.TableName(s.Table))
	p.space()
	if len(s.Columns) > 0 {
		p.formatColumnList(s.Columns)
		p.space()
	}
	p.parenthesized(func() { p.formatSelect(s.Select) })
}

func (p *Printer) formatColumnList(cols []string) {
	p.parenthesized(func() {
		p.formatList(len(cols), func(i int) { p.ident(cols[i]) }, ", ")
	})
}

// ---------- UPDATE ----------

func (p *Printer) formatUpdate(s *core.UpdateStmt) {
	p.write("UPDATE ")
	p.formatTableRef(s.Table)

	if s.Source == nil {
		p.write(" SET ")
		p.formatAssignments(s.Table.Alias, s.Set, p.dialect.UnqualifiedSetTargets())
		p.formatWhere(s.Where)
		return
	}

	switch p.dialect.UpdateStyle() {
	case core.UpdateJoin:
		p.write(" INNER JOIN ")
		p.formatTableExpr(s.Source)
		p.write(" ON ")
		p.formatExpr(s.Match)
		p.write(" SET ")
		p.formatAssignments(s.Table.Alias, s.Set, p.dialect.UnqualifiedSetTargets())
		p.formatWhere(s.Where)
	case core.UpdateFrom:
		p.write(" SET ")
		p.formatAssignments(s.Table.Alias, s.Set, p.dialect.UnqualifiedSetTargets())
		p.write(" FROM ")
		p.formatTableExpr(s.Source)
		p.formatWhere(core.And(s.Match, s.Where))
	default:
		p.formatCorrelatedUpdate(s)
	}
}

// formatCorrelatedUpdate renders values that read the source as scalar
// subqueries and guards the update with EXISTS over the same source.
func (p *Printer) formatCorrelatedUpdate(s *core.UpdateStmt) {
	source := tableAlias(s.Source)
	set := make([]core.Assignment, len(s.Set))
	for i, a := range s.Set {
		set[i] = a
		if references(a.Value, source) {
			set[i].Value = &core.SubqueryExpr{Select: &core.SelectStmt{
				Columns: core.Items(a.Value),
				From:    s.Source,
				Where:   s.Match,
			}}
		}
	}
	p.write(" SET ")
	p.formatAssignments(s.Table.Alias, set, p.dialect.UnqualifiedSetTargets())
	guard := core.Exists(&core.SelectStmt{From: s.Source, Where: s.Match})
	p.formatWhere(core.And(guard, s.Where))
}

func (p *Printer) formatAssignments(alias string, set []core.Assignment, unqualified bool) {
	p.formatList(len(set), func(i int) {
		if alias != "" && !unqualified {
			p.write(alias)
			p.write(".")
		}
		p.ident(set[i].Column)
		p.write(" = ")
		p.formatExpr(set[i].Value)
	}, ",")
}

// ---------- MERGE ----------

func (p *Printer) formatMerge(s *core.MergeStmt) {
	p.require(dialect.FeatureMerge)
	p.write("MERGE INTO ")
	p.formatTableRef(s.Table)
	p.write(" USING ")
	p.formatTableExpr(s.Source)
	p.write(" ON ")
	p.formatExpr(s.On)
	if m := s.Matched; m != nil {
		p.write(" WHEN MATCHED")
		if m.Condition != nil {
			p.write(" AND ")
			p.formatExpr(m.Condition)
		}
		p.write(" THEN UPDATE SET ")
		p.formatAssignments(s.Table.Alias, m.Set, false)
	}
	if n := s.NotMatched; n != nil {
		p.write(" WHEN NOT MATCHED")
		if n.Condition != nil {
			p.write(" AND ")
			p.formatExpr(n.Condition)
		}
		p.write(" THEN INSERT ")
		p.formatColumnList(n.Columns)
		p.write(" VALUES ")
		p.parenthesized(func() {
			p.formatList(len(n.Values), func(i int) { p.formatExpr(n.Values[i]) }, ",")
		})
	}
}

// ---------- DDL ----------

func (p *Printer) formatCreate(s *core.CreateStmt) {
	p.write("CREATE TABLE ")
	if s.IfNotExists {
		p.write("IF NOT EXISTS ")
	}
	p.write(p.dialect.TableName(s.Table))
	p.parenthesized(func() {
		p.formatList(len(s.Fields), func(i int) {
			f := s.Fields[i]
			p.ident(f.Name)
			p.space()
			p.write(p.dialect.TypeName(f.Type))
			if f.NotNull || f.IsPrimaryKey() {
				p.write(" NOT NULL")
			}
			if f.Unique {
				p.write(" UNIQUE")
			}
		}, ",")

		var pks []string
		for _, f := range s.Fields {
			if f.IsPrimaryKey() {
				pks = append(pks, f.Name)
			}
		}
		if len(pks) == 0 {
			return
		}
		p.write(",PRIMARY KEY ")
		p.formatColumnList(pks)
		if p.dialect.Supports(dialect.FeaturePrimaryKeyNotEnforced) {
			p.write(" NOT ENFORCED")
		}
	})
}
