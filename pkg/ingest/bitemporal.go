package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/token"
)

func (p *plan) bitemporal() []core.Statement {
	if p.opts.EmptyBatch {
		return nil
	}
	if p.fromOnly() {
		return p.bitemporalFromOnly()
	}
	return p.bitemporalFromThrough()
}

// validityMatch pairs a main row with the staging row for the same valid-from.
func (p *plan) validityMatch(sink, stage string) core.Expr {
	return core.Eq(core.Col(sink, p.validity.FromTarget), core.Col(stage, p.fromSrc))
}

// ---------- From / through ----------

// bitemporalFromThrough milestones transaction time per key and valid-from,
// taking validity ranges from staging as given.
func (p *plan) bitemporalFromThrough() []core.Statement {
	match := core.And(keyMatch(p.pks, sinkAlias, stageAlias), p.validityMatch(sinkAlias, stageAlias))

	closeRows := &core.UpdateStmt{
		Table: p.mainRef(sinkAlias),
		Set:   p.closeSet(),
		Where: core.And(
			p.open(sinkAlias),
			core.Exists(&core.SelectStmt{
				From:  p.sourceRef(),
				Where: core.And(match, core.Or(p.changed(sinkAlias, stageAlias), p.deleted(stageAlias)), p.sourceFilter()),
			}),
		),
	}

	names, values := p.temporalColumns(stageAlias)
	names = append(names, p.validity.FromTarget, p.validity.ThroughTarget)
	values = append(values, core.Col(stageAlias, p.fromSrc), core.Col(stageAlias, p.thruSrc))
	current := core.And(p.open(sinkAlias), p.unchanged(sinkAlias, stageAlias), match)
	openRows := &core.InsertStmt{
		Table:   p.mainRef(""),
		Columns: names,
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From:    p.sourceRef(),
			Where:   core.And(p.sourceFilter(), p.live(stageAlias), core.Not(core.Exists(p.mainMatching(current)))),
		},
	}
	return []core.Statement{closeRows, openRows}
}

// ---------- From only ----------

// bitemporalFromOnly derives valid-through from the next valid-from of the
// same key across staging and the open main rows. New versions are staged in
// the temp table, the rows they replace are closed, and the temp table is
// copied into main. Deletes then run the same cycle through the delete
// indicator temp table, stitching the neighbours of a deleted range together.
// Under FilterDuplicates staging rows whose digest is already open in main
// are dropped first.
func (p *plan) bitemporalFromOnly() []core.Statement {
	tempAlias := p.temp.Name
	var stmts []core.Statement
	if p.noDup != nil {
		stmts = append(stmts, p.stageToNoDup())
	}
	stmts = append(stmts,
		p.stageToTemp(),
		p.mainToTemp(),
		p.closeReplaced(p.temp, tempAlias),
		&core.InsertStmt{
			Table:   p.mainRef(""),
			Columns: p.main.Schema.Names(),
			Select: &core.SelectStmt{
				Columns: core.Items(columns(tempAlias, p.main.Schema.Names())...),
				From:    p.temp.Ref(tempAlias),
			},
		},
		&core.DeleteStmt{Table: p.temp.Ref(tempAlias)},
	)

	if p.deleteField != "" {
		delAlias := p.tempDelete.Name
		stmts = append(stmts,
			p.mainToTempForDeletion(),
			p.closeReplaced(p.tempDelete, delAlias),
			p.tempToMainForDeletion(),
			&core.DeleteStmt{Table: p.tempDelete.Ref(delAlias)},
		)
	}
	if p.noDup != nil {
		stmts = append(stmts, &core.DeleteStmt{Table: p.noDup.Ref(p.noDup.Name)})
	}
	return stmts
}

// stageToNoDup copies the source rows of this batch whose digest is not open
// in main for the same key. Delete rows are always copied.
func (p *plan) stageToNoDup() core.Statement {
	cols := p.source().Schema.Names()
	current := &core.SelectStmt{
		From: p.mainRef(sinkAlias),
		Where: core.And(
			keyMatch(p.pks, sinkAlias, stageAlias),
			core.Eq(core.Col(sinkAlias, p.digest), core.Col(stageAlias, p.digest)),
			p.open(sinkAlias),
		),
	}
	return &core.InsertStmt{
		Table:   p.noDup.Ref(""),
		Columns: cols,
		Select: &core.SelectStmt{
			Columns: core.Items(columns(stageAlias, cols)...),
			From:    p.sourceRef(),
			Where:   core.And(p.sourceFilter(), core.Or(core.Not(core.Exists(current)), p.deleted(stageAlias))),
		},
	}
}

// milestonedRef reads the from-only input aliased stage.
func (p *plan) milestonedRef() *core.TableRef {
	return p.milestoned().Ref(stageAlias)
}

func (p *plan) liveStaging() core.Expr {
	return core.And(p.sourceFilter(), p.live(stageAlias))
}

// stagedStarts selects key and valid-from of the live staging rows.
func (p *plan) stagedStarts() *core.SelectStmt {
	return &core.SelectStmt{
		Columns: append(core.Items(columns(stageAlias, p.pks)...),
			core.SelectItem{Expr: core.Col(stageAlias, p.fromSrc), Alias: p.n.startDate}),
		From:  p.milestonedRef(),
		Where: p.liveStaging(),
	}
}

func (p *plan) keysAnd(alias string, extra ...core.SelectItem) []core.SelectItem {
	return append(core.Items(columns(alias, p.pks)...), extra...)
}

func (p *plan) groupKeys(alias string, extra ...core.Expr) []core.Expr {
	return append(columns(alias, p.pks), extra...)
}

// stageToTemp stages each live staging row with valid-through set to the
// earliest later valid-from of its key, in staging or in open main rows.
func (p *plan) stageToTemp() core.Statement {
	x, y := xAlias, yAlias
	start := func(a string) *core.ColumnRef { return core.Col(a, p.n.startDate) }
	end := func(a string) *core.ColumnRef { return core.Col(a, p.n.endDate) }

	openStarts := &core.SelectStmt{
		Columns: p.keysAnd(sinkAlias, core.SelectItem{Expr: core.Col(sinkAlias, p.validity.FromTarget), Alias: p.n.startDate}),
		From:    p.mainRef(sinkAlias),
		Where:   p.open(sinkAlias),
	}
	nextInMain := &core.SelectStmt{
		Columns: p.keysAnd(x,
			core.SelectItem{Expr: start(x)},
			core.SelectItem{Expr: core.Func("COALESCE", core.Func("MIN", start(y)), core.Timestamp(MaxTimestamp)), Alias: p.n.endDate}),
		From: &core.JoinExpr{
			Left:  &core.DerivedTable{Select: p.stagedStarts(), Alias: x},
			Right: &core.DerivedTable{Select: openStarts, Alias: y},
			Kind:  token.LEFT,
			On:    core.And(keyMatch(p.pks, x, y), compare(start(x), token.LT, start(y))),
		},
		GroupBy: p.groupKeys(x, start(x)),
	}
	nextOverall := &core.SelectStmt{
		Columns: p.keysAnd(x,
			core.SelectItem{Expr: start(x)},
			core.SelectItem{Expr: core.Func("COALESCE", core.Func("MIN", start(y)), core.Func("MIN", end(x))), Alias: p.n.endDate}),
		From: &core.JoinExpr{
			Left:  &core.DerivedTable{Select: nextInMain, Alias: x},
			Right: &core.DerivedTable{Select: p.stagedStarts(), Alias: y},
			Kind:  token.LEFT,
			On: core.And(
				keyMatch(p.pks, x, y),
				compare(start(y), token.GT, start(x)),
				compare(start(y), token.LT, end(x)),
			),
		},
		GroupBy: p.groupKeys(x, start(x)),
	}

	rows := &core.SelectStmt{
		Columns: core.Items(columns(stageAlias, p.milestoned().Schema.Names())...),
		From:    p.milestonedRef(),
		Where:   p.liveStaging(),
	}
	values := append(columns(x, p.businessNames()), p.openValues()...)
	values = append(values, core.Col(x, p.fromSrc), end(y))
	return &core.InsertStmt{
		Table:   p.temp.Ref(""),
		Columns: p.main.Schema.Names(),
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From: &core.JoinExpr{
				Left:  &core.DerivedTable{Select: rows, Alias: x},
				Right: &core.DerivedTable{Select: nextOverall, Alias: y},
				Kind:  token.LEFT,
				On:    core.And(keyMatch(p.pks, x, y), core.Eq(core.Col(x, p.fromSrc), start(y))),
			},
		},
	}
}

// mainToTemp re-stages open main rows that a staging valid-from now splits,
// ending them at the first such valid-from. Rows replaced outright by a
// staging row with the same valid-from are left to stageToTemp.
func (p *plan) mainToTemp() core.Statement {
	x, y := xAlias, yAlias
	start := func(a string) *core.ColumnRef { return core.Col(a, p.n.startDate) }
	end := func(a string) *core.ColumnRef { return core.Col(a, p.n.endDate) }

	openRanges := &core.SelectStmt{
		Columns: p.keysAnd(sinkAlias,
			core.SelectItem{Expr: core.Col(sinkAlias, p.validity.FromTarget), Alias: p.n.startDate},
			core.SelectItem{Expr: core.Col(sinkAlias, p.validity.ThroughTarget), Alias: p.n.endDate}),
		From:  p.mainRef(sinkAlias),
		Where: p.open(sinkAlias),
	}
	split := &core.SelectStmt{
		Columns: p.keysAnd(x,
			core.SelectItem{Expr: start(x)},
			core.SelectItem{Expr: core.Func("MIN", start(y)), Alias: p.n.endDate}),
		From: &core.JoinExpr{
			Left:  &core.DerivedTable{Select: openRanges, Alias: x},
			Right: &core.DerivedTable{Select: p.stagedStarts(), Alias: y},
			Kind:  token.INNER,
			On: core.And(
				keyMatch(p.pks, x, y),
				compare(start(y), token.GT, start(x)),
				compare(start(y), token.LT, end(x)),
			),
		},
		GroupBy: p.groupKeys(x, start(x)),
	}
	replaced := &core.SelectStmt{
		From: p.milestonedRef(),
		Where: core.And(
			keyMatch(p.pks, x, stageAlias),
			core.Eq(start(x), core.Col(stageAlias, p.fromSrc)),
			p.liveStaging(),
		),
	}
	kept := &core.SelectStmt{
		Columns: p.keysAnd(x, core.SelectItem{Expr: start(x)}, core.SelectItem{Expr: end(x), Alias: p.n.endDate}),
		From:    &core.DerivedTable{Select: split, Alias: x},
		Where:   core.Not(core.Exists(replaced)),
	}

	openRows := &core.SelectStmt{
		Columns: core.Items(columns(sinkAlias, p.main.Schema.Names())...),
		From:    p.mainRef(sinkAlias),
		Where:   p.open(sinkAlias),
	}
	values := append(columns(x, p.businessNames()), p.openValues()...)
	values = append(values, core.Col(x, p.validity.FromTarget), end(y))
	return &core.InsertStmt{
		Table:   p.temp.Ref(""),
		Columns: p.main.Schema.Names(),
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From: &core.JoinExpr{
				Left:  &core.DerivedTable{Select: openRows, Alias: x},
				Right: &core.DerivedTable{Select: kept, Alias: y},
				Kind:  token.INNER,
				On:    core.And(keyMatch(p.pks, x, y), core.Eq(core.Col(x, p.validity.FromTarget), start(y))),
			},
		},
	}
}

// closeReplaced closes the open main rows that have a version in temp.
func (p *plan) closeReplaced(temp core.Dataset, alias string) core.Statement {
	return &core.UpdateStmt{
		Table: p.mainRef(sinkAlias),
		Set:   p.closeSet(),
		Where: core.And(
			core.Exists(&core.SelectStmt{
				From: temp.Ref(alias),
				Where: core.And(
					keyMatch(p.pks, sinkAlias, alias),
					core.Eq(core.Col(sinkAlias, p.validity.FromTarget), core.Col(alias, p.validity.FromTarget)),
				),
			}),
			p.open(sinkAlias),
		),
	}
}

// mainToTempForDeletion stages the open rows touched by a staged delete: the
// deleted range itself, flagged 1, and the range ending where it starts,
// flagged 0.
func (p *plan) mainToTempForDeletion() core.Statement {
	x, y := xAlias, yAlias
	from, thru := p.validity.FromTarget, p.validity.ThroughTarget

	touched := &core.SelectStmt{
		From: p.mainRef(sinkAlias),
		Where: core.And(
			p.open(sinkAlias),
			core.Exists(&core.SelectStmt{
				From: p.milestonedRef(),
				Where: core.And(
					keyMatch(p.pks, sinkAlias, stageAlias),
					core.Or(
						core.Eq(core.Col(sinkAlias, from), core.Col(stageAlias, p.fromSrc)),
						core.Eq(core.Col(sinkAlias, thru), core.Col(stageAlias, p.fromSrc)),
					),
					p.deleted(stageAlias),
					p.sourceFilter(),
				),
			}),
		),
	}
	deletes := &core.SelectStmt{
		From:  p.milestonedRef(),
		Where: core.And(p.sourceFilter(), p.deleted(stageAlias)),
	}
	flag := &core.CaseExpr{
		Whens: []core.WhenClause{{Condition: &core.IsNullExpr{Expr: core.Col(y, p.deleteField)}, Result: core.Int(0)}},
		Else:  core.Int(1),
	}

	values := append(columns(x, p.businessNames()), p.openValues()...)
	values = append(values, core.Col(x, from), core.Col(x, thru), flag)
	return &core.InsertStmt{
		Table:   p.tempDelete.Ref(""),
		Columns: p.tempDelete.Schema.Names(),
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From: &core.JoinExpr{
				Left:  &core.DerivedTable{Select: touched, Alias: x},
				Right: &core.DerivedTable{Select: deletes, Alias: y},
				Kind:  token.LEFT,
				On:    core.And(keyMatch(p.pks, x, y), core.Eq(core.Col(x, from), core.Col(y, p.fromSrc))),
			},
		},
	}
}

// tempToMainForDeletion reopens each unflagged range extended over the
// deleted ranges that follow it, up to the next unflagged valid-from.
func (p *plan) tempToMainForDeletion() core.Statement {
	x, y := xAlias, yAlias
	from, thru := p.validity.FromTarget, p.validity.ThroughTarget
	td := p.tempDelete
	kept := func(a string) core.Expr { return core.Eq(core.Col(a, p.deleteField), core.Int(0)) }
	start := core.Col(x, p.n.startDate)
	end := core.Col(x, p.n.endDate)

	carried := append(p.businessNames(), p.txNames()...)
	nextKept := &core.SelectStmt{
		Columns: append(core.Items(columns(x, carried)...),
			core.SelectItem{Expr: core.Col(x, from), Alias: p.n.startDate},
			core.SelectItem{Expr: core.Func("COALESCE", core.Func("MIN", core.Col(y, from)), core.Timestamp(MaxTimestamp)), Alias: p.n.endDate}),
		From: &core.JoinExpr{
			Left:  td.Ref(x),
			Right: td.Ref(y),
			Kind:  token.LEFT,
			On: core.And(
				keyMatch(p.pks, x, y),
				compare(core.Col(y, from), token.GT, core.Col(x, from)),
				kept(y),
			),
		},
		Where:   kept(x),
		GroupBy: append(columns(x, carried), core.Col(x, from)),
	}

	values := append(columns(x, carried),
		start,
		core.Func("COALESCE", core.Func("MAX", core.Col(y, thru)), core.Func("MIN", end)),
	)
	return &core.InsertStmt{
		Table:   p.mainRef(""),
		Columns: p.main.Schema.Names(),
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From: &core.JoinExpr{
				Left:  &core.DerivedTable{Select: nextKept, Alias: x},
				Right: td.Ref(y),
				Kind:  token.LEFT,
				On: core.And(
					keyMatch(p.pks, x, y),
					compare(core.Col(y, thru), token.GT, start),
					compare(core.Col(y, thru), token.LE, end),
					core.Ne(core.Col(y, p.deleteField), core.Int(0)),
				),
			},
			GroupBy: append(columns(x, carried), start),
		},
	}
}
