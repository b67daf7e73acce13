package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
)

// temporalColumns are the business columns and the transaction columns with
// the values a newly opened row receives.
func (p *plan) temporalColumns(from string) ([]string, []core.Expr) {
	names := append(p.businessNames(), p.txNames()...)
	values := append(columns(from, p.businessNames()), p.openValues()...)
	return names, values
}

// ---------- Unitemporal delta ----------

func (p *plan) unitemporalDelta() []core.Statement {
	if p.opts.EmptyBatch {
		return nil
	}
	match := keyMatch(p.pks, sinkAlias, stageAlias)

	// Close every open row superseded by, or deleted in, staging.
	superseded := core.Or(p.changed(sinkAlias, stageAlias), p.deleted(stageAlias))
	closeRows := &core.UpdateStmt{
		Table: p.mainRef(sinkAlias),
		Set:   p.closeSet(),
		Where: core.And(
			p.open(sinkAlias),
			core.Exists(&core.SelectStmt{
				From:  p.sourceRef(),
				Where: core.And(match, superseded, p.sourceFilter()),
			}),
		),
	}

	// Open staging rows that have no identical open row.
	names, values := p.temporalColumns(stageAlias)
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

// ---------- Unitemporal snapshot ----------

func (p *plan) unitemporalSnapshot(mode core.UnitemporalSnapshot) ([]core.Statement, error) {
	part := mode.Partitioning
	if p.opts.EmptyBatch {
		switch mode.EmptyBatch {
		case core.EmptyBatchNoOp:
			return nil, nil
		case core.EmptyBatchFail:
			return nil, core.ErrEmptyBatch
		case core.EmptyBatchDeleteTargetData:
			// Without explicit partitions there is nothing known to close.
			if part != nil && len(part.Values) == 0 && len(part.Specs) == 0 {
				return nil, nil
			}
			return []core.Statement{&core.UpdateStmt{
				Table: p.mainRef(sinkAlias),
				Set:   p.closeSet(),
				Where: core.And(p.open(sinkAlias), p.partitionLiterals(part, sinkAlias)),
			}}, nil
		default:
			return nil, core.Configf("empty_batch_handling", "an empty batch needs an explicit handling policy")
		}
	}

	// Close open rows in scope that staging no longer carries unchanged.
	sameRow := core.And(
		keyMatch(p.pks, sinkAlias, stageAlias),
		core.Eq(core.Col(sinkAlias, p.digest), core.Col(stageAlias, p.digest)),
	)
	closeRows := &core.UpdateStmt{
		Table: p.mainRef(sinkAlias),
		Set:   p.closeSet(),
		Where: core.And(
			p.open(sinkAlias),
			core.Not(core.Exists(&core.SelectStmt{
				From:  p.sourceRef(),
				Where: core.And(sameRow, p.sourceFilter()),
			})),
			p.partitionScope(part),
		),
	}

	// Open staging rows whose digest is not among the open rows in scope.
	names, values := p.temporalColumns(stageAlias)
	openDigests := &core.SelectStmt{
		Columns: core.Items(core.Col(sinkAlias, p.digest)),
		From:    p.mainRef(sinkAlias),
		Where:   core.And(p.open(sinkAlias), p.partitionOfStage(part)),
	}
	openRows := &core.InsertStmt{
		Table:   p.mainRef(""),
		Columns: names,
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From:    p.sourceRef(),
			Where: core.And(
				p.sourceFilter(),
				core.Not(&core.InExpr{Left: core.Col(stageAlias, p.digest), Select: openDigests}),
			),
		},
	}
	return []core.Statement{closeRows, openRows}, nil
}

// partitionScope restricts the close step to the partitions this batch
// replaces: explicit values or specs when given, else the partitions present
// in staging.
func (p *plan) partitionScope(part *core.Partitioning) core.Expr {
	if part == nil {
		return nil
	}
	if lit := p.partitionLiterals(part, sinkAlias); lit != nil {
		return lit
	}
	eq := make([]core.Expr, len(part.Fields))
	for i, f := range part.Fields {
		eq[i] = core.Eq(core.Col(sinkAlias, f), core.Col(stageAlias, f))
	}
	return core.Exists(&core.SelectStmt{From: p.sourceRef(), Where: core.And(core.And(eq...), p.sourceFilter())})
}

// partitionOfStage restricts the open-digest lookup to the partition of the
// staging row being inserted.
func (p *plan) partitionOfStage(part *core.Partitioning) core.Expr {
	if part == nil {
		return nil
	}
	if lit := p.partitionLiterals(part, sinkAlias); lit != nil {
		return lit
	}
	eq := make([]core.Expr, len(part.Fields))
	for i, f := range part.Fields {
		eq[i] = core.Eq(core.Col(sinkAlias, f), core.Col(stageAlias, f))
	}
	return core.And(eq...)
}

// partitionLiterals renders explicit partition values: an IN list per field,
// or an OR of per-spec conjunctions. It returns nil when neither is set.
func (p *plan) partitionLiterals(part *core.Partitioning, alias string) core.Expr {
	if part == nil {
		return nil
	}
	if len(part.Specs) > 0 {
		specs := make([]core.Expr, len(part.Specs))
		for i, spec := range part.Specs {
			terms := make([]core.Expr, 0, len(part.Fields))
			for _, f := range part.Fields {
				terms = append(terms, core.Eq(core.Col(alias, f), core.LiteralOf(spec[f])))
			}
			specs[i] = core.And(terms...)
		}
		return core.Or(specs...)
	}
	if len(part.Values) > 0 {
		terms := make([]core.Expr, 0, len(part.Values))
		for _, f := range part.Fields {
			if values, ok := part.Values[f]; ok {
				terms = append(terms, &core.InExpr{Left: core.Col(alias, f), Values: literals(values)})
			}
		}
		return core.And(terms...)
	}
	return nil
}
