package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
)

// nontemporalColumns are the business columns followed by the audit columns,
// with the values an incoming row writes to them.
func (p *plan) nontemporalColumns() ([]string, []core.Expr) {
	auditNames, auditValues := p.auditValues()
	names := append(p.businessNames(), auditNames...)
	values := append(columns(stageAlias, p.businessNames()), auditValues...)
	return names, values
}

// ---------- Nontemporal snapshot ----------

func (p *plan) nontemporalSnapshot(mode core.NontemporalSnapshot) ([]core.Statement, error) {
	truncate := &core.DeleteStmt{Table: p.mainRef(sinkAlias)}
	if p.opts.EmptyBatch {
		switch mode.EmptyBatch {
		case core.EmptyBatchNoOp:
			return nil, nil
		case core.EmptyBatchDeleteTargetData:
			return []core.Statement{truncate}, nil
		case core.EmptyBatchFail:
			return nil, core.ErrEmptyBatch
		default:
			return nil, core.Configf("empty_batch_handling", "an empty batch needs an explicit handling policy")
		}
	}

	names, values := p.nontemporalColumns()
	insert := &core.InsertStmt{
		Table:   p.mainRef(""),
		Columns: names,
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From:    p.sourceRef(),
			Where:   p.sourceFilter(),
		},
	}
	return []core.Statement{truncate, insert}, nil
}

// ---------- Nontemporal delta ----------

func (p *plan) nontemporalDelta() []core.Statement {
	if p.opts.EmptyBatch {
		return nil
	}
	names, values := p.nontemporalColumns()
	set := make([]core.Assignment, len(names))
	for i := range names {
		set[i] = core.Assignment{Column: names[i], Value: values[i]}
	}
	match := keyMatch(p.pks, sinkAlias, stageAlias)

	var stmts []core.Statement
	if p.d.Supports(dialect.FeatureMerge) {
		stmts = append(stmts, &core.MergeStmt{
			Table:  p.mainRef(sinkAlias),
			Source: p.sourceTable(),
			On:     match,
			Matched: &core.MergeUpdate{
				Condition: core.And(p.changed(sinkAlias, stageAlias), p.live(stageAlias)),
				Set:       set,
			},
			NotMatched: &core.MergeInsert{
				Condition: p.live(stageAlias),
				Columns:   names,
				Values:    values,
			},
		})
	} else {
		stmts = append(stmts,
			&core.UpdateStmt{
				Table:  p.mainRef(sinkAlias),
				Set:    set,
				Source: p.sourceTable(),
				Match:  core.And(match, p.changed(sinkAlias, stageAlias), p.live(stageAlias)),
			},
			&core.InsertStmt{
				Table:   p.mainRef(""),
				Columns: names,
				Select: &core.SelectStmt{
					Columns: core.Items(values...),
					From:    p.sourceRef(),
					Where:   core.And(p.sourceFilter(), p.live(stageAlias), core.Not(core.Exists(p.mainMatching(match)))),
				},
			},
		)
	}

	if p.deleteField != "" {
		stmts = append(stmts, &core.DeleteStmt{
			Table: p.mainRef(sinkAlias),
			Where: core.Exists(p.stagedDeletes()),
		})
	}
	return stmts
}

func (p *plan) mainMatching(where core.Expr) *core.SelectStmt {
	return &core.SelectStmt{From: p.mainRef(sinkAlias), Where: where}
}

// stagedDeletes selects staging rows that soft-delete the current main row.
func (p *plan) stagedDeletes() *core.SelectStmt {
	return &core.SelectStmt{
		From: p.sourceRef(),
		Where: core.And(
			keyMatch(p.pks, sinkAlias, stageAlias),
			core.Eq(core.Col(sinkAlias, p.digest), core.Col(stageAlias, p.digest)),
			p.deleted(stageAlias),
			p.sourceFilter(),
		),
	}
}

// ---------- Append only ----------

func (p *plan) appendOnly(mode core.AppendOnly) []core.Statement {
	if p.opts.EmptyBatch {
		return nil
	}
	names, values := p.nontemporalColumns()
	return []core.Statement{&core.InsertStmt{
		Table:   p.mainRef(""),
		Columns: names,
		Select: &core.SelectStmt{
			Columns: core.Items(values...),
			From:    p.sourceRef(),
			Where:   p.appendFilter(mode),
		},
	}}
}

// appendFilter skips rows whose key and digest are already in main when
// existing records are filtered or versions are tracked.
func (p *plan) appendFilter(mode core.AppendOnly) core.Expr {
	if !mode.FilterExistingRecords && mode.VersionBy.Kind == core.NoVersioning {
		return p.sourceFilter()
	}
	existing := core.And(
		keyMatch(p.pks, sinkAlias, stageAlias),
		core.Eq(core.Col(sinkAlias, p.digest), core.Col(stageAlias, p.digest)),
	)
	return core.And(p.sourceFilter(), core.Not(core.Exists(p.mainMatching(existing))))
}
