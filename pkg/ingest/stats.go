package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/token"
)

// statistics holds the queries run before and after milestoning. Each query
// returns one number aliased by the statistic name.
type statistics struct {
	pre  map[core.StatisticName]*core.SelectStmt
	post map[core.StatisticName]*core.SelectStmt
}

func statAs(name core.StatisticName, expr core.Expr) []core.SelectItem {
	return []core.SelectItem{{Expr: expr, Alias: string(name)}}
}

func (p *plan) buildStatistics() statistics {
	st := statistics{
		pre:  map[core.StatisticName]*core.SelectStmt{},
		post: map[core.StatisticName]*core.SelectStmt{},
	}
	st.pre[core.StatIncomingRecordCount] = p.incomingRecordCount()

	switch mode := p.mode.(type) {
	case core.NontemporalSnapshot:
		st.pre[core.StatRowsDeleted] = &core.SelectStmt{
			Columns: statAs(core.StatRowsDeleted, countStar()),
			From:    p.mainRef(sinkAlias),
		}
		st.post[core.StatRowsInserted] = &core.SelectStmt{
			Columns: statAs(core.StatRowsInserted, countStar()),
			From:    p.mainRef(sinkAlias),
		}

	case core.NontemporalDelta:
		match := keyMatch(p.pks, sinkAlias, stageAlias)
		st.pre[core.StatRowsUpdated] = &core.SelectStmt{
			Columns: statAs(core.StatRowsUpdated, countStar()),
			From:    p.mainRef(sinkAlias),
			Where: core.Exists(&core.SelectStmt{
				From:  p.sourceRef(),
				Where: core.And(match, p.changed(sinkAlias, stageAlias), p.live(stageAlias), p.sourceFilter()),
			}),
		}
		st.pre[core.StatRowsInserted] = &core.SelectStmt{
			Columns: statAs(core.StatRowsInserted, countStar()),
			From:    p.sourceRef(),
			Where:   core.And(p.sourceFilter(), p.live(stageAlias), core.Not(core.Exists(p.mainMatching(match)))),
		}
		if p.deleteField != "" {
			st.pre[core.StatRowsDeleted] = &core.SelectStmt{
				Columns: statAs(core.StatRowsDeleted, countStar()),
				From:    p.mainRef(sinkAlias),
				Where:   core.Exists(p.stagedDeletes()),
			}
		}

	case core.AppendOnly:
		st.pre[core.StatRowsInserted] = &core.SelectStmt{
			Columns: statAs(core.StatRowsInserted, countStar()),
			From:    p.sourceRef(),
			Where:   p.appendFilter(mode),
		}

	default:
		p.temporalStatistics(st.post)
	}
	return st
}

// incomingRecordCount counts the rows this batch reads. Deduplicated temp
// staging keeps the original row count in the count column.
func (p *plan) incomingRecordCount() *core.SelectStmt {
	var count core.Expr = countStar()
	if p.tempStaging != nil && p.mode.Dedup() != core.AllowDuplicates {
		count = core.Func("COALESCE", core.Func("SUM", core.Col(stageAlias, p.n.count)), core.Int(0))
	}
	return &core.SelectStmt{
		Columns: statAs(core.StatIncomingRecordCount, count),
		From:    p.sourceRef(),
		Where:   p.sourceFilter(),
	}
}

// temporalStatistics counts rows by the batch that opened or closed them. A
// closed row with a successor opened in this batch was updated; the remaining
// opened rows were inserted and the remaining closed rows terminated.
func (p *plan) temporalStatistics(post map[core.StatisticName]*core.SelectStmt) {
	successor := core.And(keyMatch(p.pks, sink2Alias, sinkAlias), p.insertedIn(sink2Alias))
	if _, ok := p.mode.(core.Bitemporal); ok {
		successor = core.And(
			keyMatch(append(append([]string{}, p.pks...), p.validity.FromTarget), sink2Alias, sinkAlias),
			p.insertedIn(sink2Alias),
		)
	}
	updated := core.And(
		p.closedIn(sinkAlias),
		core.Exists(&core.SelectStmt{From: p.mainRef(sink2Alias), Where: successor}),
	)
	count := func(where core.Expr) core.Expr {
		return &core.SubqueryExpr{Select: &core.SelectStmt{
			Columns: core.Items(countStar()),
			From:    p.mainRef(sinkAlias),
			Where:   where,
		}}
	}

	post[core.StatRowsUpdated] = &core.SelectStmt{
		Columns: statAs(core.StatRowsUpdated, countStar()),
		From:    p.mainRef(sinkAlias),
		Where:   updated,
	}
	post[core.StatRowsInserted] = &core.SelectStmt{
		Columns: statAs(core.StatRowsInserted, compare(count(p.insertedIn(sinkAlias)), token.MINUS, count(updated))),
	}
	post[core.StatRowsTerminated] = &core.SelectStmt{
		Columns: statAs(core.StatRowsTerminated, compare(count(p.closedIn(sinkAlias)), token.MINUS, count(updated))),
	}
	post[core.StatRowsDeleted] = &core.SelectStmt{
		Columns: statAs(core.StatRowsDeleted, core.Int(0)),
	}
}
