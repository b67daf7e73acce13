package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/token"
)

// dedupPhase populates temp staging and lists the checks that must pass
// before milestoning reads it.
type dedupPhase struct {
	statements []core.Statement
	checks     map[core.ErrorCheck]*core.SelectStmt
	samples    map[core.ErrorRows]*core.SelectStmt
}

func (p *plan) buildDedup() dedupPhase {
	var ph dedupPhase
	if p.tempStaging == nil {
		return ph
	}
	ph.checks = map[core.ErrorCheck]*core.SelectStmt{}
	ph.samples = map[core.ErrorRows]*core.SelectStmt{}
	ts := *p.tempStaging

	ph.statements = []core.Statement{
		&core.DeleteStmt{Table: ts.Ref(stageAlias)},
		&core.InsertStmt{Table: ts.Ref(""), Columns: ts.Schema.Names(), Select: p.populateTempStaging()},
	}

	dedup := p.mode.Dedup()
	v := p.mode.Versioning()

	if dedup == core.FailOnDuplicates {
		ph.checks[core.CheckMaxDuplicates] = &core.SelectStmt{
			Columns: []core.SelectItem{{Expr: core.Func("MAX", core.Col(stageAlias, p.n.count)), Alias: string(core.CheckMaxDuplicates)}},
			From:    ts.Ref(stageAlias),
		}
		ph.samples[core.RowsDuplicates] = &core.SelectStmt{
			Columns: core.Items(columns(stageAlias, ts.Schema.Names())...),
			From:    ts.Ref(stageAlias),
			Where:   compare(core.Col(stageAlias, p.n.count), token.GT, core.Int(1)),
			Limit:   p.opts.SampleRowCount,
		}
	}

	kind := p.mode.Kind()
	if dedup != core.AllowDuplicates && v.Kind == core.NoVersioning && len(p.pks) > 0 &&
		kind != core.ModeAppendOnly && kind != core.ModeBitemporal {
		p.addPKDuplicateCheck(&ph, ts)
	}

	if v.StageVersioned() && (p.digest != "" || dedup != core.AllowDuplicates) {
		p.addDataErrorCheck(&ph, ts)
	}
	return ph
}

// populateTempStaging builds the select that fills temp staging: staging
// grouped into distinct rows with a count when deduplicating, then ranked by
// version when versioning in staging.
func (p *plan) populateTempStaging() *core.SelectStmt {
	stagingCols := p.staging.Schema.Names()
	dedup := p.mode.Dedup() != core.AllowDuplicates
	v := p.mode.Versioning()

	// from is the innermost row set, where carries the staging filters that
	// apply when it reads staging directly.
	var from core.TableExpr = p.staging.Ref(stageAlias)
	where := stagingFilters(p.staging.Filters, stageAlias)
	carried := core.Items(columns(stageAlias, stagingCols)...)

	if dedup {
		grouped := &core.SelectStmt{
			Columns: append(core.Items(columns(stageAlias, stagingCols)...),
				core.SelectItem{Expr: countStar(), Alias: p.n.count}),
			From:    from,
			Where:   where,
			GroupBy: columns(stageAlias, stagingCols),
		}
		if !v.StageVersioned() {
			return grouped
		}
		from = &core.DerivedTable{Select: grouped, Alias: stageAlias}
		where = nil
		carried = append(carried, core.SelectItem{Expr: core.Col(stageAlias, p.n.count), Alias: p.n.count})
	}

	switch v.Kind {
	case core.AllVersion:
		return &core.SelectStmt{
			Columns: append(carried, core.SelectItem{Expr: p.versionRank(false), Alias: p.n.dataSplit}),
			From:    from,
			Where:   where,
		}
	default:
		ranked := &core.SelectStmt{
			Columns: append(append([]core.SelectItem{}, carried...), core.SelectItem{Expr: p.versionRank(true), Alias: p.n.rank}),
			From:    from,
			Where:   where,
		}
		return &core.SelectStmt{
			Columns: carried,
			From:    &core.DerivedTable{Select: ranked, Alias: stageAlias},
			Where:   core.Eq(core.Col(stageAlias, p.n.rank), core.Int(1)),
		}
	}
}

// versionRank ranks rows of one key by version; descending puts the latest
// version first.
func (p *plan) versionRank(descending bool) *core.WindowExpr {
	return &core.WindowExpr{
		Func:        core.Func("DENSE_RANK"),
		PartitionBy: columns(stageAlias, p.pks),
		OrderBy:     []core.OrderItem{{Expr: core.Col(stageAlias, p.version), Desc: descending}},
	}
}

func (p *plan) addPKDuplicateCheck(ph *dedupPhase, ts core.Dataset) {
	perKey := &core.SelectStmt{
		Columns: []core.SelectItem{{Expr: countStar(), Alias: p.n.pkCount}},
		From:    ts.Ref(stageAlias),
		GroupBy: columns(stageAlias, p.pks),
	}
	ph.checks[core.CheckMaxPKDuplicates] = &core.SelectStmt{
		Columns: []core.SelectItem{{Expr: core.Func("MAX", core.Col(stageAlias, p.n.pkCount)), Alias: string(core.CheckMaxPKDuplicates)}},
		From:    &core.DerivedTable{Select: perKey, Alias: stageAlias},
	}
	ph.samples[core.RowsPKDuplicates] = &core.SelectStmt{
		Columns: append(core.Items(columns(stageAlias, p.pks)...), core.SelectItem{Expr: countStar(), Alias: p.n.pkCount}),
		From:    ts.Ref(stageAlias),
		GroupBy: columns(stageAlias, p.pks),
		Having:  compare(countStar(), token.GT, core.Int(1)),
		Limit:   p.opts.SampleRowCount,
	}
}

// addDataErrorCheck flags keys whose rows share a version but differ in
// content.
func (p *plan) addDataErrorCheck(ph *dedupPhase, ts core.Dataset) {
	distinct := countStar()
	if p.digest != "" {
		distinct = &core.FuncCall{Name: "COUNT", Args: []core.Expr{core.Col(stageAlias, p.digest)}, Distinct: true}
	}
	keys := append(append([]string{}, p.pks...), p.version)

	perVersion := &core.SelectStmt{
		Columns: []core.SelectItem{{Expr: distinct, Alias: p.n.distinctRows}},
		From:    ts.Ref(stageAlias),
		GroupBy: columns(stageAlias, keys),
	}
	ph.checks[core.CheckMaxDataErrors] = &core.SelectStmt{
		Columns: []core.SelectItem{{Expr: core.Func("MAX", core.Col(stageAlias, p.n.distinctRows)), Alias: string(core.CheckMaxDataErrors)}},
		From:    &core.DerivedTable{Select: perVersion, Alias: stageAlias},
	}
	ph.samples[core.RowsDataErrors] = &core.SelectStmt{
		Columns: append(core.Items(columns(stageAlias, keys)...), core.SelectItem{Expr: distinct, Alias: p.n.distinctRows}),
		From:    ts.Ref(stageAlias),
		GroupBy: columns(stageAlias, keys),
		Having:  compare(distinct, token.GT, core.Int(1)),
		Limit:   p.opts.SampleRowCount,
	}
}
