package ingest

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/leapstack-labs/milestone/pkg/format"
)

// Request bundles everything one compilation needs.
type Request struct {
	Dialect  *dialect.Dialect
	Datasets core.Datasets
	Mode     core.IngestMode
	Options  Options
}

// Generator compiles ingest modes into SQL plans for one dialect.
// A Generator holds no mutable state and is safe for concurrent use.
type Generator struct {
	dialect *dialect.Dialect
	opts    Options
	logger  *slog.Logger
}

// New creates a Generator for d.
func New(d *dialect.Dialect, opts Options) *Generator {
	opts = opts.withDefaults()
	return &Generator{dialect: d, opts: opts, logger: opts.Logger}
}

// Compile compiles the plan for one batch. When the plan runs per data
// split, the split bounds are left as placeholders and the result must be
// bound with CompileRanges.
func (g *Generator) Compile(ds core.Datasets, mode core.IngestMode) (*core.GeneratorResult, error) {
	if g.dialect == nil {
		return nil, dialect.ErrDialectRequired
	}
	if mode == nil {
		return nil, core.Configf("mode", "an ingest mode is required")
	}

	p, err := newPlan(g.dialect, g.opts, ds, mode)
	if err != nil {
		return nil, err
	}
	r := &renderer{d: g.dialect}
	res := &core.GeneratorResult{}

	res.PreActionsSQL = r.statements(p.preActions())
	if g.opts.EnableConcurrentSafety {
		res.InitializeLockSQL = r.statements([]core.Statement{p.initializeLock()})
		res.AcquireLockSQL = r.statements([]core.Statement{p.acquireLock()})
	}

	dedup := p.buildDedup()
	res.DedupAndVersioningSQL = r.statements(dedup.statements)
	res.DedupAndVersioningErrorChecksSQL = renderMap(r, dedup.checks)
	res.DedupAndVersioningErrorRowsSQL = renderMap(r, dedup.samples)

	if p.splitField != "" {
		res.DataSplitValuesSQL = r.statement(p.splitValues())
	}

	ingest, err := p.ingest()
	if err != nil {
		return nil, err
	}
	res.IngestSQL = r.statements(ingest)

	stats := p.buildStatistics()
	res.PreIngestStatisticsSQL = renderMap(r, stats.pre)
	res.PostIngestStatisticsSQL = renderMap(r, stats.post)

	md, err := p.metadataInsert()
	if err != nil {
		return nil, err
	}
	res.MetadataIngestSQL = r.statements([]core.Statement{md})

	if g.opts.CleanupStagingData {
		res.PostActionsSQL = r.statements([]core.Statement{&core.DeleteStmt{Table: p.staging.Ref(stageAlias)}})
	}
	res.PostCleanupSQL = r.statements(p.postCleanup())

	if r.err != nil {
		return nil, fmt.Errorf("rendering %s for %s: %w", mode.Kind(), g.dialect.GetName(), r.err)
	}

	g.logger.Debug("compiled ingest plan",
		slog.String("mode", mode.Kind().String()),
		slog.String("dialect", g.dialect.GetName()),
		slog.String("main", p.main.QualifiedName()),
		slog.Int("ingest_statements", len(res.IngestSQL)),
		slog.Bool("data_splits", res.DataSplitValuesSQL != ""),
	)
	return res, nil
}

// CompileRanges compiles the plan once and binds it to each range, returning
// one independently executable result per range in order.
func (g *Generator) CompileRanges(ds core.Datasets, mode core.IngestMode, ranges []core.DataSplitRange) ([]*core.GeneratorResult, error) {
	base, err := g.Compile(ds, mode)
	if err != nil {
		return nil, err
	}
	if base.DataSplitValuesSQL == "" {
		return nil, core.Configf("data_split", "the %s plan does not run per data split", mode.Kind())
	}
	out := make([]*core.GeneratorResult, len(ranges))
	for i, rng := range ranges {
		if rng.Lower > rng.Upper {
			return nil, core.Configf("data_split", "range %s has its lower bound above its upper bound", rng)
		}
		out[i] = bindRange(base, g.dialect, rng)
	}
	return out, nil
}

// NextBatchIDSQL compiles the query that returns the batch id the next batch
// of ds.Main receives. Executors use it to substitute {BATCH_ID_PATTERN} when
// the plan was compiled with placeholders.
func (g *Generator) NextBatchIDSQL(ds core.Datasets, mode core.IngestMode) (string, error) {
	if g.dialect == nil {
		return "", dialect.ErrDialectRequired
	}
	if mode == nil {
		return "", core.Configf("mode", "an ingest mode is required")
	}
	p, err := newPlan(g.dialect, g.opts, ds, mode)
	if err != nil {
		return "", err
	}
	sub, ok := metadataBatch{p: p}.id().(*core.SubqueryExpr)
	if !ok {
		return "", fmt.Errorf("batch id of %s is not a query", p.main.QualifiedName())
	}
	return format.Statement(sub.Select, g.dialect)
}

// Compile compiles req with a one-off Generator.
func Compile(req Request) (*core.GeneratorResult, error) {
	return New(req.Dialect, req.Options).Compile(req.Datasets, req.Mode)
}

// ingest dispatches to the milestoning builder of the mode.
func (p *plan) ingest() ([]core.Statement, error) {
	switch mode := p.mode.(type) {
	case core.NontemporalSnapshot:
		return p.nontemporalSnapshot(mode)
	case core.NontemporalDelta:
		return p.nontemporalDelta(), nil
	case core.AppendOnly:
		return p.appendOnly(mode), nil
	case core.UnitemporalDelta:
		return p.unitemporalDelta(), nil
	case core.UnitemporalSnapshot:
		return p.unitemporalSnapshot(mode)
	case core.Bitemporal:
		return p.bitemporal(), nil
	default:
		return nil, core.Configf("mode", "unsupported ingest mode %T", mode)
	}
}

func (p *plan) preActions() []core.Statement {
	create := func(ds core.Dataset) core.Statement {
		return &core.CreateStmt{Table: ds.Ref(""), Fields: ds.Schema.Fields, IfNotExists: true}
	}
	stmts := []core.Statement{create(p.main), p.createMetadata()}
	if p.opts.CreateStagingDataset {
		stmts = append(stmts, create(p.staging))
	}
	if p.tempStaging != nil {
		stmts = append(stmts, create(*p.tempStaging))
	}
	if p.fromOnly() {
		stmts = append(stmts, create(p.temp))
		if p.deleteField != "" {
			stmts = append(stmts, create(p.tempDelete))
		}
		if p.noDup != nil {
			stmts = append(stmts, create(*p.noDup))
		}
	}
	if p.opts.EnableConcurrentSafety {
		stmts = append(stmts, p.createLock())
	}
	return stmts
}

// postCleanup drops the tables this plan owns.
func (p *plan) postCleanup() []core.Statement {
	var stmts []core.Statement
	drop := func(ds core.Dataset) {
		stmts = append(stmts, &core.DropStmt{Table: ds.Ref(""), IfExists: true})
	}
	if p.tempStaging != nil {
		drop(*p.tempStaging)
	}
	if p.fromOnly() {
		drop(p.temp)
		if p.deleteField != "" {
			drop(p.tempDelete)
		}
		if p.noDup != nil {
			drop(*p.noDup)
		}
	}
	return stmts
}

// splitValues selects the distinct split keys of this batch in ascending
// order.
func (p *plan) splitValues() *core.SelectStmt {
	var where core.Expr
	if p.tempStaging == nil {
		where = stagingFilters(p.staging.Filters, stageAlias)
	}
	key := core.Col(stageAlias, p.splitField)
	return &core.SelectStmt{
		Distinct: true,
		Columns:  core.Items(key),
		From:     p.sourceRef(),
		Where:    where,
		OrderBy:  []core.OrderItem{{Expr: key}},
	}
}

// renderer renders IR and keeps the first error, so that a compilation
// either renders completely or not at all.
type renderer struct {
	d   *dialect.Dialect
	err error
}

func (r *renderer) statement(stmt core.Statement) string {
	if r.err != nil {
		return ""
	}
	sql, err := format.Statement(stmt, r.d)
	if err != nil {
		r.err = err
		return ""
	}
	return sql
}

func (r *renderer) statements(stmts []core.Statement) []string {
	if len(stmts) == 0 || r.err != nil {
		return nil
	}
	out, err := format.Statements(stmts, r.d)
	if err != nil {
		r.err = err
		return nil
	}
	return out
}

func renderMap[K comparable](r *renderer, in map[K]*core.SelectStmt) map[K]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[K]string, len(in))
	for k, stmt := range in {
		out[k] = r.statement(stmt)
	}
	return out
}
