// Package executor runs compiled ingest plans against a database.
//
// A run executes the phases of a plan in order: pre-actions, batch id
// allocation (placeholder plans only), lock initialization, dedup and
// versioning, data-quality checks, data-split discovery, then one
// transaction per split range holding the lock acquisition, pre-ingest
// statistics, ingest, post-ingest statistics and the batch metadata row.
// Each range is a batch of its own: it commits its own metadata row, so the
// next range reads the next batch id. Post-actions follow; the
// compiler-owned temp tables are dropped whether the run succeeds or not.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/ingest"
)

// Phase names a step of a run.
type Phase string

// Phase constants.
const (
	PhasePreActions  Phase = "pre_actions"
	PhaseLock        Phase = "lock"
	PhaseDedup       Phase = "dedup_and_versioning"
	PhaseErrorChecks Phase = "error_checks"
	PhaseDataSplits  Phase = "data_splits"
	PhaseBatchID     Phase = "batch_id"
	PhaseStatistics  Phase = "statistics"
	PhaseIngest      Phase = "ingest"
	PhaseMetadata    Phase = "metadata"
	PhasePostActions Phase = "post_actions"
	PhaseCleanup     Phase = "post_cleanup"
)

// Recorder observes runs. internal/metrics provides a Prometheus recorder.
type Recorder interface {
	ObserveRun(mode, dialect string, elapsed time.Duration, err error)
	ObserveStatement(phase string)
	ObserveRows(stat core.StatisticName, n int64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, string, time.Duration, error) {}
func (nopRecorder) ObserveStatement(string)                         {}
func (nopRecorder) ObserveRows(core.StatisticName, int64)           {}

// Options configure an Executor.
type Options struct {
	// Clock supplies run timestamps (default real clock).
	Clock clockwork.Clock

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger

	// Recorder observes runs (optional).
	Recorder Recorder
}

// Executor runs ingest plans on one database. Runs against the same main
// table must not overlap unless the plan was compiled with concurrent
// safety.
type Executor struct {
	db     *sql.DB
	clock  clockwork.Clock
	logger *slog.Logger
	rec    Recorder
}

// New creates an Executor on db.
func New(db *sql.DB, opts Options) *Executor {
	e := &Executor{db: db, clock: opts.Clock, logger: opts.Logger, rec: opts.Recorder}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.rec == nil {
		e.rec = nopRecorder{}
	}
	return e
}

// RangeResult holds the statistics of one executed range.
type RangeResult struct {
	Range      *core.DataSplitRange         `json:"range,omitempty" yaml:"range,omitempty"`
	BatchID    int64                        `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	Statistics map[core.StatisticName]int64 `json:"statistics" yaml:"statistics"`
}

// Result summarizes a run.
type Result struct {
	Mode       string                       `json:"mode" yaml:"mode"`
	Dialect    string                       `json:"dialect" yaml:"dialect"`
	Main       string                       `json:"main" yaml:"main"`
	BatchID    int64                        `json:"batch_id,omitempty" yaml:"batch_id,omitempty"` // first batch id, known when compiled with placeholders
	EmptyBatch bool                         `json:"empty_batch" yaml:"empty_batch"`
	Ranges     []RangeResult                `json:"ranges" yaml:"ranges"`
	Statistics map[core.StatisticName]int64 `json:"statistics" yaml:"statistics"`
	StartedAt  time.Time                    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time                    `json:"finished_at" yaml:"finished_at"`
}

// Run compiles req and executes the plan. The returned Result is non-nil
// whenever compilation succeeded, so callers can record failed runs.
func (e *Executor) Run(ctx context.Context, req ingest.Request) (*Result, error) {
	started := e.clock.Now()
	opts := req.Options
	if opts.ExecutionTime.IsZero() {
		opts.ExecutionTime = started
	}
	if opts.Logger == nil {
		opts.Logger = e.logger
	}
	req.Options = opts

	gen := ingest.New(req.Dialect, opts)
	plan, err := gen.Compile(req.Datasets, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("compiling plan: %w", err)
	}

	res := &Result{
		Mode:       req.Mode.Kind().String(),
		Dialect:    req.Dialect.GetName(),
		Main:       req.Datasets.Main.QualifiedName(),
		Statistics: make(map[core.StatisticName]int64),
		StartedAt:  started,
	}
	e.logger.Info("starting run", "main", res.Main, "mode", res.Mode, "dialect", res.Dialect)

	r := &run{e: e, gen: gen, req: req, plan: plan, res: res}
	runErr := r.execute(ctx)

	if err := e.execAll(ctx, e.db, PhaseCleanup, plan.PostCleanupSQL, nil); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			e.logger.Warn("cleanup failed", "error", err)
		}
	}

	res.FinishedAt = e.clock.Now()
	e.rec.ObserveRun(res.Mode, res.Dialect, res.FinishedAt.Sub(started), runErr)
	for name, n := range res.Statistics {
		e.rec.ObserveRows(name, n)
	}

	if runErr != nil {
		e.logger.Info("run failed", "main", res.Main, "error", runErr.Error())
		return res, runErr
	}
	e.logger.Info("run completed", "main", res.Main, "ranges", len(res.Ranges), "empty_batch", res.EmptyBatch)
	return res, nil
}

// run is the state of one Run call.
type run struct {
	e    *Executor
	gen  *ingest.Generator
	req  ingest.Request
	plan *core.GeneratorResult
	res  *Result
	vars *batchVars // nil unless the plan carries placeholders
}

func (r *run) execute(ctx context.Context) error {
	e, plan := r.e, r.plan

	if err := e.execAll(ctx, e.db, PhasePreActions, plan.PreActionsSQL, nil); err != nil {
		return err
	}
	if r.req.Options.Placeholders {
		if err := r.allocateBatchID(ctx, e.db); err != nil {
			return err
		}
		r.res.BatchID = r.vars.id
	}
	if err := e.execAll(ctx, e.db, PhaseLock, plan.InitializeLockSQL, r.vars); err != nil {
		return err
	}
	if err := e.execAll(ctx, e.db, PhaseDedup, plan.DedupAndVersioningSQL, r.vars); err != nil {
		return err
	}
	if err := e.checkDataQuality(ctx, plan); err != nil {
		return err
	}

	plans, err := r.rangePlans(ctx)
	if err != nil {
		return err
	}
	for _, p := range plans {
		rr, err := r.executeRange(ctx, p)
		if err != nil {
			return err
		}
		r.res.Ranges = append(r.res.Ranges, rr)
		for name, n := range rr.Statistics {
			r.res.Statistics[name] += n
		}
	}

	return e.execAll(ctx, e.db, PhasePostActions, plan.PostActionsSQL, r.vars)
}

// rangePlans resolves the plans to execute: one per data split range, the
// plan itself when it does not split, or the empty-batch plan when staging
// holds no rows.
func (r *run) rangePlans(ctx context.Context) ([]*core.GeneratorResult, error) {
	e, plan := r.e, r.plan

	if plan.DataSplitValuesSQL != "" {
		values, err := e.splitValues(ctx, plan.DataSplitValuesSQL)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return r.emptyPlan()
		}
		ranges := ingest.SplitRanges(values)
		e.logger.Debug("data splits", "values", len(values), "ranges", len(ranges))
		return r.gen.CompileRanges(r.req.Datasets, r.req.Mode, ranges)
	}

	if q, ok := plan.PreIngestStatisticsSQL[core.StatIncomingRecordCount]; ok {
		n, err := e.queryInt(ctx, e.db, PhaseStatistics, r.vars.apply(q, e.clock.Now()))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return r.emptyPlan()
		}
	}
	return []*core.GeneratorResult{plan}, nil
}

// emptyPlan recompiles the batch for an empty staging dataset.
func (r *run) emptyPlan() ([]*core.GeneratorResult, error) {
	r.res.EmptyBatch = true
	r.e.logger.Info("staging is empty", "main", r.res.Main)

	opts := r.req.Options
	opts.EmptyBatch = true
	empty, err := ingest.New(r.req.Dialect, opts).Compile(r.req.Datasets, r.req.Mode)
	if err != nil {
		return nil, err
	}
	if empty.UsesDataSplits() {
		// Statistics of a split plan are bound per range; with no rows
		// there is no range to bind them to.
		p := *empty
		p.PreIngestStatisticsSQL = nil
		p.PostIngestStatisticsSQL = nil
		empty = &p
	}
	return []*core.GeneratorResult{empty}, nil
}

func (r *run) executeRange(ctx context.Context, p *core.GeneratorResult) (rr RangeResult, err error) {
	e := r.e
	rr = RangeResult{Range: p.Range, Statistics: make(map[core.StatisticName]int64)}
	if p.Range != nil {
		e.logger.Info("ingesting range", "range", p.Range.String())
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return rr, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				e.logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	if r.vars != nil {
		// Each range is a batch of its own.
		if err = r.allocateBatchID(ctx, tx); err != nil {
			return rr, err
		}
		rr.BatchID = r.vars.id
	}
	if err = e.execAll(ctx, tx, PhaseLock, p.AcquireLockSQL, r.vars); err != nil {
		return rr, err
	}
	if err = r.statistics(ctx, tx, p.PreIngestStatisticsSQL, rr.Statistics); err != nil {
		return rr, err
	}
	if err = e.execAll(ctx, tx, PhaseIngest, p.IngestSQL, r.vars); err != nil {
		return rr, err
	}
	if err = r.statistics(ctx, tx, p.PostIngestStatisticsSQL, rr.Statistics); err != nil {
		return rr, err
	}
	if err = e.execAll(ctx, tx, PhaseMetadata, p.MetadataIngestSQL, r.vars); err != nil {
		return rr, err
	}
	if err = tx.Commit(); err != nil {
		return rr, fmt.Errorf("committing transaction: %w", err)
	}
	return rr, nil
}

// statistics runs the statistic queries in reporting order.
func (r *run) statistics(ctx context.Context, q querier, queries map[core.StatisticName]string, out map[core.StatisticName]int64) error {
	for _, name := range core.AllStatistics {
		query, ok := queries[name]
		if !ok {
			continue
		}
		n, err := r.e.queryInt(ctx, q, PhaseStatistics, r.vars.apply(query, r.e.clock.Now()))
		if err != nil {
			return fmt.Errorf("statistic %s: %w", name, err)
		}
		out[name] = n
	}
	return nil
}

// allocateBatchID reads the next batch id of the main table through q.
func (r *run) allocateBatchID(ctx context.Context, q querier) error {
	query, err := r.gen.NextBatchIDSQL(r.req.Datasets, r.req.Mode)
	if err != nil {
		return err
	}
	id, err := r.e.queryInt(ctx, q, PhaseBatchID, query)
	if err != nil {
		return err
	}
	r.vars = &batchVars{id: id, start: r.req.Options.ExecutionTime}
	r.e.logger.Debug("allocated batch id", "batch_id", id)
	return nil
}

// checkDataQuality runs the error checks in order and stops at the first
// one returning more than 1.
func (e *Executor) checkDataQuality(ctx context.Context, plan *core.GeneratorResult) error {
	for _, check := range core.ErrorCheckOrder {
		q, ok := plan.DedupAndVersioningErrorChecksSQL[check]
		if !ok {
			continue
		}
		n, err := e.queryInt(ctx, e.db, PhaseErrorChecks, q)
		if err != nil {
			return err
		}
		if n <= 1 {
			continue
		}
		dqErr := &DataQualityError{Check: check, Value: n}
		if sample, ok := plan.DedupAndVersioningErrorRowsSQL[check.SampleFor()]; ok {
			rows, err := e.queryRows(ctx, sample)
			if err != nil {
				return err
			}
			dqErr.Rows = rows
		}
		return dqErr
	}
	return nil
}

// querier is the subset of *sql.DB and *sql.Tx a run needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (e *Executor) execAll(ctx context.Context, q querier, phase Phase, stmts []string, vars *batchVars) error {
	for _, stmt := range stmts {
		stmt = vars.apply(stmt, e.clock.Now())
		e.logger.Debug("exec", "phase", string(phase), "sql", stmt)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return &StatementError{Phase: phase, SQL: stmt, Err: err}
		}
		e.rec.ObserveStatement(string(phase))
	}
	return nil
}

// queryInt runs a query returning a single number; NULL reads as 0.
func (e *Executor) queryInt(ctx context.Context, q querier, phase Phase, query string) (int64, error) {
	e.logger.Debug("query", "phase", string(phase), "sql", query)
	var n sql.NullInt64
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, &StatementError{Phase: phase, SQL: query, Err: err}
	}
	e.rec.ObserveStatement(string(phase))
	return n.Int64, nil
}

func (e *Executor) splitValues(ctx context.Context, query string) ([]int64, error) {
	e.logger.Debug("query", "phase", string(PhaseDataSplits), "sql", query)
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StatementError{Phase: PhaseDataSplits, SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var values []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, &StatementError{Phase: PhaseDataSplits, SQL: query, Err: err}
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &StatementError{Phase: PhaseDataSplits, SQL: query, Err: err}
	}
	e.rec.ObserveStatement(string(PhaseDataSplits))
	return values, nil
}

// queryRows reads a sample query into column maps.
func (e *Executor) queryRows(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StatementError{Phase: PhaseErrorChecks, SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// batchVars substitutes the batch placeholders of a plan compiled with
// ingest.Options.Placeholders.
type batchVars struct {
	id    int64
	start time.Time
}

// apply replaces the placeholders in stmt; end is the batch end time. A nil
// receiver returns stmt unchanged.
func (v *batchVars) apply(stmt string, end time.Time) string {
	if v == nil {
		return stmt
	}
	return strings.NewReplacer(
		core.BatchIDPattern, strconv.FormatInt(v.id, 10),
		core.BatchStartTSPattern, v.start.UTC().Format(ingest.TimestampLayout),
		core.BatchEndTSPattern, end.UTC().Format(ingest.TimestampLayout),
	).Replace(stmt)
}
