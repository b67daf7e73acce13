package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/milestone/internal/cli/output"
	jobconfig "github.com/leapstack-labs/milestone/internal/config"
	"github.com/leapstack-labs/milestone/internal/executor"
	"github.com/leapstack-labs/milestone/internal/metrics"
	"github.com/leapstack-labs/milestone/internal/state"
	"github.com/leapstack-labs/milestone/pkg/adapter"
	"github.com/leapstack-labs/milestone/pkg/core"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	planFlags
	NoHistory bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [job files or directories...]",
		Short: "Compile and execute ingest jobs against the target database",
		Long: `Compile each job for the target database and execute the plan: pre-actions,
deduplication and data-quality checks, then one transaction per data-split
range, then post-actions and cleanup.

Jobs run one after another in file order. Each run is recorded in the state
database; metrics are exported when metrics.textfile or metrics.push_url is set.`,
		Example: `  # Run every job in jobs_dir against the configured target
  milestone run

  # Run one job with a fixed batch start time
  milestone run jobs/orders.yaml --execution-time 2024-03-01T06:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record runs in the state database")
	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	c := NewCommandContext(cmd)
	ctx := cmd.Context()

	if c.Cfg.Target == nil {
		return errors.New("no target configured\nHint: add a target section to milestone.yaml")
	}
	jobs, err := c.loadJobs(args)
	if err != nil {
		return err
	}

	ad, err := adapter.NewAdapter(*c.Cfg.Target, c.Logger)
	if err != nil {
		return err
	}
	if err := ad.Connect(ctx, *c.Cfg.Target); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.Cfg.Target.Type, err)
	}
	defer func() { _ = ad.Close() }()

	var store state.Store
	if !opts.NoHistory {
		s, err := openStore(c.Cfg.StatePath, c.Logger)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	collector := metrics.New()
	exec := executor.New(ad.DB(), executor.Options{Logger: c.Logger, Recorder: collector})

	r := c.Renderer
	var (
		errs    []error
		results []runReport
	)
	for _, job := range jobs {
		rep := c.runJob(ctx, exec, ad, store, job, opts.planFlags)
		if rep.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, rep.err))
		}
		if !r.IsStructured() {
			renderRun(r, rep)
		}
		results = append(results, rep)
	}
	if r.IsStructured() {
		if err := r.Structured(results); err != nil {
			return err
		}
	}

	if err := exportMetrics(ctx, c, collector); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// runReport is the outcome of running one job.
type runReport struct {
	Job    string           `json:"job" yaml:"job"`
	RunID  string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Result *executor.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

func (c *CommandContext) runJob(ctx context.Context, exec *executor.Executor, ad adapter.Adapter, store state.Store, job *jobconfig.Job, f planFlags) runReport {
	rep := runReport{Job: job.Name}
	fail := func(err error) runReport {
		rep.err = err
		rep.Error = err.Error()
		return rep
	}

	req, err := c.request(job, f, ad.Dialect())
	if err != nil {
		return fail(err)
	}

	var run *state.Run
	if store != nil {
		run, err = store.CreateRun(state.NewRun{
			Job:     job.Name,
			Main:    req.Datasets.Main.QualifiedName(),
			Mode:    req.Mode.Kind().String(),
			Dialect: req.Dialect.GetName(),
		})
		if err != nil {
			return fail(fmt.Errorf("failed to record run: %w", err))
		}
		rep.RunID = run.ID
	}

	res, runErr := exec.Run(ctx, req)
	rep.Result = res

	if run != nil {
		if err := store.CompleteRun(run.ID, outcome(res, runErr)); err != nil {
			c.Logger.Warn("failed to record run outcome", slog.String("run", run.ID), slog.String("error", err.Error()))
		}
	}
	if runErr != nil {
		return fail(runErr)
	}
	return rep
}

func outcome(res *executor.Result, err error) state.Outcome {
	out := state.Outcome{Status: state.RunStatusCompleted}
	if err != nil {
		out.Status = state.RunStatusFailed
		out.Error = err.Error()
	}
	if res != nil {
		out.BatchID = res.BatchID
		out.EmptyBatch = res.EmptyBatch
		for _, rg := range res.Ranges {
			out.Ranges = append(out.Ranges, state.RangeStats{Range: rg.Range, Statistics: rg.Statistics})
		}
	}
	return out
}

func openStore(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	return store, nil
}

func exportMetrics(ctx context.Context, c *CommandContext, collector *metrics.Collector) error {
	m := c.Cfg.Metrics
	if m.Textfile != "" {
		if err := collector.WriteTextfile(m.Textfile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if m.PushURL != "" {
		job := m.Job
		if job == "" {
			job = "milestone"
		}
		if err := collector.Push(ctx, m.PushURL, job); err != nil {
			return fmt.Errorf("failed to push metrics: %w", err)
		}
	}
	return nil
}

func renderRun(r *output.Renderer, rep runReport) {
	r.Header(1, rep.Job)
	res := rep.Result
	if res != nil {
		r.KeyValue("Main", res.Main)
		r.KeyValue("Mode", res.Mode)
		if res.BatchID != 0 {
			r.KeyValue("Batch", res.BatchID)
		}
		if res.EmptyBatch {
			r.KeyValue("Empty batch", "yes")
		}
		if len(res.Ranges) > 0 {
			renderRangeStats(r, res.Ranges)
		}
	}

	if rep.err == nil {
		r.Success("completed")
		r.Println()
		return
	}
	r.Failure(rep.Error)

	var dq *executor.DataQualityError
	if errors.As(rep.err, &dq) && len(dq.Rows) > 0 {
		renderSampleRows(r, dq.Rows)
	}
	r.Println()
}

func renderRangeStats(r *output.Renderer, ranges []executor.RangeResult) {
	header := []string{"range"}
	for _, name := range core.AllStatistics {
		header = append(header, string(name))
	}
	rows := make([][]any, 0, len(ranges))
	for _, rg := range ranges {
		label := "all"
		if rg.Range != nil {
			label = fmt.Sprintf("%d-%d", rg.Range.Lower, rg.Range.Upper)
		}
		row := []any{label}
		for _, name := range core.AllStatistics {
			if v, ok := rg.Statistics[name]; ok {
				row = append(row, v)
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	r.Table(header, rows)
}
