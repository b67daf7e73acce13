package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/milestone/internal/state"
	"github.com/leapstack-labs/milestone/pkg/core"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	RunID string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [job]",
		Short: "Show recorded runs",
		Long:  `List recent runs from the state database, newest first, optionally for one job.`,
		Example: `  # Last 20 runs of every job
  milestone history

  # Last 5 runs of the orders job as JSON
  milestone history orders --limit 5 -o json

  # Per-range statistics of one run
  milestone history --run 6f1c2a9e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := ""
			if len(args) == 1 {
				job = args[0]
			}
			return runHistory(cmd, job, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "Show one run with its per-range statistics")
	return cmd
}

func runHistory(cmd *cobra.Command, job string, opts *HistoryOptions) error {
	c := NewCommandContext(cmd)
	store, err := openStore(c.Cfg.StatePath, c.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	r := c.Renderer
	if opts.RunID != "" {
		run, err := store.GetRun(opts.RunID)
		if err != nil {
			return err
		}
		if r.IsStructured() {
			return r.Structured(run)
		}
		renderRunDetail(c, run)
		return nil
	}

	runs, err := store.ListRuns(job, opts.Limit)
	if err != nil {
		return err
	}
	if r.IsStructured() {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.Structured(runs)
	}
	if len(runs) == 0 {
		r.Println("No runs recorded.")
		return nil
	}

	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		batch := ""
		if run.BatchID != nil {
			batch = fmt.Sprint(*run.BatchID)
		}
		rows = append(rows, []any{
			shortID(run.ID),
			run.Job,
			run.Mode,
			string(run.Status),
			batch,
			run.Total(core.StatIncomingRecordCount),
			run.Total(core.StatRowsInserted),
			run.StartedAt.Local().Format(time.DateTime),
			duration(run),
		})
	}
	r.Table([]string{"run", "job", "mode", "status", "batch", "incoming", "inserted", "started", "duration"}, rows)
	return nil
}

func renderRunDetail(c *CommandContext, run *state.Run) {
	r := c.Renderer
	r.Header(1, fmt.Sprintf("%s (%s)", run.Job, run.ID))
	r.KeyValue("Main", run.Main)
	r.KeyValue("Mode", run.Mode)
	r.KeyValue("Dialect", run.Dialect)
	r.KeyValue("Status", run.Status)
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	r.KeyValue("Duration", duration(run))
	if run.Error != "" {
		r.Failure(run.Error)
	}

	header := []string{"range"}
	for _, name := range core.AllStatistics {
		header = append(header, string(name))
	}
	rows := make([][]any, 0, len(run.Ranges))
	for _, rg := range run.Ranges {
		label := "all"
		if rg.Range != nil {
			label = fmt.Sprintf("%d-%d", rg.Range.Lower, rg.Range.Upper)
		}
		row := []any{label}
		for _, name := range core.AllStatistics {
			row = append(row, rg.Statistics[name])
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		r.Table(header, rows)
	}
}

func duration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
