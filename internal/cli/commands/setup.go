package commands

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/milestone/internal/cli/config"
	"github.com/leapstack-labs/milestone/internal/cli/output"
	jobconfig "github.com/leapstack-labs/milestone/internal/config"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/leapstack-labs/milestone/pkg/ingest"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the context for cmd from the config and logger
// stored by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		mode = output.ModeAuto
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// loadJobs loads the job files named by args, or every job in the
// configured jobs directory.
func (c *CommandContext) loadJobs(args []string) ([]*jobconfig.Job, error) {
	paths := args
	if len(paths) == 0 {
		paths = []string{c.Cfg.JobsDir}
	}
	files, err := jobconfig.FindJobs(paths)
	if err != nil {
		return nil, err
	}
	jobs := make([]*jobconfig.Job, 0, len(files))
	for _, f := range files {
		job, err := jobconfig.Load(f)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	c.Logger.Debug("loaded jobs", slog.Int("count", len(jobs)))
	return jobs, nil
}

// planFlags are the compile settings shared by compile, validate and run.
type planFlags struct {
	dialect       string
	placeholders  bool
	emptyBatch    bool
	executionTime string
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dialect, "dialect", "", "Dialect to compile for (overrides the job and config)")
	cmd.Flags().BoolVar(&f.placeholders, "placeholders", false, "Leave batch id and batch time placeholders in the SQL")
	cmd.Flags().StringVar(&f.executionTime, "execution-time", "", "Batch start time (RFC 3339, default now)")
}

// request converts job into a compile request. The dialect is taken from
// the --dialect flag, then the job, then fallback (the target's dialect),
// then the configured default.
func (c *CommandContext) request(job *jobconfig.Job, f planFlags, fallback *dialect.Dialect) (ingest.Request, error) {
	name := f.dialect
	if name == "" {
		name = job.Dialect
	}
	if name == "" && fallback == nil {
		name = c.Cfg.Dialect
	}

	d := fallback
	if name != "" {
		var err error
		if d, err = dialect.Lookup(name); err != nil {
			return ingest.Request{}, err
		}
	}
	if d == nil {
		return ingest.Request{}, dialect.ErrDialectRequired
	}

	req, err := job.Request(d)
	if err != nil {
		return ingest.Request{}, err
	}
	if f.placeholders {
		req.Options.Placeholders = true
	}
	if f.emptyBatch {
		req.Options.EmptyBatch = true
	}
	if f.executionTime != "" {
		ts, err := time.Parse(time.RFC3339, f.executionTime)
		if err != nil {
			return ingest.Request{}, fmt.Errorf("invalid --execution-time %q: %w", f.executionTime, err)
		}
		req.Options.ExecutionTime = ts.UTC()
	}
	req.Options.Logger = c.Logger.With(slog.String("job", job.Name))
	return req, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
