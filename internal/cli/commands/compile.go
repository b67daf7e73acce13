package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/milestone/internal/cli/output"
	jobconfig "github.com/leapstack-labs/milestone/internal/config"
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/ingest"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	planFlags
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile [job files or directories...]",
		Short: "Compile ingest jobs into SQL plans",
		Long: `Compile ingest jobs into the ordered SQL statements an executor runs.

Without arguments every job in jobs_dir is compiled. Jobs are compiled
concurrently; output follows the order of the job files.`,
		Example: `  # Print the plan for one job
  milestone compile jobs/orders.yaml

  # Compile for Snowflake with batch placeholders, as JSON
  milestone compile jobs/orders.yaml --dialect snowflake --placeholders -o json

  # Compile the plan used when staging is empty
  milestone compile jobs/orders.yaml --empty-batch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.emptyBatch, "empty-batch", false, "Compile for an empty staging dataset")
	return cmd
}

// compiled is the outcome of compiling one job.
type compiled struct {
	Job     string                `json:"job" yaml:"job"`
	Path    string                `json:"path,omitempty" yaml:"path,omitempty"`
	Dialect string                `json:"dialect,omitempty" yaml:"dialect,omitempty"`
	Mode    string                `json:"mode,omitempty" yaml:"mode,omitempty"`
	Main    string                `json:"main,omitempty" yaml:"main,omitempty"`
	Plan    *core.GeneratorResult `json:"plan,omitempty" yaml:"plan,omitempty"`
	Error   string                `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// compileJobs compiles every job concurrently. Results keep the job order.
func (c *CommandContext) compileJobs(ctx context.Context, jobs []*jobconfig.Job, f planFlags) []compiled {
	results := make([]compiled, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.compileJob(job, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i := range results {
			if results[i].Job == "" {
				results[i] = compiled{Job: jobs[i].Name, Path: jobs[i].Path, Error: err.Error(), err: err}
			}
		}
	}
	return results
}

func (c *CommandContext) compileJob(job *jobconfig.Job, f planFlags) compiled {
	out := compiled{Job: job.Name, Path: job.Path}
	fail := func(err error) compiled {
		out.err = err
		out.Error = err.Error()
		return out
	}

	req, err := c.request(job, f, nil)
	if err != nil {
		return fail(err)
	}
	out.Dialect = req.Dialect.GetName()
	out.Mode = req.Mode.Kind().String()
	out.Main = req.Datasets.Main.QualifiedName()

	plan, err := ingest.Compile(req)
	if err != nil {
		return fail(err)
	}
	out.Plan = plan
	return out
}

func runCompile(cmd *cobra.Command, args []string, opts *CompileOptions) error {
	c := NewCommandContext(cmd)
	jobs, err := c.loadJobs(args)
	if err != nil {
		return err
	}

	results := c.compileJobs(cmd.Context(), jobs, opts.planFlags)

	var errs []error
	for _, res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Job, res.err))
		}
	}

	r := c.Renderer
	if r.IsStructured() {
		if err := r.Structured(results); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	for _, res := range results {
		renderPlan(r, res)
	}
	return errors.Join(errs...)
}

// section is a titled group of statements of a plan.
type section struct {
	Title      string
	Statements []string
}

// planSections lists the plan in execution order.
func planSections(p *core.GeneratorResult) []section {
	sections := []section{
		{"Pre-actions", p.PreActionsSQL},
		{"Initialize lock", p.InitializeLockSQL},
		{"Acquire lock", p.AcquireLockSQL},
		{"Deduplication and versioning", p.DedupAndVersioningSQL},
	}
	for _, check := range core.ErrorCheckOrder {
		if q, ok := p.DedupAndVersioningErrorChecksSQL[check]; ok {
			sections = append(sections, section{"Error check " + string(check), []string{q}})
		}
		if q, ok := p.DedupAndVersioningErrorRowsSQL[check.SampleFor()]; ok {
			sections = append(sections, section{"Error rows " + string(check.SampleFor()), []string{q}})
		}
	}
	if p.DataSplitValuesSQL != "" {
		sections = append(sections, section{"Data split values", []string{p.DataSplitValuesSQL}})
	}
	sections = append(sections, statSections("Pre-ingest statistic", p.PreIngestStatisticsSQL)...)
	sections = append(sections, section{"Ingest", p.IngestSQL})
	sections = append(sections, statSections("Post-ingest statistic", p.PostIngestStatisticsSQL)...)
	sections = append(sections,
		section{"Metadata", p.MetadataIngestSQL},
		section{"Post-actions", p.PostActionsSQL},
		section{"Post-cleanup", p.PostCleanupSQL},
	)

	out := sections[:0]
	for _, s := range sections {
		if len(s.Statements) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func statSections(prefix string, queries map[core.StatisticName]string) []section {
	var out []section
	for _, name := range core.AllStatistics {
		if q, ok := queries[name]; ok {
			out = append(out, section{prefix + " " + string(name), []string{q}})
		}
	}
	return out
}

func renderPlan(r *output.Renderer, res compiled) {
	r.Header(1, res.Job)
	if res.err != nil {
		r.Failure(res.Error)
		r.Println()
		return
	}
	r.KeyValue("Main", res.Main)
	r.KeyValue("Mode", res.Mode)
	r.KeyValue("Dialect", res.Dialect)
	r.Println()

	for _, s := range planSections(res.Plan) {
		r.Header(2, s.Title)
		stmts := make([]string, len(s.Statements))
		for i, stmt := range s.Statements {
			stmts[i] = stmt + ";"
		}
		r.CodeBlock("sql", strings.Join(stmts, "\n"))
		r.Println()
	}
}
