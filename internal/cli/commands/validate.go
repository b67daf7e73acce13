package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "validate [job files or directories...]",
		Short: "Check that ingest jobs compile",
		Long: `Compile every job and report configuration and capability errors
without printing the plans. Exits non-zero when any job fails.`,
		Example: `  # Validate all jobs for the configured dialect
  milestone validate

  # Check that jobs can target MemSQL
  milestone validate --dialect memsql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	opts.register(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *CompileOptions) error {
	c := NewCommandContext(cmd)
	jobs, err := c.loadJobs(args)
	if err != nil {
		return err
	}

	results := c.compileJobs(cmd.Context(), jobs, opts.planFlags)
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
		}
	}

	r := c.Renderer
	if r.IsStructured() {
		summary := struct {
			Jobs   []compiled `json:"jobs" yaml:"jobs"`
			Failed int        `json:"failed" yaml:"failed"`
		}{Failed: failed}
		for _, res := range results {
			res.Plan = nil
			summary.Jobs = append(summary.Jobs, res)
		}
		if err := r.Structured(summary); err != nil {
			return err
		}
	} else {
		r.Header(1, fmt.Sprintf("Jobs (%d total)", len(results)))
		for _, res := range results {
			if res.err != nil {
				r.Failure(fmt.Sprintf("%s: %s", res.Job, res.Error))
				continue
			}
			r.Success(fmt.Sprintf("%s (%s, %s)", res.Job, res.Mode, res.Dialect))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed validation", failed, len(results))
	}
	return nil
}
