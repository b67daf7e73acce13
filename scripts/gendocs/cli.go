package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/milestone/internal/cli"
	"github.com/leapstack-labs/milestone/internal/cli/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagConfigKeys maps persistent flags whose config key differs from the flag name.
var flagConfigKeys = map[string]string{
	"state": "state_path",
	"env":   "environment",
}

// generateCLIDocs writes index.md and one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	if err := generateCLIIndex(root, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	for _, cmd := range visibleCommands(root) {
		if err := generateCommandPage(cmd, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}
	return nil
}

func visibleCommands(parent *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range parent.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "completion" || strings.HasPrefix(cmd.Name(), "__") {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func generateCLIIndex(root *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for milestone")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("milestone compiles ingest jobs into milestoning SQL, validates them against a dialect, " +
		"runs them on a target database and keeps a history of runs.")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/milestone/cmd/milestone@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Typical workflow")
	w.CodeBlock("bash", `milestone validate              # every job in jobs_dir compiles
milestone compile jobs/orders.yaml -o markdown
milestone run jobs/orders.yaml  # executes against target
milestone history -n 5`)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Each global option can also be set through the environment. Any other configuration key works " +
		"the same way, with a double underscore for nesting (`MILESTONE_TARGET__PASSWORD`). " +
		"A `.env` file in the project root is loaded first, and flags win over the environment.")
	w.Table([]string{"Variable", "Option"}, envRows(root.PersistentFlags()))

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Any failure: configuration, compilation, data quality or database errors"},
	})

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// envRows lists the environment variable behind each persistent flag.
func envRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "config" {
			return
		}
		key, ok := flagConfigKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		rows = append(rows, []string{InlineCode(config.EnvPrefix + strings.ToUpper(key)), InlineCode("--" + f.Name)})
	})
	return rows
}

func generateCommandPage(cmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	w.Header(2, "Usage")
	use := cmd.UseLine()
	if !strings.HasPrefix(use, "milestone") {
		use = "milestone " + use
	}
	w.CodeBlock("bash", use)

	if len(cmd.Aliases) > 0 {
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.Header(2, "Aliases")
		w.BulletList(aliases)
	}

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}

	return os.WriteFile(filepath.Join(outDir, cmd.Name()+".md"), w.Bytes(), 0600)
}

func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		if def != "" && f.Value.Type() == "string" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

// dedent strips the indentation shared by every non-blank line.
func dedent(text string) string {
	lines := strings.Split(text, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, line := range lines {
			if len(line) >= indent {
				lines[i] = line[indent:]
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
