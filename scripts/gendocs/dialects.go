package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/milestone/pkg/adapter"
	"github.com/leapstack-labs/milestone/pkg/dialect"
)

// documentedFeatures are the optional constructs shown in the capability table.
var documentedFeatures = []dialect.Feature{
	dialect.FeatureMerge,
	dialect.FeatureCTE,
	dialect.FeatureWindow,
	dialect.FeatureTruncate,
	dialect.FeaturePrimaryKeyNotEnforced,
	dialect.FeatureDropCascade,
}

// generateDialectDocs writes dialects.md from the dialect registry. The cli
// import in cli.go registers every built-in dialect and adapter.
func generateDialectDocs(outDir string) error {
	log.Printf("Generating dialect docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Dialects", "SQL dialects supported by milestone")
	w.GeneratedMarker()

	w.Header(1, "Dialects")
	w.Paragraph("A job compiles against exactly one dialect. The dialect is chosen by the `--dialect` flag, " +
		"then the job's `dialect` key, then the dialect of the configured target, then `dialect` in `milestone.yaml`.")

	names := dialect.List()

	w.Header(2, "Capabilities")
	headers := []string{"Dialect", "Default schema", "Update style"}
	for _, f := range documentedFeatures {
		headers = append(headers, string(f))
	}
	headers = append(headers, "Executable")

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		schema := d.DefaultSchema
		if schema == "" {
			schema = "-"
		}
		row := []string{InlineCode(name), schema, d.UpdateStyle().String()}
		for _, f := range documentedFeatures {
			row = append(row, mark(d.Supports(f)))
		}
		rows = append(rows, append(row, mark(adapter.IsRegistered(name))))
	}
	w.Table(headers, rows)

	w.Header(2, "Missing capabilities")
	w.Paragraph("When a mode needs a construct the dialect lacks, compilation fails with a capability error " +
		"naming the dialect and the construct. A dialect without `MERGE` compiles a nontemporal delta " +
		"as an UPDATE followed by an INSERT instead.")

	w.Header(2, "Executable dialects")
	w.Paragraph("Dialects marked executable have a registered adapter, so `milestone run` can apply the " +
		"compiled plan to a live database. All other dialects are compile-only.")
	w.BulletList(adapter.ListAdapters())

	filename := filepath.Join(outDir, "dialects.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated dialects.md")
	return nil
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}
