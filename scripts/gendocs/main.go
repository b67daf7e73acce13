// Package main generates the markdown reference documentation of milestone
// from the CLI command tree, the dialect registry and the configuration
// schema.
//
// Usage:
//
//	go run ./scripts/gendocs -gen=cli -outdir=docs/cli
//	go run ./scripts/gendocs -gen=dialects -outdir=docs/reference
//	go run ./scripts/gendocs -gen=schema -outdir=docs/reference
//	go run ./scripts/gendocs -gen=all
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
)

var (
	genFlag    = flag.String("gen", "all", "what to generate: cli, dialects, schema, all")
	outDirFlag = flag.String("outdir", "", "output directory (defaults based on gen type)")
)

type generator struct {
	defaultDir string
	run        func(outDir string) error
}

var generators = map[string]generator{
	"cli":      {defaultDir: filepath.Join("docs", "cli"), run: generateCLIDocs},
	"dialects": {defaultDir: filepath.Join("docs", "reference"), run: generateDialectDocs},
	"schema":   {defaultDir: filepath.Join("docs", "reference"), run: generateSchemaDocs},
}

func main() {
	flag.Parse()

	projectRoot, err := findProjectRoot()
	if err != nil {
		log.Fatalf("failed to find project root: %v", err)
	}
	log.Printf("Project root: %s", projectRoot)

	if *genFlag == "all" {
		for _, name := range []string{"cli", "dialects", "schema"} {
			g := generators[name]
			if err := g.run(filepath.Join(projectRoot, g.defaultDir)); err != nil {
				log.Fatalf("failed to generate %s docs: %v", name, err)
			}
		}
		log.Println("Done!")
		return
	}

	g, ok := generators[*genFlag]
	if !ok {
		log.Fatalf("unknown -gen value: %s (use: cli, dialects, schema, all)", *genFlag)
	}
	outDir := *outDirFlag
	if outDir == "" {
		outDir = filepath.Join(projectRoot, g.defaultDir)
	}
	if err := g.run(outDir); err != nil {
		log.Fatalf("failed to generate %s docs: %v", *genFlag, err)
	}
	log.Println("Done!")
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
