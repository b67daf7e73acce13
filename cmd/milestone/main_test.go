package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/milestone/internal/cli"
)

const job = `dialect: duckdb
datasets:
  main:
    group: mart
    name: customers
  staging:
    group: raw
    name: customers_stage
schema:
  - name: id
    type: bigint
    role: primary_key
  - name: email
    type: varchar
  - name: digest
    type: varchar
    role: digest
mode:
  kind: unitemporal_delta
`

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(buf.String(), "milestone v") {
		t.Errorf("version output should contain 'milestone v', got: %s", buf.String())
	}
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "jobs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "milestone.yaml"), []byte("output: markdown\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "jobs", "customers.yaml"), []byte(job), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := cli.NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"compile", "--config", filepath.Join(dir, "milestone.yaml")})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("compile command error = %v", err)
	}
	for _, want := range []string{"# customers", "**Mode:** unitemporal_delta", "mart.customers", "## Ingest"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("compile output should contain %q, got:\n%s", want, out.String())
		}
	}
}
