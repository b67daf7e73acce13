// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/milestone/internal/cli/output"
)

// SnapshotJob is a nontemporal snapshot job on the ansi dialect with a
// three-column staging schema.
const SnapshotJob = `dialect: ansi
datasets:
  main:
    name: main
  staging:
    name: staging
schema:
  - name: id
    type: integer
    role: primary_key
  - name: name
    type: varchar
    length: 64
  - name: amount
    type: double
mode:
  kind: nontemporal_snapshot
`

// SetupTestProject creates a temporary project with a milestone.yaml and a
// jobs directory holding the given job files (name -> YAML).
func SetupTestProject(t *testing.T, config string, jobs map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	jobsDir := filepath.Join(dir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		t.Fatalf("failed to create jobs directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "milestone.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("failed to write milestone.yaml: %v", err)
	}
	for name, content := range jobs {
		if err := os.WriteFile(filepath.Join(jobsDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write job %s: %v", name, err)
		}
	}
	return dir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
