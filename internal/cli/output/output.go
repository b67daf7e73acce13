// Package output renders CLI results as styled text, markdown, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// OutputMode selects how results are written.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
	ModeYAML     OutputMode = "yaml"
)

// Modes lists the accepted --output values.
var Modes = []string{string(ModeAuto), string(ModeText), string(ModeMarkdown), string(ModeJSON), string(ModeYAML)}

// ParseMode validates an output mode name. The empty string is auto.
func ParseMode(s string) (OutputMode, error) {
	switch m := OutputMode(strings.ToLower(s)); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeText, ModeMarkdown, ModeJSON, ModeYAML:
		return m, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(Modes, ", "))
	}
}

// Renderer writes command output in the selected mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   OutputMode
	isTTY  bool
	styles *termenv.Output
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return NewRendererWithTTY(out, errOut, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	profile := termenv.Ascii
	if isTTY {
		profile = termenv.ANSI256
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
		styles: termenv.NewOutput(out, termenv.WithProfile(profile)),
	}
}

// EffectiveMode resolves auto: text on a terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsStructured reports whether output is machine-readable.
func (r *Renderer) IsStructured() bool {
	m := r.EffectiveMode()
	return m == ModeJSON || m == ModeYAML
}

// Out returns the primary writer.
func (r *Renderer) Out() io.Writer { return r.out }

// Println writes a line to stdout.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to stdout.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Warn writes a line to stderr.
func (r *Renderer) Warn(format string, a ...any) {
	_, _ = fmt.Fprintf(r.errOut, format+"\n", a...)
}

// Header writes a section heading.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		r.Println()
		return
	}
	r.Println(r.styles.String(text).Bold().String())
}

// Success writes a status line marked as passed.
func (r *Renderer) Success(text string) {
	r.status("✓", "2", text)
}

// Failure writes a status line marked as failed.
func (r *Renderer) Failure(text string) {
	r.status("✗", "1", text)
}

func (r *Renderer) status(mark, color, text string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Printf("- %s %s\n", mark, text)
		return
	}
	styled := r.styles.String(mark).Foreground(r.styles.Color(color)).String()
	r.Printf("%s %s\n", styled, text)
}

// KeyValue writes a labelled value.
func (r *Renderer) KeyValue(key string, value any) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatKeyValue(key, fmt.Sprint(value)))
		return
	}
	r.Printf("%s: %v\n", r.styles.String(key).Faint().String(), value)
}

// CodeBlock writes SQL text, fenced in markdown mode.
func (r *Renderer) CodeBlock(lang, code string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Printf("```%s\n%s\n```\n", lang, code)
		return
	}
	r.Println(code)
}

// Table writes rows under a header. Markdown mode emits a pipe table.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	if r.isTTY {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleDefault)
	}

	h := make(table.Row, len(header))
	for i, col := range header {
		h[i] = col
	}
	t.AppendHeader(h)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Structured writes v in the structured mode in effect (JSON or YAML).
func (r *Renderer) Structured(v any) error {
	if r.EffectiveMode() == ModeYAML {
		return r.YAML(v)
	}
	return r.JSON(v)
}

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown bold key/value line.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("**%s:** %s", key, value)
}
