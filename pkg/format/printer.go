package format

import (
	"bytes"

	"github.com/leapstack-labs/milestone/pkg/dialect"
)

// Printer accumulates rendered SQL for one statement.
type Printer struct {
	dialect *dialect.Dialect
	output  *bytes.Buffer
	err     error
}

func newPrinter(d *dialect.Dialect) *Printer {
	return &Printer{
		dialect: d,
		output:  &bytes.Buffer{},
	}
}

// String returns the formatted output.
func (p *Printer) String() string {
	return p.output.String()
}

func (p *Printer) write(s string) {
	p.output.WriteString(s)
}

func (p *Printer) space() {
	p.output.WriteByte(' ')
}

func (p *Printer) ident(name string) {
	p.write(p.dialect.QuoteIdentifier(name))
}

// require records the first capability error; rendering continues so the
// caller gets one error per statement.
func (p *Printer) require(f dialect.Feature) {
	if p.err != nil {
		return
	}
	p.err = p.dialect.Require(f)
}

// formatList prints a list of items with separators.
// count is the number of items, format is called for each index,
// sep is the separator string.
func (p *Printer) formatList(count int, format func(i int), sep string) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
		}
	}
}

// parenthesized prints ( fn ).
func (p *Printer) parenthesized(fn func()) {
	p.write("(")
	fn()
	p.write(")")
}
