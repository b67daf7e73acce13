// Package format renders SQL IR statements to dialect-specific text.
//
// Rendering is single-line and deterministic: the same statement and dialect
// always produce the same bytes. Predicate conjunctions and disjunctions are
// fully parenthesized per term.
package format

import (
	"fmt"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
)

// Statement renders one statement. It fails with a *dialect.CapabilityError
// when the statement needs a feature d does not have.
func Statement(stmt core.Statement, d *dialect.Dialect) (string, error) {
	if d == nil {
		return "", dialect.ErrDialectRequired
	}
	p := newPrinter(d)
	p.formatStatement(stmt)
	if p.err != nil {
		return "", p.err
	}
	return p.String(), nil
}

// Statements renders statements in order, stopping at the first error.
func Statements(stmts []core.Statement, d *dialect.Dialect) ([]string, error) {
	out := make([]string, 0, len(stmts))
	for i, stmt := range stmts {
		sql, err := Statement(stmt, d)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		out = append(out, sql)
	}
	return out, nil
}

// Expression renders a standalone expression.
func Expression(expr core.Expr, d *dialect.Dialect) (string, error) {
	if d == nil {
		return "", dialect.ErrDialectRequired
	}
	p := newPrinter(d)
	p.formatExpr(expr)
	if p.err != nil {
		return "", p.err
	}
	return p.String(), nil
}
