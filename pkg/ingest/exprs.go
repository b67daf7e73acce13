package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/token"
)

func columns(alias string, names []string) []core.Expr {
	out := make([]core.Expr, len(names))
	for i, n := range names {
		out[i] = core.Col(alias, n)
	}
	return out
}

func literals(values []any) []core.Expr {
	out := make([]core.Expr, len(values))
	for i, v := range values {
		out[i] = core.LiteralOf(v)
	}
	return out
}

func compare(left core.Expr, op token.TokenType, right core.Expr) *core.BinaryExpr {
	return &core.BinaryExpr{Left: left, Op: op, Right: right}
}

func countStar() *core.FuncCall {
	return core.Func("COUNT", &core.Star{})
}

// keyMatch equates each key column of two aliases.
func keyMatch(keys []string, left, right string) core.Expr {
	terms := make([]core.Expr, len(keys))
	for i, k := range keys {
		terms[i] = core.Eq(core.Col(left, k), core.Col(right, k))
	}
	return core.And(terms...)
}

var filterOps = map[core.FilterOp]token.TokenType{
	core.FilterGT:  token.GT,
	core.FilterGTE: token.GE,
	core.FilterLT:  token.LT,
	core.FilterLTE: token.LE,
	core.FilterEQ:  token.EQ,
}

func stagingFilters(filters []core.Filter, alias string) core.Expr {
	terms := make([]core.Expr, len(filters))
	for i, f := range filters {
		terms[i] = compare(core.Col(alias, f.Field), filterOps[f.Op], core.LiteralOf(f.Value))
	}
	return core.And(terms...)
}

// splitPredicate bounds the split column by the range placeholders, which
// CompileRanges later replaces with numbers.
func splitPredicate(alias, field string) core.Expr {
	return core.And(
		compare(core.Col(alias, field), token.GE, core.String(core.SplitLowerPattern)),
		compare(core.Col(alias, field), token.LE, core.String(core.SplitUpperPattern)),
	)
}

// deleted matches rows flagged by the delete indicator; live is its negation.
func (p *plan) deleted(alias string) core.Expr {
	if p.deleteField == "" {
		return nil
	}
	return &core.InExpr{Left: core.Col(alias, p.deleteField), Values: p.deleteValues}
}

func (p *plan) live(alias string) core.Expr {
	if p.deleteField == "" {
		return nil
	}
	return &core.InExpr{Left: core.Col(alias, p.deleteField), Values: p.deleteValues, Not: true}
}

// changed holds when the staging row supersedes the main row: a newer version
// under a version resolver, otherwise a different digest.
func (p *plan) changed(sink, stage string) *core.BinaryExpr {
	v := p.mode.Versioning()
	if v.Kind != core.NoVersioning && v.Resolver != core.ResolveDigest {
		op := token.GT
		if v.Resolver == core.ResolveGreaterThanOrEqual {
			op = token.GE
		}
		return compare(core.Col(stage, p.version), op, core.Col(sink, p.version))
	}
	return core.Ne(core.Col(sink, p.digest), core.Col(stage, p.digest))
}

func (p *plan) unchanged(sink, stage string) *core.BinaryExpr {
	c := p.changed(sink, stage)
	return compare(c.Left, c.Op.Negate(), c.Right)
}

// open matches rows that are still current in transaction time.
func (p *plan) open(alias string) core.Expr {
	if p.tx.UsesBatchID() {
		return core.Eq(core.Col(alias, p.tx.BatchIDOut), core.Int(p.opts.BatchIDSentinel))
	}
	return core.Eq(core.Col(alias, p.tx.BatchTimeOut), core.Timestamp(MaxTimestamp))
}

// closeSet ends the current version of a row in this batch.
func (p *plan) closeSet() []core.Assignment {
	var set []core.Assignment
	if p.tx.UsesBatchID() {
		set = append(set, core.Assignment{Column: p.tx.BatchIDOut, Value: p.batch.previousID()})
	}
	if p.tx.UsesBatchTime() {
		set = append(set, core.Assignment{Column: p.tx.BatchTimeOut, Value: p.batch.start()})
	}
	return set
}

// openValues are the transaction column values of a row opened in this batch,
// in main schema order.
func (p *plan) openValues() []core.Expr {
	var out []core.Expr
	if p.tx.UsesBatchID() {
		out = append(out, p.batch.id(), core.Int(p.opts.BatchIDSentinel))
	}
	if p.tx.UsesBatchTime() {
		out = append(out, p.batch.start(), core.Timestamp(MaxTimestamp))
	}
	return out
}

func (p *plan) txNames() []string {
	var out []string
	if p.tx.UsesBatchID() {
		out = append(out, p.tx.BatchIDIn, p.tx.BatchIDOut)
	}
	if p.tx.UsesBatchTime() {
		out = append(out, p.tx.BatchTimeIn, p.tx.BatchTimeOut)
	}
	return out
}

// insertedIn matches rows opened by this batch.
func (p *plan) insertedIn(alias string) core.Expr {
	if p.tx.UsesBatchID() {
		return core.Eq(core.Col(alias, p.tx.BatchIDIn), p.batch.id())
	}
	return core.Eq(core.Col(alias, p.tx.BatchTimeIn), p.batch.start())
}

// closedIn matches rows closed by this batch.
func (p *plan) closedIn(alias string) core.Expr {
	if p.tx.UsesBatchID() {
		return core.Eq(core.Col(alias, p.tx.BatchIDOut), p.batch.previousID())
	}
	return core.Eq(core.Col(alias, p.tx.BatchTimeOut), p.batch.start())
}

// auditValues returns the audit columns and values of a nontemporal insert.
func (p *plan) auditValues() ([]string, []core.Expr) {
	audit := auditingOf(p.mode)
	var names []string
	var values []core.Expr
	if audit.DateTimeField != "" {
		names = append(names, audit.DateTimeField)
		values = append(values, p.batch.start())
	}
	if audit.BatchIDField != "" {
		names = append(names, audit.BatchIDField)
		values = append(values, p.batch.id())
	}
	return names, values
}
