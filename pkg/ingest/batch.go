package ingest

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/token"
)

// batchValues renders the values that identify the running batch.
type batchValues interface {
	id() core.Expr
	previousID() core.Expr
	start() core.Expr
	end() core.Expr
}

// metadataBatch derives the batch id from the metadata table and uses the
// execution time as the batch start.
type metadataBatch struct {
	p       *plan
	startTS string
}

func (b metadataBatch) id() core.Expr {
	md := b.p.metadata
	alias := md.Name
	next := &core.BinaryExpr{
		Left:  core.Func("COALESCE", core.Func("MAX", core.Col(alias, b.p.n.mdBatchID)), core.Int(0)),
		Op:    token.PLUS,
		Right: core.Int(1),
	}
	return &core.SubqueryExpr{Select: &core.SelectStmt{
		Columns: core.Items(next),
		From:    md.Ref(alias),
		Where: core.Eq(
			core.Func("UPPER", core.Col(alias, b.p.n.mdTableName)),
			core.String(strings.ToUpper(b.p.main.Name)),
		),
	}}
}

func (b metadataBatch) previousID() core.Expr {
	return &core.BinaryExpr{Left: b.id(), Op: token.MINUS, Right: core.Int(1)}
}

func (b metadataBatch) start() core.Expr { return core.Timestamp(b.startTS) }

func (b metadataBatch) end() core.Expr { return &core.CurrentTimestamp{} }

// placeholderBatch leaves pattern tokens for the caller to substitute.
type placeholderBatch struct{}

func (placeholderBatch) id() core.Expr { return core.Raw(core.BatchIDPattern) }

func (placeholderBatch) previousID() core.Expr {
	return &core.BinaryExpr{Left: core.Raw(core.BatchIDPattern), Op: token.MINUS, Right: core.Int(1)}
}

func (placeholderBatch) start() core.Expr { return core.Timestamp(core.BatchStartTSPattern) }

func (placeholderBatch) end() core.Expr { return core.Timestamp(core.BatchEndTSPattern) }

// ---------- Metadata ----------

func (p *plan) createMetadata() core.Statement {
	return &core.CreateStmt{Table: p.metadata.Ref(""), Fields: p.metadata.Schema.Fields, IfNotExists: true}
}

// metadataInsert records the batch. The source info and additional metadata
// columns are only written when there is something to record.
func (p *plan) metadataInsert() (core.Statement, error) {
	cols := []string{p.n.mdTableName, p.n.mdBatchID, p.n.mdStart, p.n.mdEnd, p.n.mdStatus}
	values := []core.Expr{
		core.String(p.main.Name),
		p.batch.id(),
		p.batch.start(),
		p.batch.end(),
		core.String(p.opts.BatchSuccessStatus),
	}

	if info := p.batchSourceInfo(); info != nil {
		doc, err := json.Marshal(info)
		if err != nil {
			return nil, fmt.Errorf("encoding batch source info: %w", err)
		}
		cols = append(cols, p.n.mdSourceInfo)
		values = append(values, core.JSON(string(doc)))
	}
	if len(p.opts.AdditionalMetadata) > 0 {
		doc, err := json.Marshal(p.opts.AdditionalMetadata)
		if err != nil {
			return nil, fmt.Errorf("encoding additional metadata: %w", err)
		}
		cols = append(cols, p.n.mdAdditional)
		values = append(values, core.JSON(string(doc)))
	}

	return &core.InsertStmt{
		Table:   p.metadata.Ref(""),
		Columns: cols,
		Select:  &core.SelectStmt{Columns: core.Items(values...)},
	}, nil
}

// batchSourceInfo describes the staging filters applied to this batch.
func (p *plan) batchSourceInfo() map[string]any {
	if len(p.staging.Filters) == 0 {
		return nil
	}
	filters := make(map[string]any, len(p.staging.Filters))
	for _, f := range p.staging.Filters {
		ops, ok := filters[f.Field].(map[string]any)
		if !ok {
			ops = map[string]any{}
			filters[f.Field] = ops
		}
		ops[string(f.Op)] = f.Value
	}
	return map[string]any{"staging_filters": filters}
}

// ---------- Lock ----------

func (p *plan) createLock() core.Statement {
	return &core.CreateStmt{Table: p.lock.Ref(""), Fields: p.lock.Schema.Fields, IfNotExists: true}
}

// initializeLock inserts the lock row once per main table.
func (p *plan) initializeLock() core.Statement {
	return &core.InsertStmt{
		Table:   p.lock.Ref(""),
		Columns: []string{p.n.lockInsertTS, p.n.lockTableName},
		Select: &core.SelectStmt{
			Columns: core.Items(p.batch.start(), core.String(p.main.Name)),
			Where:   core.Not(core.Exists(&core.SelectStmt{From: p.lock.Ref(p.lock.Name)})),
		},
	}
}

// acquireLock touches the lock row; the row lock is held until the
// surrounding transaction ends.
func (p *plan) acquireLock() core.Statement {
	return &core.UpdateStmt{
		Table: p.lock.Ref(p.lock.Name),
		Set:   []core.Assignment{{Column: p.n.lockLastUsed, Value: p.batch.start()}},
	}
}
