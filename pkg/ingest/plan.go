package ingest

import (
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
)

// plan is the resolved state of one compilation: folded datasets, the derived
// main schema and the technical columns every builder reads from.
type plan struct {
	d    *dialect.Dialect
	opts Options
	mode core.IngestMode
	n    names

	main        core.Dataset
	staging     core.Dataset
	metadata    core.Dataset
	lock        core.Dataset
	tempStaging *core.Dataset
	temp        core.Dataset
	tempDelete  core.Dataset
	noDup       *core.Dataset // from-only staging minus rows already open in main

	batch batchValues

	business     []core.Field // staging columns copied into main
	pks          []string     // business primary key
	digest       string
	version      string
	splitField   string // empty when the plan does not run per data split
	deleteField  string
	deleteValues []core.Expr

	tx       core.Transaction
	temporal bool
	validity core.Validity
	fromSrc  string // staging valid-from column
	thruSrc  string // staging valid-through column
}

func newPlan(d *dialect.Dialect, opts Options, ds core.Datasets, mode core.IngestMode) (*plan, error) {
	fold := opts.CaseConversion.caser()
	suffix := ""
	if opts.EnableConcurrentSafety {
		// Hashed before folding so only the case of the suffix follows the policy.
		suffix = fold(tableSuffix(ds))
	}
	ds = foldDatasets(ds, fold)
	mode = foldMode(mode, fold)

	p := &plan{
		d:       d,
		opts:    opts,
		mode:    mode,
		n:       newNames(fold),
		staging: ds.Staging,
	}
	if err := p.validate(ds); err != nil {
		return nil, err
	}

	p.resolveFields()
	p.main = ds.Main
	if len(p.main.Schema.Fields) == 0 {
		p.main.Schema = p.deriveMainSchema()
	}

	p.metadata = ds.Metadata
	if p.metadata.Name == "" {
		p.metadata.Name = fold(DefaultMetadataTable)
	}
	p.metadata.Schema = p.metadataSchema()

	p.lock = core.Dataset{
		Database: p.main.Database,
		Group:    p.main.Group,
		Name:     p.main.Name + p.n.lockSuffix,
		Schema:   p.lockSchema(),
	}
	if p.needsTempStaging() {
		ts := core.Dataset{
			Database: p.staging.Database,
			Group:    p.staging.Group,
			Name:     p.staging.Name + p.n.tempStagingSuffix + suffix,
			Schema:   p.tempStagingSchema(),
		}
		p.tempStaging = &ts
	}
	if p.fromOnly() {
		p.temp = p.tempDataset(ds.Temp, p.n.tempSuffix+suffix, p.main.Schema)
		if p.deleteField != "" {
			schema := p.main.Schema.Append(core.Field{Name: p.deleteField, Type: core.DataType{Kind: core.TypeInteger}})
			p.tempDelete = p.tempDataset(ds.TempWithDeleteIndicator, p.n.tempDeleteSuffix+suffix, schema)
		}
		if p.mode.Dedup() == core.FilterDuplicates {
			src := p.source()
			p.noDup = &core.Dataset{
				Database: src.Database,
				Group:    src.Group,
				Name:     p.staging.Name + p.n.noDupSuffix + suffix,
				Schema:   src.Schema,
			}
		}
	}
	p.resolveSplit()

	if opts.Placeholders {
		p.batch = placeholderBatch{}
	} else {
		p.batch = metadataBatch{p: p, startTS: opts.batchStart()}
	}
	return p, nil
}

func (p *plan) tempDataset(given core.Dataset, suffix string, schema core.Schema) core.Dataset {
	ds := given
	if ds.Name == "" {
		ds.Database = p.main.Database
		ds.Group = p.main.Group
		ds.Name = p.main.Name + suffix
	}
	ds.Schema = schema
	return ds
}

// resolveFields reads the technical columns out of the staging schema and
// the mode.
func (p *plan) resolveFields() {
	s := p.staging.Schema
	if f, ok := s.FieldByRole(core.RoleDigest); ok {
		p.digest = f.Name
	}
	p.version = p.mode.Versioning().Field
	if f, ok := s.FieldByRole(core.RoleDeleteIndicator); ok {
		if di := deleteIndicatorOf(p.mode); di != nil {
			p.deleteField = f.Name
			p.deleteValues = literals(di.Values)
		}
	}
	if tx, ok := core.TransactionOf(p.mode); ok {
		p.temporal = true
		p.tx = tx
	}

	drop := []core.FieldRole{core.RoleDeleteIndicator, core.RoleDataSplit}
	if bt, ok := p.mode.(core.Bitemporal); ok {
		p.validity = bt.Validity.WithDefaults()
		if f, ok := s.FieldByRole(core.RoleValidityFrom); ok {
			p.fromSrc = f.Name
		}
		if f, ok := s.FieldByRole(core.RoleValidityThrough); ok {
			p.thruSrc = f.Name
		}
		drop = append(drop, core.RoleValidityFrom, core.RoleValidityThrough)
	}
	p.business = s.Without(drop...).Fields
	for _, f := range p.business {
		if f.IsPrimaryKey() {
			p.pks = append(p.pks, f.Name)
		}
	}
}

func (p *plan) resolveSplit() {
	if p.mode.Versioning().Kind == core.AllVersion {
		p.splitField = p.n.dataSplit
		return
	}
	if f, ok := p.staging.Schema.FieldByRole(core.RoleDataSplit); ok {
		p.splitField = f.Name
	}
}

func deleteIndicatorOf(m core.IngestMode) *core.DeleteIndicator {
	switch m := m.(type) {
	case core.NontemporalDelta:
		return m.DeleteIndicator
	case core.UnitemporalDelta:
		return m.DeleteIndicator
	case core.Bitemporal:
		return m.DeleteIndicator
	default:
		return nil
	}
}

func auditingOf(m core.IngestMode) core.Auditing {
	switch m := m.(type) {
	case core.NontemporalSnapshot:
		return m.Auditing
	case core.NontemporalDelta:
		return m.Auditing
	case core.AppendOnly:
		return m.Auditing
	default:
		return core.Auditing{}
	}
}

func (p *plan) fromOnly() bool {
	_, ok := p.mode.(core.Bitemporal)
	return ok && p.validity.Kind == core.ValidFromOnly
}

// needsTempStaging reports whether staging is copied into a deduplicated,
// versioned temp table before milestoning.
func (p *plan) needsTempStaging() bool {
	return p.mode.Dedup() != core.AllowDuplicates || p.mode.Versioning().StageVersioned()
}

// ---------- Schemas ----------

func (p *plan) deriveMainSchema() core.Schema {
	fields := make([]core.Field, 0, len(p.business)+4)
	fields = append(fields, p.business...)
	hasPK := len(p.pks) > 0

	if audit := auditingOf(p.mode); audit != (core.Auditing{}) {
		_, appendOnly := p.mode.(core.AppendOnly)
		if audit.DateTimeField != "" {
			fields = append(fields, core.Field{
				Name:       audit.DateTimeField,
				Type:       core.DataType{Kind: core.TypeDatetime},
				PrimaryKey: appendOnly && hasPK,
			})
		}
		if audit.BatchIDField != "" {
			fields = append(fields, core.Field{Name: audit.BatchIDField, Type: core.DataType{Kind: core.TypeInteger}})
		}
	}

	if p.temporal {
		if p.tx.UsesBatchID() {
			fields = append(fields,
				core.Field{Name: p.tx.BatchIDIn, Type: core.DataType{Kind: core.TypeInteger}, Role: core.RoleBatchIDIn, PrimaryKey: hasPK},
				core.Field{Name: p.tx.BatchIDOut, Type: core.DataType{Kind: core.TypeInteger}, Role: core.RoleBatchIDOut},
			)
		}
		if p.tx.UsesBatchTime() {
			fields = append(fields,
				core.Field{Name: p.tx.BatchTimeIn, Type: core.DataType{Kind: core.TypeDatetime}, Role: core.RoleBatchTimeIn, PrimaryKey: hasPK && !p.tx.UsesBatchID()},
				core.Field{Name: p.tx.BatchTimeOut, Type: core.DataType{Kind: core.TypeDatetime}, Role: core.RoleBatchTimeOut},
			)
		}
	}

	if _, ok := p.mode.(core.Bitemporal); ok {
		fields = append(fields,
			core.Field{Name: p.validity.FromTarget, Type: core.DataType{Kind: core.TypeDatetime}, Role: core.RoleValidityFrom, PrimaryKey: true},
			core.Field{Name: p.validity.ThroughTarget, Type: core.DataType{Kind: core.TypeDatetime}, Role: core.RoleValidityThrough},
		)
	}
	return core.NewSchema(fields...)
}

func (p *plan) metadataSchema() core.Schema {
	return core.NewSchema(
		core.Field{Name: p.n.mdTableName, Type: core.Varchar(255)},
		core.Field{Name: p.n.mdStart, Type: core.DataType{Kind: core.TypeDatetime}},
		core.Field{Name: p.n.mdEnd, Type: core.DataType{Kind: core.TypeDatetime}},
		core.Field{Name: p.n.mdStatus, Type: core.Varchar(32)},
		core.Field{Name: p.n.mdBatchID, Type: core.DataType{Kind: core.TypeInteger}},
		core.Field{Name: p.n.mdSourceInfo, Type: core.DataType{Kind: core.TypeJSON}},
		core.Field{Name: p.n.mdAdditional, Type: core.DataType{Kind: core.TypeJSON}},
	)
}

func (p *plan) lockSchema() core.Schema {
	return core.NewSchema(
		core.Field{Name: p.n.lockInsertTS, Type: core.DataType{Kind: core.TypeDatetime}},
		core.Field{Name: p.n.lockLastUsed, Type: core.DataType{Kind: core.TypeDatetime}},
		core.Field{Name: p.n.lockTableName, Type: core.DataType{Kind: core.TypeVarchar}, Unique: true},
	)
}

// tempStagingSchema is staging without key constraints, plus the duplicate
// count and the version rank when those are computed.
func (p *plan) tempStagingSchema() core.Schema {
	fields := make([]core.Field, 0, len(p.staging.Schema.Fields)+2)
	for _, f := range p.staging.Schema.Fields {
		f.PrimaryKey = false
		f.NotNull = false
		f.Unique = false
		if f.Role == core.RolePrimaryKey {
			f.Role = core.RolePlain
		}
		fields = append(fields, f)
	}
	if p.mode.Dedup() != core.AllowDuplicates {
		fields = append(fields, core.Field{Name: p.n.count, Type: core.DataType{Kind: core.TypeBigInt}})
	}
	if p.mode.Versioning().Kind == core.AllVersion {
		fields = append(fields, core.Field{Name: p.n.dataSplit, Type: core.DataType{Kind: core.TypeBigInt}, Role: core.RoleDataSplit})
	}
	return core.NewSchema(fields...)
}

// ---------- Sources ----------

// source is the dataset milestoning reads incoming rows from.
func (p *plan) source() core.Dataset {
	if p.tempStaging != nil {
		return *p.tempStaging
	}
	return p.staging
}

func (p *plan) sourceRef() *core.TableRef {
	return p.source().Ref(stageAlias)
}

// milestoned is the dataset from-only milestoning reads incoming rows from.
func (p *plan) milestoned() core.Dataset {
	if p.noDup != nil {
		return *p.noDup
	}
	return p.source()
}

// sourceFilter restricts reads of the source: staging filters when reading
// staging directly, and the data split bounds.
func (p *plan) sourceFilter() core.Expr {
	var terms []core.Expr
	if p.tempStaging == nil {
		terms = append(terms, stagingFilters(p.staging.Filters, stageAlias))
	}
	if p.splitField != "" {
		terms = append(terms, splitPredicate(stageAlias, p.splitField))
	}
	return core.And(terms...)
}

// sourceTable is the source as a table expression; a filtered source becomes
// a derived table aliased stage.
func (p *plan) sourceTable() core.TableExpr {
	filter := p.sourceFilter()
	if filter == nil {
		return p.sourceRef()
	}
	return &core.DerivedTable{
		Select: &core.SelectStmt{
			Columns: core.Items(columns(stageAlias, p.source().Schema.Names())...),
			From:    p.sourceRef(),
			Where:   filter,
		},
		Alias: stageAlias,
	}
}

func (p *plan) mainRef(alias string) *core.TableRef {
	return p.main.Ref(alias)
}

func (p *plan) businessNames() []string {
	out := make([]string, len(p.business))
	for i, f := range p.business {
		out[i] = f.Name
	}
	return out
}
