package ingest

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/leapstack-labs/milestone/pkg/core"
)

// Table aliases. Aliases render unquoted and are never case-folded.
const (
	sinkAlias  = "sink"
	sink2Alias = "sink2"
	stageAlias = "stage"
	xAlias     = "legend_persistence_x"
	yAlias     = "legend_persistence_y"
)

// names holds the technical identifiers of a plan after case folding.
type names struct {
	count        string
	rank         string
	dataSplit    string
	distinctRows string
	pkCount      string
	startDate    string
	endDate      string

	tempStagingSuffix string
	tempSuffix        string
	tempDeleteSuffix  string
	noDupSuffix       string
	lockSuffix        string

	mdTableName  string
	mdBatchID    string
	mdStart      string
	mdEnd        string
	mdStatus     string
	mdSourceInfo string
	mdAdditional string

	lockInsertTS  string
	lockLastUsed  string
	lockTableName string
}

func newNames(fold func(string) string) names {
	return names{
		count:        fold("legend_persistence_count"),
		rank:         fold("legend_persistence_rank"),
		dataSplit:    fold("data_split"),
		distinctRows: fold("legend_persistence_distinct_rows"),
		pkCount:      fold("legend_persistence_pk_count"),
		startDate:    fold("legend_persistence_start_date"),
		endDate:      fold("legend_persistence_end_date"),

		tempStagingSuffix: fold("_legend_persistence_temp_staging"),
		tempSuffix:        fold("_legend_persistence_temp"),
		tempDeleteSuffix:  fold("_legend_persistence_temp_with_delete_indicator"),
		noDupSuffix:       fold("_legend_persistence_stageWithoutDuplicates"),
		lockSuffix:        fold("_legend_persistence_lock"),

		mdTableName:  fold("table_name"),
		mdBatchID:    fold("table_batch_id"),
		mdStart:      fold("batch_start_ts_utc"),
		mdEnd:        fold("batch_end_ts_utc"),
		mdStatus:     fold("batch_status"),
		mdSourceInfo: fold("batch_source_info"),
		mdAdditional: fold("additional_metadata"),

		lockInsertTS:  fold("insert_ts_utc"),
		lockLastUsed:  fold("last_used_ts_utc"),
		lockTableName: fold("table_name"),
	}
}

// tableSuffix distinguishes the temporary tables of jobs that share a staging
// table. It is derived from the main and staging names so recompiling the
// same request yields the same tables.
func tableSuffix(ds core.Datasets) string {
	h := xxh3.HashString(ds.Main.QualifiedName() + "|" + ds.Staging.QualifiedName())
	return fmt.Sprintf("_%08x", uint32(h))
}

// ---------- Case folding ----------

func foldDataset(d core.Dataset, fold func(string) string) core.Dataset {
	out := d
	out.Database = fold(d.Database)
	out.Group = fold(d.Group)
	out.Name = fold(d.Name)
	out.Schema = foldSchema(d.Schema, fold)
	out.Filters = make([]core.Filter, len(d.Filters))
	for i, f := range d.Filters {
		out.Filters[i] = f
		out.Filters[i].Field = fold(f.Field)
	}
	return out
}

func foldSchema(s core.Schema, fold func(string) string) core.Schema {
	out := core.Schema{Fields: make([]core.Field, len(s.Fields))}
	for i, f := range s.Fields {
		out.Fields[i] = f
		out.Fields[i].Name = fold(f.Name)
	}
	return out
}

func foldDatasets(ds core.Datasets, fold func(string) string) core.Datasets {
	return core.Datasets{
		Main:                    foldDataset(ds.Main, fold),
		Staging:                 foldDataset(ds.Staging, fold),
		Metadata:                foldDataset(ds.Metadata, fold),
		Temp:                    foldDataset(ds.Temp, fold),
		TempWithDeleteIndicator: foldDataset(ds.TempWithDeleteIndicator, fold),
	}
}

func foldVersioning(v core.VersioningPolicy, fold func(string) string) core.VersioningPolicy {
	v.Field = fold(v.Field)
	return v
}

func foldAuditing(a core.Auditing, fold func(string) string) core.Auditing {
	return core.Auditing{DateTimeField: fold(a.DateTimeField), BatchIDField: fold(a.BatchIDField)}
}

func foldTransaction(t core.Transaction, fold func(string) string) core.Transaction {
	t = t.WithDefaults()
	t.BatchIDIn = fold(t.BatchIDIn)
	t.BatchIDOut = fold(t.BatchIDOut)
	t.BatchTimeIn = fold(t.BatchTimeIn)
	t.BatchTimeOut = fold(t.BatchTimeOut)
	return t
}

func foldPartitioning(p *core.Partitioning, fold func(string) string) *core.Partitioning {
	if p == nil {
		return nil
	}
	out := &core.Partitioning{Fields: make([]string, len(p.Fields))}
	for i, f := range p.Fields {
		out.Fields[i] = fold(f)
	}
	if p.Values != nil {
		out.Values = make(map[string][]any, len(p.Values))
		for k, v := range p.Values {
			out.Values[fold(k)] = v
		}
	}
	for _, spec := range p.Specs {
		folded := make(map[string]any, len(spec))
		for k, v := range spec {
			folded[fold(k)] = v
		}
		out.Specs = append(out.Specs, folded)
	}
	return out
}

// foldMode returns a copy of m with every column name folded.
func foldMode(m core.IngestMode, fold func(string) string) core.IngestMode {
	switch m := m.(type) {
	case core.NontemporalSnapshot:
		m.Auditing = foldAuditing(m.Auditing, fold)
		m.VersionBy = foldVersioning(m.VersionBy, fold)
		return m
	case core.NontemporalDelta:
		m.Auditing = foldAuditing(m.Auditing, fold)
		m.VersionBy = foldVersioning(m.VersionBy, fold)
		return m
	case core.AppendOnly:
		m.Auditing = foldAuditing(m.Auditing, fold)
		m.VersionBy = foldVersioning(m.VersionBy, fold)
		return m
	case core.UnitemporalDelta:
		m.Transaction = foldTransaction(m.Transaction, fold)
		m.VersionBy = foldVersioning(m.VersionBy, fold)
		return m
	case core.UnitemporalSnapshot:
		m.Transaction = foldTransaction(m.Transaction, fold)
		m.Partitioning = foldPartitioning(m.Partitioning, fold)
		m.VersionBy = foldVersioning(m.VersionBy, fold)
		return m
	case core.Bitemporal:
		m.Transaction = foldTransaction(m.Transaction, fold)
		m.Validity = m.Validity.WithDefaults()
		m.Validity.FromTarget = fold(m.Validity.FromTarget)
		m.Validity.ThroughTarget = fold(m.Validity.ThroughTarget)
		m.VersionBy = foldVersioning(m.VersionBy, fold)
		return m
	default:
		return m
	}
}
