package config

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/leapstack-labs/milestone/pkg/ingest"
)

// DialectName returns the job's dialect, or fallback when the job names none.
func (j *Job) DialectName(fallback string) string {
	if j.Dialect != "" {
		return j.Dialect
	}
	return fallback
}

// Request converts the job into a compile request for d. When d is nil the
// dialect named by the job is looked up in the registry.
func (j *Job) Request(d *dialect.Dialect) (ingest.Request, error) {
	if d == nil {
		var err error
		if d, err = dialect.Lookup(j.Dialect); err != nil {
			return ingest.Request{}, err
		}
	}
	ds, err := j.BuildDatasets()
	if err != nil {
		return ingest.Request{}, err
	}
	mode, err := j.BuildMode()
	if err != nil {
		return ingest.Request{}, err
	}
	opts, err := j.BuildOptions()
	if err != nil {
		return ingest.Request{}, err
	}
	return ingest.Request{Dialect: d, Datasets: ds, Mode: mode, Options: opts}, nil
}

// BuildDatasets converts the dataset section and the schemas.
func (j *Job) BuildDatasets() (core.Datasets, error) {
	staging, err := buildSchema(j.Schema)
	if err != nil {
		return core.Datasets{}, err
	}
	main, err := buildSchema(j.MainSchema)
	if err != nil {
		return core.Datasets{}, err
	}

	ds := core.Datasets{
		Main:                    j.Datasets.Main.dataset(),
		Staging:                 j.Datasets.Staging.dataset(),
		Metadata:                j.Datasets.Metadata.dataset(),
		Temp:                    j.Datasets.Temp.dataset(),
		TempWithDeleteIndicator: j.Datasets.TempWithDeleteIndicator.dataset(),
	}
	ds.Main.Schema = main
	ds.Staging.Schema = staging

	for _, f := range j.Datasets.Staging.Filters {
		op, err := core.ParseFilterOp(f.Op)
		if err != nil {
			return core.Datasets{}, core.Configf(f.Field, "%s", err)
		}
		ds.Staging.Filters = append(ds.Staging.Filters, core.Filter{Field: f.Field, Op: op, Value: f.Value})
	}
	return ds, nil
}

func (c DatasetConfig) dataset() core.Dataset {
	return core.Dataset{Database: c.Database, Group: c.Group, Name: c.Name, Alias: c.Alias}
}

func buildSchema(fields []FieldConfig) (core.Schema, error) {
	out := make([]core.Field, 0, len(fields))
	for _, fc := range fields {
		kind, err := core.ParseTypeKind(fc.Type)
		if err != nil {
			return core.Schema{}, core.Configf(fc.Name, "%s", err)
		}
		role, err := core.ParseFieldRole(fc.Role)
		if err != nil {
			return core.Schema{}, core.Configf(fc.Name, "%s", err)
		}
		out = append(out, core.Field{
			Name:       fc.Name,
			Type:       core.DataType{Kind: kind, Length: fc.Length, Scale: fc.Scale},
			Role:       role,
			PrimaryKey: fc.PrimaryKey,
			NotNull:    fc.NotNull,
			Unique:     fc.Unique,
		})
	}
	return core.NewSchema(out...), nil
}

// BuildMode converts the mode section. Settings that the selected mode does
// not take are rejected rather than ignored.
func (j *Job) BuildMode() (core.IngestMode, error) {
	m := j.Mode
	kind, err := core.ParseModeKind(m.Kind)
	if err != nil {
		return nil, core.Configf("mode.kind", "%s", err)
	}
	dedup, err := core.ParseDedupPolicy(m.Dedup)
	if err != nil {
		return nil, core.Configf("mode.dedup", "%s", err)
	}
	version, err := m.Versioning.policy()
	if err != nil {
		return nil, err
	}
	empty, err := core.ParseEmptyBatchHandling(m.EmptyBatch)
	if err != nil {
		return nil, core.Configf("mode.empty_batch", "%s", err)
	}

	if err := m.checkApplicable(kind); err != nil {
		return nil, err
	}

	switch kind {
	case core.ModeNontemporalSnapshot:
		return core.NontemporalSnapshot{Auditing: m.auditing(), DedupBy: dedup, VersionBy: version, EmptyBatch: empty}, nil
	case core.ModeNontemporalDelta:
		return core.NontemporalDelta{Auditing: m.auditing(), DeleteIndicator: m.deleteIndicator(), DedupBy: dedup, VersionBy: version}, nil
	case core.ModeAppendOnly:
		return core.AppendOnly{Auditing: m.auditing(), FilterExistingRecords: m.FilterExistingRecords, DedupBy: dedup, VersionBy: version}, nil
	case core.ModeUnitemporalDelta:
		tx, err := m.transaction()
		if err != nil {
			return nil, err
		}
		return core.UnitemporalDelta{Transaction: tx, DeleteIndicator: m.deleteIndicator(), DedupBy: dedup, VersionBy: version}, nil
	case core.ModeUnitemporalSnapshot:
		tx, err := m.transaction()
		if err != nil {
			return nil, err
		}
		return core.UnitemporalSnapshot{Transaction: tx, Partitioning: m.partitioning(), EmptyBatch: empty, DedupBy: dedup, VersionBy: version}, nil
	default:
		tx, err := m.transaction()
		if err != nil {
			return nil, err
		}
		validity, err := m.validity()
		if err != nil {
			return nil, err
		}
		return core.Bitemporal{Transaction: tx, Validity: validity, DeleteIndicator: m.deleteIndicator(), DedupBy: dedup, VersionBy: version}, nil
	}
}

// modeSettings lists the optional settings each mode accepts.
var modeSettings = map[core.ModeKind][]string{
	core.ModeNontemporalSnapshot: {"auditing", "empty_batch"},
	core.ModeNontemporalDelta:    {"auditing", "delete_indicator"},
	core.ModeAppendOnly:          {"auditing", "filter_existing_records"},
	core.ModeUnitemporalDelta:    {"transaction", "delete_indicator"},
	core.ModeUnitemporalSnapshot: {"transaction", "partitioning", "empty_batch"},
	core.ModeBitemporal:          {"transaction", "validity", "delete_indicator"},
}

func (m ModeConfig) checkApplicable(kind core.ModeKind) error {
	set := map[string]bool{
		"auditing":                m.Auditing != nil,
		"delete_indicator":        m.DeleteIndicator != nil,
		"filter_existing_records": m.FilterExistingRecords,
		"transaction":             m.Transaction != nil,
		"partitioning":            m.Partitioning != nil,
		"validity":                m.Validity != nil,
		"empty_batch":             m.EmptyBatch != "",
	}
	allowed := make(map[string]bool)
	for _, s := range modeSettings[kind] {
		allowed[s] = true
	}
	var bad []string
	for name, on := range set {
		if on && !allowed[name] {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return core.Configf("mode", "%s does not take %v", kind, bad)
	}
	return nil
}

func (v VersioningConfig) policy() (core.VersioningPolicy, error) {
	kind, err := core.ParseVersioningKind(v.Kind)
	if err != nil {
		return core.VersioningPolicy{}, core.Configf("mode.versioning", "%s", err)
	}
	resolver, err := core.ParseVersionResolver(v.Resolver)
	if err != nil {
		return core.VersioningPolicy{}, core.Configf("mode.versioning", "%s", err)
	}
	switch kind {
	case core.NoVersioning:
		return core.NoVersion(), nil
	case core.AllVersion:
		p := core.AllVersionOf(v.Field)
		p.Resolver = resolver
		return p, nil
	default:
		p := core.MaxVersionOf(v.Field, v.StageVersioning)
		p.Resolver = resolver
		return p, nil
	}
}

func (m ModeConfig) auditing() core.Auditing {
	if m.Auditing == nil {
		return core.Auditing{}
	}
	return core.Auditing{DateTimeField: m.Auditing.DateTimeField, BatchIDField: m.Auditing.BatchIDField}
}

func (m ModeConfig) deleteIndicator() *core.DeleteIndicator {
	if m.DeleteIndicator == nil {
		return nil
	}
	return &core.DeleteIndicator{Values: m.DeleteIndicator.Values}
}

func (m ModeConfig) transaction() (core.Transaction, error) {
	if m.Transaction == nil {
		return core.Transaction{}, nil
	}
	t := m.Transaction
	keying, err := core.ParseKeying(t.Keying)
	if err != nil {
		return core.Transaction{}, core.Configf("mode.transaction", "%s", err)
	}
	return core.Transaction{
		Keying:       keying,
		BatchIDIn:    t.BatchIDIn,
		BatchIDOut:   t.BatchIDOut,
		BatchTimeIn:  t.BatchTimeIn,
		BatchTimeOut: t.BatchTimeOut,
	}, nil
}

func (m ModeConfig) partitioning() *core.Partitioning {
	if m.Partitioning == nil {
		return nil
	}
	return &core.Partitioning{Fields: m.Partitioning.Fields, Values: m.Partitioning.Values, Specs: m.Partitioning.Specs}
}

func (m ModeConfig) validity() (core.Validity, error) {
	if m.Validity == nil {
		return core.Validity{}, nil
	}
	v := core.Validity{FromTarget: m.Validity.FromTarget, ThroughTarget: m.Validity.ThroughTarget}
	switch m.Validity.Kind {
	case "", "from_only":
		v.Kind = core.ValidFromOnly
	case "from_through", "from_and_through":
		v.Kind = core.ValidFromThrough
	default:
		return core.Validity{}, core.Configf("mode.validity", "unknown validity kind %q", m.Validity.Kind)
	}
	return v, nil
}

// BuildOptions converts the options section.
func (j *Job) BuildOptions() (ingest.Options, error) {
	o := j.Options
	cc, err := ingest.ParseCaseConversion(o.CaseConversion)
	if err != nil {
		return ingest.Options{}, core.Configf("options.case_conversion", "%s", err)
	}
	if o.SampleRowCount < 0 {
		return ingest.Options{}, core.Configf("options.sample_row_count", "must not be negative, got %d", o.SampleRowCount)
	}
	return ingest.Options{
		CaseConversion:         cc,
		Placeholders:           o.Placeholders,
		BatchSuccessStatus:     o.BatchSuccessStatus,
		SampleRowCount:         o.SampleRowCount,
		CleanupStagingData:     o.CleanupStagingData,
		CreateStagingDataset:   o.CreateStagingDataset,
		EnableConcurrentSafety: o.EnableConcurrentSafety,
		BatchIDSentinel:        o.BatchIDSentinel,
		AdditionalMetadata:     o.AdditionalMetadata,
	}, nil
}

// String identifies the job in logs and errors.
func (j *Job) String() string {
	if j.Path != "" {
		return fmt.Sprintf("%s (%s)", j.Name, j.Path)
	}
	return j.Name
}
