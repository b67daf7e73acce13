// Package config provides the job file model. A job file describes one
// ingest: the datasets, the staging schema, the ingest mode and the compiler
// options. It is decoupled from CLI concerns so that other tools can compile
// jobs without the command tree.
package config

// Job is one ingest job as written in YAML.
type Job struct {
	Name     string         `koanf:"name" yaml:"name,omitempty"`
	Dialect  string         `koanf:"dialect" yaml:"dialect,omitempty"`
	Datasets DatasetsConfig `koanf:"datasets" yaml:"datasets"`

	// Schema is the staging schema. MainSchema is derived from it when empty.
	Schema     []FieldConfig `koanf:"schema" yaml:"schema"`
	MainSchema []FieldConfig `koanf:"main_schema" yaml:"main_schema,omitempty"`

	Mode    ModeConfig    `koanf:"mode" yaml:"mode"`
	Options OptionsConfig `koanf:"options" yaml:"options,omitempty"`

	// Path is the file the job was loaded from.
	Path string `koanf:"-" yaml:"-"`
}

// DatasetsConfig names the tables of a job.
type DatasetsConfig struct {
	Main     DatasetConfig `koanf:"main" yaml:"main"`
	Staging  DatasetConfig `koanf:"staging" yaml:"staging"`
	Metadata DatasetConfig `koanf:"metadata" yaml:"metadata,omitempty"`
	Temp     DatasetConfig `koanf:"temp" yaml:"temp,omitempty"`

	TempWithDeleteIndicator DatasetConfig `koanf:"temp_with_delete_indicator" yaml:"temp_with_delete_indicator,omitempty"`
}

// DatasetConfig locates one table.
type DatasetConfig struct {
	Database string         `koanf:"database" yaml:"database,omitempty"`
	Group    string         `koanf:"group" yaml:"group,omitempty"`
	Name     string         `koanf:"name" yaml:"name,omitempty"`
	Alias    string         `koanf:"alias" yaml:"alias,omitempty"`
	Filters  []FilterConfig `koanf:"filters" yaml:"filters,omitempty"`
}

// FilterConfig is a staging filter: field op value.
type FilterConfig struct {
	Field string `koanf:"field" yaml:"field"`
	Op    string `koanf:"op" yaml:"op"`
	Value any    `koanf:"value" yaml:"value"`
}

// FieldConfig describes a column.
type FieldConfig struct {
	Name       string `koanf:"name" yaml:"name"`
	Type       string `koanf:"type" yaml:"type"`
	Length     int    `koanf:"length" yaml:"length,omitempty"`
	Scale      int    `koanf:"scale" yaml:"scale,omitempty"`
	Role       string `koanf:"role" yaml:"role,omitempty"`
	PrimaryKey bool   `koanf:"primary_key" yaml:"primary_key,omitempty"`
	NotNull    bool   `koanf:"not_null" yaml:"not_null,omitempty"`
	Unique     bool   `koanf:"unique" yaml:"unique,omitempty"`
}

// ModeConfig selects the ingest mode and its settings. Settings that do not
// apply to Kind are rejected.
type ModeConfig struct {
	Kind       string           `koanf:"kind" yaml:"kind"`
	Dedup      string           `koanf:"dedup" yaml:"dedup,omitempty"`
	Versioning VersioningConfig `koanf:"versioning" yaml:"versioning,omitempty"`
	EmptyBatch string           `koanf:"empty_batch" yaml:"empty_batch,omitempty"`

	Auditing              *AuditingConfig        `koanf:"auditing" yaml:"auditing,omitempty"`
	DeleteIndicator       *DeleteIndicatorConfig `koanf:"delete_indicator" yaml:"delete_indicator,omitempty"`
	FilterExistingRecords bool                   `koanf:"filter_existing_records" yaml:"filter_existing_records,omitempty"`
	Transaction           *TransactionConfig     `koanf:"transaction" yaml:"transaction,omitempty"`
	Partitioning          *PartitioningConfig    `koanf:"partitioning" yaml:"partitioning,omitempty"`
	Validity              *ValidityConfig        `koanf:"validity" yaml:"validity,omitempty"`
}

// VersioningConfig is the versioning policy.
type VersioningConfig struct {
	Kind            string `koanf:"kind" yaml:"kind,omitempty"`
	Field           string `koanf:"field" yaml:"field,omitempty"`
	StageVersioning bool   `koanf:"stage_versioning" yaml:"stage_versioning,omitempty"`
	Resolver        string `koanf:"resolver" yaml:"resolver,omitempty"`
}

// AuditingConfig names the nontemporal audit columns.
type AuditingConfig struct {
	DateTimeField string `koanf:"datetime_field" yaml:"datetime_field,omitempty"`
	BatchIDField  string `koanf:"batch_id_field" yaml:"batch_id_field,omitempty"`
}

// DeleteIndicatorConfig lists the values that mark a soft delete.
type DeleteIndicatorConfig struct {
	Values []any `koanf:"values" yaml:"values"`
}

// TransactionConfig names the transaction-time columns.
type TransactionConfig struct {
	Keying       string `koanf:"keying" yaml:"keying,omitempty"`
	BatchIDIn    string `koanf:"batch_id_in" yaml:"batch_id_in,omitempty"`
	BatchIDOut   string `koanf:"batch_id_out" yaml:"batch_id_out,omitempty"`
	BatchTimeIn  string `koanf:"batch_time_in" yaml:"batch_time_in,omitempty"`
	BatchTimeOut string `koanf:"batch_time_out" yaml:"batch_time_out,omitempty"`
}

// PartitioningConfig scopes a unitemporal snapshot.
type PartitioningConfig struct {
	Fields []string         `koanf:"fields" yaml:"fields,omitempty"`
	Values map[string][]any `koanf:"values" yaml:"values,omitempty"`
	Specs  []map[string]any `koanf:"specs" yaml:"specs,omitempty"`
}

// ValidityConfig names the bitemporal valid-time columns.
type ValidityConfig struct {
	Kind          string `koanf:"kind" yaml:"kind,omitempty"`
	FromTarget    string `koanf:"from_target" yaml:"from_target,omitempty"`
	ThroughTarget string `koanf:"through_target" yaml:"through_target,omitempty"`
}

// OptionsConfig mirrors ingest.Options.
type OptionsConfig struct {
	CaseConversion         string         `koanf:"case_conversion" yaml:"case_conversion,omitempty"`
	Placeholders           bool           `koanf:"placeholders" yaml:"placeholders,omitempty"`
	BatchSuccessStatus     string         `koanf:"batch_success_status" yaml:"batch_success_status,omitempty"`
	SampleRowCount         int            `koanf:"sample_row_count" yaml:"sample_row_count,omitempty"`
	CleanupStagingData     bool           `koanf:"cleanup_staging_data" yaml:"cleanup_staging_data,omitempty"`
	CreateStagingDataset   bool           `koanf:"create_staging_dataset" yaml:"create_staging_dataset,omitempty"`
	EnableConcurrentSafety bool           `koanf:"enable_concurrent_safety" yaml:"enable_concurrent_safety,omitempty"`
	BatchIDSentinel        int64          `koanf:"batch_id_sentinel" yaml:"batch_id_sentinel,omitempty"`
	AdditionalMetadata     map[string]any `koanf:"additional_metadata" yaml:"additional_metadata,omitempty"`
}
