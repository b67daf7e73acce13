package core

// StatisticName names a per-batch row statistic.
type StatisticName string

// StatisticName constants.
const (
	StatIncomingRecordCount StatisticName = "incomingRecordCount"
	StatRowsInserted        StatisticName = "rowsInserted"
	StatRowsUpdated         StatisticName = "rowsUpdated"
	StatRowsDeleted         StatisticName = "rowsDeleted"
	StatRowsTerminated      StatisticName = "rowsTerminated"
)

// AllStatistics lists the statistics in reporting order.
var AllStatistics = []StatisticName{
	StatIncomingRecordCount,
	StatRowsInserted,
	StatRowsUpdated,
	StatRowsDeleted,
	StatRowsTerminated,
}

// ErrorCheck names a data-quality query returning a single number; a value
// greater than 1 aborts the batch.
type ErrorCheck string

// ErrorCheck constants.
const (
	CheckMaxDuplicates   ErrorCheck = "MAX_DUPLICATES"
	CheckMaxPKDuplicates ErrorCheck = "MAX_PK_DUPLICATES"
	CheckMaxDataErrors   ErrorCheck = "MAX_DATA_ERRORS"
)

// ErrorRows names the sample query that explains a failed ErrorCheck.
type ErrorRows string

// ErrorRows constants.
const (
	RowsDuplicates   ErrorRows = "DUP_ROWS"
	RowsPKDuplicates ErrorRows = "PK_DUP_ROWS"
	RowsDataErrors   ErrorRows = "DATA_ERROR_ROWS"
)

// SampleFor returns the sample query name for a check.
func (c ErrorCheck) SampleFor() ErrorRows {
	switch c {
	case CheckMaxDuplicates:
		return RowsDuplicates
	case CheckMaxPKDuplicates:
		return RowsPKDuplicates
	default:
		return RowsDataErrors
	}
}

// ErrorCheckOrder is the order in which checks are executed.
var ErrorCheckOrder = []ErrorCheck{CheckMaxDuplicates, CheckMaxPKDuplicates, CheckMaxDataErrors}

// Placeholder tokens left in SQL when placeholder mode is on, and the split
// bound tokens always used before a range is bound.
const (
	BatchIDPattern      = "{BATCH_ID_PATTERN}"
	BatchStartTSPattern = "{BATCH_START_TS_PATTERN}"
	BatchEndTSPattern   = "{BATCH_END_TS_PATTERN}"
	SplitLowerPattern   = "{DATA_SPLIT_LOWER_BOUND_PLACEHOLDER}"
	SplitUpperPattern   = "{DATA_SPLIT_UPPER_BOUND_PLACEHOLDER}"
)

// GeneratorResult is a compiled plan. Every list is ordered and must be
// executed in order; the executor owns transaction boundaries. A result is
// built once and not modified afterwards.
type GeneratorResult struct {
	PreActionsSQL                    []string                 `json:"pre_actions,omitempty" yaml:"pre_actions,omitempty"`
	InitializeLockSQL                []string                 `json:"initialize_lock,omitempty" yaml:"initialize_lock,omitempty"`
	AcquireLockSQL                   []string                 `json:"acquire_lock,omitempty" yaml:"acquire_lock,omitempty"`
	DedupAndVersioningSQL            []string                 `json:"dedup_and_versioning,omitempty" yaml:"dedup_and_versioning,omitempty"`
	DedupAndVersioningErrorChecksSQL map[ErrorCheck]string    `json:"error_checks,omitempty" yaml:"error_checks,omitempty"`
	DedupAndVersioningErrorRowsSQL   map[ErrorRows]string     `json:"error_rows,omitempty" yaml:"error_rows,omitempty"`
	DataSplitValuesSQL               string                   `json:"data_split_values,omitempty" yaml:"data_split_values,omitempty"`
	IngestSQL                        []string                 `json:"ingest,omitempty" yaml:"ingest,omitempty"`
	MetadataIngestSQL                []string                 `json:"metadata_ingest,omitempty" yaml:"metadata_ingest,omitempty"`
	PostActionsSQL                   []string                 `json:"post_actions,omitempty" yaml:"post_actions,omitempty"`
	PostCleanupSQL                   []string                 `json:"post_cleanup,omitempty" yaml:"post_cleanup,omitempty"`
	PreIngestStatisticsSQL           map[StatisticName]string `json:"pre_ingest_statistics,omitempty" yaml:"pre_ingest_statistics,omitempty"`
	PostIngestStatisticsSQL          map[StatisticName]string `json:"post_ingest_statistics,omitempty" yaml:"post_ingest_statistics,omitempty"`
	Range                            *DataSplitRange          `json:"range,omitempty" yaml:"range,omitempty"`
}

// UsesDataSplits reports whether the plan still carries split placeholders
// and needs CompileRanges before execution.
func (r *GeneratorResult) UsesDataSplits() bool {
	return r.DataSplitValuesSQL != "" && r.Range == nil
}
