package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults applied by New for unset options.
const (
	DefaultBatchSuccessStatus = "DONE"
	DefaultSampleRowCount     = 20
	DefaultBatchIDSentinel    = 999999999
	DefaultMetadataTable      = "batch_metadata"

	// TimestampLayout is the layout of batch timestamp literals.
	TimestampLayout = "2006-01-02 15:04:05.000000"

	// MaxTimestamp closes open rows on time-keyed transaction columns.
	MaxTimestamp = "9999-12-31 23:59:59"
)

// CaseConversion folds every identifier before rendering.
type CaseConversion int

// CaseConversion constants.
const (
	CasePreserve CaseConversion = iota
	CaseUpper
	CaseLower
)

// String returns the policy name used in configuration.
func (c CaseConversion) String() string {
	switch c {
	case CaseUpper:
		return "upper"
	case CaseLower:
		return "lower"
	default:
		return "none"
	}
}

// ParseCaseConversion resolves a policy name; the empty string preserves case.
func ParseCaseConversion(s string) (CaseConversion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "preserve":
		return CasePreserve, nil
	case "upper", "to_upper":
		return CaseUpper, nil
	case "lower", "to_lower":
		return CaseLower, nil
	default:
		return 0, fmt.Errorf("unknown case conversion %q", s)
	}
}

func (c CaseConversion) caser() func(string) string {
	switch c {
	case CaseUpper:
		return cases.Upper(language.Und).String
	case CaseLower:
		return cases.Lower(language.Und).String
	default:
		return func(s string) string { return s }
	}
}

// Options tune a Generator. The zero value is usable.
type Options struct {
	// CaseConversion folds dataset, field and technical names.
	CaseConversion CaseConversion

	// Placeholders leaves {BATCH_ID_PATTERN} and the batch timestamp
	// patterns in the SQL instead of the metadata subquery and literal times.
	Placeholders bool

	// BatchSuccessStatus is written to batch_status (default DONE).
	BatchSuccessStatus string

	// SampleRowCount limits the error-row sample queries (default 20).
	SampleRowCount int

	// CleanupStagingData empties staging once the batch is ingested.
	CleanupStagingData bool

	// CreateStagingDataset adds a CREATE TABLE for staging to the pre-actions.
	CreateStagingDataset bool

	// EnableConcurrentSafety creates and acquires a per-table lock row.
	EnableConcurrentSafety bool

	// EmptyBatch compiles for a staging dataset known to hold no rows.
	EmptyBatch bool

	// ExecutionTime is the batch start time. When zero it is read from Clock.
	ExecutionTime time.Time

	// Clock supplies the batch start time (default real clock).
	Clock clockwork.Clock

	// BatchIDSentinel marks open rows in batch_id_out (default 999999999).
	BatchIDSentinel int64

	// AdditionalMetadata is written as JSON to additional_metadata.
	AdditionalMetadata map[string]any

	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.BatchSuccessStatus == "" {
		o.BatchSuccessStatus = DefaultBatchSuccessStatus
	}
	if o.SampleRowCount <= 0 {
		o.SampleRowCount = DefaultSampleRowCount
	}
	if o.BatchIDSentinel == 0 {
		o.BatchIDSentinel = DefaultBatchIDSentinel
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// batchStart returns the batch start timestamp rendered with TimestampLayout.
func (o Options) batchStart() string {
	t := o.ExecutionTime
	if t.IsZero() {
		t = o.Clock.Now()
	}
	return t.UTC().Format(TimestampLayout)
}
