package executor

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/milestone/pkg/core"
)

// ErrDataQuality is the sentinel behind every DataQualityError.
var ErrDataQuality = errors.New("data quality check failed")

// DataQualityError reports a dedup or versioning check that returned more
// than 1. Rows holds the sampled offending rows.
type DataQualityError struct {
	Check core.ErrorCheck
	Value int64
	Rows  []map[string]any
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("%s: %s returned %d (%d sample rows)", ErrDataQuality, e.Check, e.Value, len(e.Rows))
}

// Unwrap returns ErrDataQuality.
func (e *DataQualityError) Unwrap() error {
	return ErrDataQuality
}

// StatementError wraps a database error with the phase and statement that
// caused it.
type StatementError struct {
	Phase Phase
	SQL   string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}
