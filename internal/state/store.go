// Package state keeps the local run history of milestone in SQLite.
// Each executor run is recorded with its outcome and per-range statistics.
package state

import (
	"time"

	"github.com/leapstack-labs/milestone/pkg/core"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// RunStatus constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded executor run.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Job         string     `json:"job" yaml:"job"`
	Main        string     `json:"main" yaml:"main"`
	Mode        string     `json:"mode" yaml:"mode"`
	Dialect     string     `json:"dialect" yaml:"dialect"`
	Status      RunStatus  `json:"status" yaml:"status"`
	BatchID     *int64     `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	EmptyBatch  bool       `json:"empty_batch" yaml:"empty_batch"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`

	Ranges []RangeStats `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// Total sums a statistic over the ranges of the run.
func (r *Run) Total(name core.StatisticName) int64 {
	var n int64
	for _, rg := range r.Ranges {
		n += rg.Statistics[name]
	}
	return n
}

// RangeStats are the statistics of one executed range. Range is nil when
// the plan did not split.
type RangeStats struct {
	Range      *core.DataSplitRange         `json:"range,omitempty" yaml:"range,omitempty"`
	Statistics map[core.StatisticName]int64 `json:"statistics" yaml:"statistics"`
}

// NewRun describes a run about to start.
type NewRun struct {
	Job     string
	Main    string
	Mode    string
	Dialect string
}

// Outcome is the result of a finished run.
type Outcome struct {
	Status     RunStatus
	BatchID    int64 // 0 when unknown
	EmptyBatch bool
	Ranges     []RangeStats
	Error      string
}

// Store persists run history.
type Store interface {
	CreateRun(nr NewRun) (*Run, error)
	CompleteRun(id string, out Outcome) error
	GetRun(id string) (*Run, error)
	ListRuns(job string, limit int) ([]*Run, error)
	Close() error
}
