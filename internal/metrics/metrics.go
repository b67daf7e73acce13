// Package metrics exposes executor runs as Prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/leapstack-labs/milestone/pkg/core"
)

const namespace = "milestone"

// Collector records executor runs. It implements executor.Recorder.
type Collector struct {
	reg *prometheus.Registry

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	statements  *prometheus.CounterVec
	rowsTotal   *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

// New creates a Collector on its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		reg: reg,
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of ingest runs",
			},
			[]string{"mode", "dialect", "status"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of ingest runs",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7 minutes
			},
			[]string{"mode", "dialect"},
		),
		statements: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statements_total",
				Help:      "Total number of SQL statements executed, by run phase",
			},
			[]string{"phase"},
		),
		rowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Total number of rows reported by batch statistics",
			},
			[]string{"statistic"},
		),
		lastSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
		),
	}
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(mode, dialect string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	} else {
		c.lastSuccess.SetToCurrentTime()
	}
	c.runsTotal.WithLabelValues(mode, dialect, status).Inc()
	c.runDuration.WithLabelValues(mode, dialect).Observe(elapsed.Seconds())
}

// ObserveStatement counts one executed statement.
func (c *Collector) ObserveStatement(phase string) {
	c.statements.WithLabelValues(phase).Inc()
}

// ObserveRows adds a statistic of a run.
func (c *Collector) ObserveRows(stat core.StatisticName, n int64) {
	if n <= 0 {
		return
	}
	c.rowsTotal.WithLabelValues(string(stat)).Add(float64(n))
}

// Gatherer returns the registry holding the collector's metrics.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.reg
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Push sends the metrics to a Pushgateway under job.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(c.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
