package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/milestone/internal/executor"
	"github.com/leapstack-labs/milestone/pkg/core"
)

var _ executor.Recorder = (*Collector)(nil)

func TestObserveRun(t *testing.T) {
	c := New()

	c.ObserveRun("bitemporal", "duckdb", 2*time.Second, nil)
	c.ObserveRun("bitemporal", "duckdb", time.Second, errors.New("boom"))
	c.ObserveRun("bitemporal", "duckdb", time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("bitemporal", "duckdb", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("bitemporal", "duckdb", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.runDuration))
	assert.Positive(t, testutil.ToFloat64(c.lastSuccess))
}

func TestObserveStatementsAndRows(t *testing.T) {
	c := New()

	c.ObserveStatement("ingest")
	c.ObserveStatement("ingest")
	c.ObserveStatement("pre_actions")
	c.ObserveRows(core.StatRowsInserted, 40)
	c.ObserveRows(core.StatRowsInserted, 2)
	c.ObserveRows(core.StatRowsDeleted, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.statements.WithLabelValues("ingest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.statements.WithLabelValues("pre_actions")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.rowsTotal.WithLabelValues("rowsInserted")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.rowsTotal), "zero statistics are not recorded")
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.ObserveStatement("ingest")

	path := filepath.Join(t.TempDir(), "milestone.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `milestone_statements_total{phase="ingest"} 1`)
}

func TestPush(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	c.ObserveStatement("ingest")
	require.NoError(t, c.Push(context.Background(), srv.URL, "milestone_orders"))
	assert.True(t, strings.HasSuffix(gotPath, "/job/milestone_orders"), gotPath)
}
