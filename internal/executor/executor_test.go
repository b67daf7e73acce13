package executor

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/milestone/internal/testutil"
	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialects/ansi"
	"github.com/leapstack-labs/milestone/pkg/ingest"
)

var execTime = time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newExecutor(t *testing.T, db *sql.DB, rec Recorder) (*Executor, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(execTime.Add(time.Minute))
	return New(db, Options{Clock: clock, Logger: testutil.NewTestLogger(t), Recorder: rec}), clock
}

func request(mode core.IngestMode, opts ingest.Options, extra ...core.Field) ingest.Request {
	opts.ExecutionTime = execTime
	return ingest.Request{
		Dialect:  ansi.ANSI,
		Datasets: testutil.Datasets(extra...),
		Mode:     mode,
		Options:  opts,
	}
}

// plan compiles req the way the executor does.
func plan(t *testing.T, req ingest.Request) *core.GeneratorResult {
	t.Helper()
	res, err := ingest.Compile(req)
	require.NoError(t, err)
	return res
}

type expect struct {
	mock sqlmock.Sqlmock
	sub  func(string) string
}

func (x expect) execs(stmts []string) {
	for _, s := range stmts {
		x.mock.ExpectExec(x.sub(s)).WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

func (x expect) count(q string, n int64) {
	x.mock.ExpectQuery(x.sub(q)).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(n))
}

func (x expect) stats(queries map[core.StatisticName]string, values map[core.StatisticName]int64) {
	for _, name := range core.AllStatistics {
		if q, ok := queries[name]; ok {
			x.count(q, values[name])
		}
	}
}

func identity(s string) string { return s }

type fakeRecorder struct {
	runs       int
	runErr     error
	statements map[string]int
	rows       map[core.StatisticName]int64
}

func (f *fakeRecorder) ObserveRun(_, _ string, _ time.Duration, err error) {
	f.runs++
	f.runErr = err
}

func (f *fakeRecorder) ObserveStatement(phase string) {
	if f.statements == nil {
		f.statements = make(map[string]int)
	}
	f.statements[phase]++
}

func (f *fakeRecorder) ObserveRows(stat core.StatisticName, n int64) {
	if f.rows == nil {
		f.rows = make(map[core.StatisticName]int64)
	}
	f.rows[stat] = n
}

func TestRunNontemporalSnapshot(t *testing.T) {
	db, mock := newMock(t)
	rec := &fakeRecorder{}
	exec, _ := newExecutor(t, db, rec)
	req := request(core.NontemporalSnapshot{}, ingest.Options{})
	p := plan(t, req)
	x := expect{mock, identity}

	x.execs(p.PreActionsSQL)
	x.count(p.PreIngestStatisticsSQL[core.StatIncomingRecordCount], 3)
	mock.ExpectBegin()
	x.stats(p.PreIngestStatisticsSQL, map[core.StatisticName]int64{core.StatIncomingRecordCount: 3, core.StatRowsDeleted: 2})
	x.execs(p.IngestSQL)
	x.stats(p.PostIngestStatisticsSQL, map[core.StatisticName]int64{core.StatRowsInserted: 3})
	x.execs(p.MetadataIngestSQL)
	mock.ExpectCommit()

	res, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.False(t, res.EmptyBatch)
	require.Len(t, res.Ranges, 1)
	assert.Nil(t, res.Ranges[0].Range)
	assert.Equal(t, map[core.StatisticName]int64{
		core.StatIncomingRecordCount: 3,
		core.StatRowsDeleted:         2,
		core.StatRowsInserted:        3,
	}, res.Statistics)
	assert.Equal(t, "nontemporal_snapshot", res.Mode)
	assert.Equal(t, "ansi", res.Dialect)
	assert.Equal(t, "main", res.Main)

	assert.Equal(t, 1, rec.runs)
	assert.NoError(t, rec.runErr)
	assert.Equal(t, len(p.IngestSQL), rec.statements[string(PhaseIngest)])
	assert.Equal(t, int64(3), rec.rows[core.StatRowsInserted])
}

func TestRunEmptyBatchNoOp(t *testing.T) {
	db, mock := newMock(t)
	exec, _ := newExecutor(t, db, nil)
	mode := core.NontemporalSnapshot{EmptyBatch: core.EmptyBatchNoOp}
	req := request(mode, ingest.Options{})
	p := plan(t, req)

	emptyReq := req
	emptyReq.Options.EmptyBatch = true
	empty := plan(t, emptyReq)
	require.Empty(t, empty.IngestSQL)

	x := expect{mock, identity}
	x.execs(p.PreActionsSQL)
	x.count(p.PreIngestStatisticsSQL[core.StatIncomingRecordCount], 0)
	mock.ExpectBegin()
	x.stats(empty.PreIngestStatisticsSQL, nil)
	x.stats(empty.PostIngestStatisticsSQL, nil)
	x.execs(empty.MetadataIngestSQL)
	mock.ExpectCommit()

	res, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.True(t, res.EmptyBatch)
	assert.Zero(t, res.Statistics[core.StatIncomingRecordCount])
}

func TestRunEmptyBatchFail(t *testing.T) {
	db, mock := newMock(t)
	exec, _ := newExecutor(t, db, nil)
	req := request(core.NontemporalSnapshot{EmptyBatch: core.EmptyBatchFail}, ingest.Options{})
	p := plan(t, req)

	x := expect{mock, identity}
	x.execs(p.PreActionsSQL)
	x.count(p.PreIngestStatisticsSQL[core.StatIncomingRecordCount], 0)

	res, err := exec.Run(context.Background(), req)
	require.ErrorIs(t, err, core.ErrEmptyBatch)
	require.NoError(t, mock.ExpectationsWereMet())
	require.NotNil(t, res)
	assert.True(t, res.EmptyBatch)
	assert.Empty(t, res.Ranges)
}

func TestRunDataQualityFailure(t *testing.T) {
	db, mock := newMock(t)
	rec := &fakeRecorder{}
	exec, _ := newExecutor(t, db, rec)
	req := request(core.NontemporalDelta{DedupBy: core.FailOnDuplicates}, ingest.Options{})
	p := plan(t, req)
	require.NotEmpty(t, p.PostCleanupSQL, "temp staging is dropped after the run")

	x := expect{mock, identity}
	x.execs(p.PreActionsSQL)
	x.execs(p.DedupAndVersioningSQL)
	x.count(p.DedupAndVersioningErrorChecksSQL[core.CheckMaxDuplicates], 3)
	mock.ExpectQuery(p.DedupAndVersioningErrorRowsSQL[core.RowsDuplicates]).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "legend_persistence_count"}).
			AddRow(int64(1), "alpha", int64(3)).
			AddRow(int64(2), []byte("beta"), int64(2)))
	x.execs(p.PostCleanupSQL)

	_, err := exec.Run(context.Background(), req)
	require.ErrorIs(t, err, ErrDataQuality)
	require.NoError(t, mock.ExpectationsWereMet())

	var dq *DataQualityError
	require.True(t, errors.As(err, &dq))
	assert.Equal(t, core.CheckMaxDuplicates, dq.Check)
	assert.Equal(t, int64(3), dq.Value)
	require.Len(t, dq.Rows, 2)
	assert.Equal(t, "alpha", dq.Rows[0]["name"])
	assert.Equal(t, "beta", dq.Rows[1]["name"], "byte slices are read as strings")
	assert.ErrorIs(t, rec.runErr, ErrDataQuality)
}

func TestRunPlaceholders(t *testing.T) {
	db, mock := newMock(t)
	exec, clock := newExecutor(t, db, nil)
	req := request(core.NontemporalSnapshot{}, ingest.Options{Placeholders: true})
	p := plan(t, req)
	nextID, err := ingest.New(req.Dialect, req.Options).NextBatchIDSQL(req.Datasets, req.Mode)
	require.NoError(t, err)

	sub := strings.NewReplacer(
		core.BatchIDPattern, "7",
		core.BatchStartTSPattern, execTime.Format(ingest.TimestampLayout),
		core.BatchEndTSPattern, clock.Now().UTC().Format(ingest.TimestampLayout),
	).Replace
	x := expect{mock, sub}

	x.execs(p.PreActionsSQL)
	x.count(nextID, 7)
	x.count(p.PreIngestStatisticsSQL[core.StatIncomingRecordCount], 1)
	mock.ExpectBegin()
	x.count(nextID, 7)
	x.stats(p.PreIngestStatisticsSQL, map[core.StatisticName]int64{core.StatIncomingRecordCount: 1})
	x.execs(p.IngestSQL)
	x.stats(p.PostIngestStatisticsSQL, map[core.StatisticName]int64{core.StatRowsInserted: 1})
	x.execs(p.MetadataIngestSQL)
	mock.ExpectCommit()

	require.Contains(t, p.MetadataIngestSQL[0], core.BatchIDPattern)
	require.NotContains(t, sub(p.MetadataIngestSQL[0]), "{")

	res, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(7), res.BatchID)
	require.Len(t, res.Ranges, 1)
	assert.Equal(t, int64(7), res.Ranges[0].BatchID)
}

func TestRunDataSplits(t *testing.T) {
	db, mock := newMock(t)
	exec, _ := newExecutor(t, db, nil)
	split := core.Field{Name: "split_id", Type: core.Type(core.TypeBigInt), Role: core.RoleDataSplit}
	req := request(core.AppendOnly{}, ingest.Options{}, split)
	p := plan(t, req)
	require.NotEmpty(t, p.DataSplitValuesSQL)

	ranges := ingest.SplitRanges([]int64{5, 1, 2, 2})
	bound, err := ingest.New(req.Dialect, req.Options).CompileRanges(req.Datasets, req.Mode, ranges)
	require.NoError(t, err)
	require.Len(t, bound, 3)

	x := expect{mock, identity}
	x.execs(p.PreActionsSQL)
	rows := sqlmock.NewRows([]string{"split_id"})
	for _, v := range []int64{5, 1, 2, 2} {
		rows.AddRow(v)
	}
	mock.ExpectQuery(p.DataSplitValuesSQL).WillReturnRows(rows)
	for _, b := range bound {
		mock.ExpectBegin()
		x.stats(b.PreIngestStatisticsSQL, map[core.StatisticName]int64{core.StatIncomingRecordCount: 2, core.StatRowsInserted: 2})
		x.execs(b.IngestSQL)
		x.stats(b.PostIngestStatisticsSQL, nil)
		x.execs(b.MetadataIngestSQL)
		mock.ExpectCommit()
	}

	res, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, res.Ranges, 3)
	for i, rr := range res.Ranges {
		require.NotNil(t, rr.Range)
		assert.Equal(t, ranges[i], *rr.Range)
	}
	assert.Equal(t, int64(6), res.Statistics[core.StatIncomingRecordCount])
}

func TestRunDataSplitsPlaceholdersAllocatePerRange(t *testing.T) {
	db, mock := newMock(t)
	exec, clock := newExecutor(t, db, nil)
	mode := core.UnitemporalDelta{DedupBy: core.FilterDuplicates, VersionBy: core.AllVersionOf("amount")}
	req := request(mode, ingest.Options{Placeholders: true})
	gen := ingest.New(req.Dialect, req.Options)
	p := plan(t, req)
	require.NotEmpty(t, p.DataSplitValuesSQL)
	nextID, err := gen.NextBatchIDSQL(req.Datasets, req.Mode)
	require.NoError(t, err)

	ranges := ingest.SplitRanges([]int64{1, 2})
	bound, err := gen.CompileRanges(req.Datasets, req.Mode, ranges)
	require.NoError(t, err)
	require.Len(t, bound, 2)

	subFor := func(id string) func(string) string {
		return strings.NewReplacer(
			core.BatchIDPattern, id,
			core.BatchStartTSPattern, execTime.Format(ingest.TimestampLayout),
			core.BatchEndTSPattern, clock.Now().UTC().Format(ingest.TimestampLayout),
		).Replace
	}
	first := expect{mock, subFor("7")}
	first.execs(p.PreActionsSQL)
	first.count(nextID, 7)
	first.execs(p.DedupAndVersioningSQL)
	for _, check := range core.ErrorCheckOrder {
		if q, ok := p.DedupAndVersioningErrorChecksSQL[check]; ok {
			first.count(q, 1)
		}
	}
	mock.ExpectQuery(p.DataSplitValuesSQL).WillReturnRows(sqlmock.NewRows([]string{"data_split"}).AddRow(int64(1)).AddRow(int64(2)))
	for i, b := range bound {
		id := int64(7 + i)
		x := expect{mock, subFor(strconv.FormatInt(id, 10))}
		mock.ExpectBegin()
		x.count(nextID, id)
		x.stats(b.PreIngestStatisticsSQL, nil)
		x.execs(b.IngestSQL)
		x.stats(b.PostIngestStatisticsSQL, nil)
		x.execs(b.MetadataIngestSQL)
		mock.ExpectCommit()
	}
	x := expect{mock, identity}
	x.execs(p.PostCleanupSQL)

	res, err := exec.Run(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(7), res.BatchID)
	require.Len(t, res.Ranges, 2)
	assert.Equal(t, int64(7), res.Ranges[0].BatchID)
	assert.Equal(t, int64(8), res.Ranges[1].BatchID)
}

func TestRunRollsBackFailedRange(t *testing.T) {
	db, mock := newMock(t)
	exec, _ := newExecutor(t, db, nil)
	req := request(core.NontemporalSnapshot{}, ingest.Options{})
	p := plan(t, req)
	require.NotEmpty(t, p.IngestSQL)

	x := expect{mock, identity}
	x.execs(p.PreActionsSQL)
	x.count(p.PreIngestStatisticsSQL[core.StatIncomingRecordCount], 4)
	mock.ExpectBegin()
	x.stats(p.PreIngestStatisticsSQL, nil)
	mock.ExpectExec(p.IngestSQL[0]).WillReturnError(errors.New("table is locked"))
	mock.ExpectRollback()

	_, err := exec.Run(context.Background(), req)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	var stmtErr *StatementError
	require.True(t, errors.As(err, &stmtErr))
	assert.Equal(t, PhaseIngest, stmtErr.Phase)
	assert.Equal(t, p.IngestSQL[0], stmtErr.SQL)
	assert.Contains(t, err.Error(), "table is locked")
}

func TestRunCompileError(t *testing.T) {
	db, mock := newMock(t)
	exec, _ := newExecutor(t, db, nil)
	req := request(core.NontemporalDelta{}, ingest.Options{})
	req.Datasets.Main.Name = ""

	res, err := exec.Run(context.Background(), req)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchVarsApply(t *testing.T) {
	var none *batchVars
	assert.Equal(t, "x = {BATCH_ID_PATTERN}", none.apply("x = {BATCH_ID_PATTERN}", execTime))

	v := &batchVars{id: 12, start: execTime}
	end := execTime.Add(90 * time.Second)
	got := v.apply("{BATCH_ID_PATTERN}-1 '{BATCH_START_TS_PATTERN}' '{BATCH_END_TS_PATTERN}'", end)
	assert.Equal(t, "12-1 '2024-03-01 06:30:00.000000' '2024-03-01 06:31:30.000000'", got)
}
