package ingest_test

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/leapstack-labs/milestone/pkg/dialects/ansi"
	"github.com/leapstack-labs/milestone/pkg/dialects/bigquery"
	"github.com/leapstack-labs/milestone/pkg/dialects/memsql"
	"github.com/leapstack-labs/milestone/pkg/ingest"
)

func field(name string, kind core.TypeKind, role core.FieldRole) core.Field {
	return core.Field{Name: name, Type: core.Type(kind), Role: role}
}

// stagingSchema is keyed on (id, name) and carries a digest.
func stagingSchema(extra ...core.Field) core.Schema {
	s := core.NewSchema(
		field("id", core.TypeInteger, core.RolePrimaryKey),
		field("name", core.TypeVarchar, core.RolePrimaryKey),
		field("amount", core.TypeDouble, core.RolePlain),
		field("biz_date", core.TypeDate, core.RolePlain),
		field("digest", core.TypeVarchar, core.RoleDigest),
	)
	return s.Append(extra...)
}

func datasets(s core.Schema) core.Datasets {
	return core.Datasets{
		Main:    core.Dataset{Name: "main"},
		Staging: core.Dataset{Name: "staging", Schema: s},
	}
}

func placeholders() ingest.Options {
	return ingest.Options{Placeholders: true}
}

func compile(t *testing.T, d *dialect.Dialect, opts ingest.Options, ds core.Datasets, mode core.IngestMode) *core.GeneratorResult {
	t.Helper()
	res, err := ingest.New(d, opts).Compile(ds, mode)
	require.NoError(t, err)
	return res
}

const ansiMetadataInsert = `INSERT INTO batch_metadata ("table_name", "table_batch_id", "batch_start_ts_utc", "batch_end_ts_utc", "batch_status") ` +
	`(SELECT 'main',{BATCH_ID_PATTERN},'{BATCH_START_TS_PATTERN}','{BATCH_END_TS_PATTERN}','DONE')`

func TestNontemporalSnapshotANSI(t *testing.T) {
	res := compile(t, ansi.ANSI, placeholders(), datasets(stagingSchema()), core.NontemporalSnapshot{})

	assert.Equal(t, []string{
		`CREATE TABLE IF NOT EXISTS main("id" INTEGER NOT NULL,"name" VARCHAR NOT NULL,"amount" DOUBLE,"biz_date" DATE,"digest" VARCHAR,PRIMARY KEY ("id", "name"))`,
		`CREATE TABLE IF NOT EXISTS batch_metadata("table_name" VARCHAR(255),"batch_start_ts_utc" DATETIME,"batch_end_ts_utc" DATETIME,"batch_status" VARCHAR(32),"table_batch_id" INTEGER,"batch_source_info" JSON,"additional_metadata" JSON)`,
	}, res.PreActionsSQL)
	assert.Equal(t, []string{
		`DELETE FROM main as sink`,
		`INSERT INTO main ("id", "name", "amount", "biz_date", "digest") (SELECT stage."id",stage."name",stage."amount",stage."biz_date",stage."digest" FROM staging as stage)`,
	}, res.IngestSQL)
	assert.Equal(t, []string{ansiMetadataInsert}, res.MetadataIngestSQL)
	assert.Equal(t, map[core.StatisticName]string{
		core.StatIncomingRecordCount: `SELECT COUNT(*) as "incomingRecordCount" FROM staging as stage`,
		core.StatRowsDeleted:         `SELECT COUNT(*) as "rowsDeleted" FROM main as sink`,
	}, res.PreIngestStatisticsSQL)
	assert.Equal(t, map[core.StatisticName]string{
		core.StatRowsInserted: `SELECT COUNT(*) as "rowsInserted" FROM main as sink`,
	}, res.PostIngestStatisticsSQL)

	assert.Empty(t, res.DedupAndVersioningSQL)
	assert.Empty(t, res.DataSplitValuesSQL)
	assert.Empty(t, res.PostActionsSQL)
	assert.Empty(t, res.PostCleanupSQL)
	assert.Empty(t, res.InitializeLockSQL)
}

func TestNontemporalDeltaBigQueryMerge(t *testing.T) {
	res := compile(t, bigquery.BigQuery, placeholders(), datasets(stagingSchema()), core.NontemporalDelta{})

	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS main(`id` INT64 NOT NULL,`name` STRING NOT NULL,`amount` FLOAT64,`biz_date` DATE,`digest` STRING,PRIMARY KEY (`id`, `name`) NOT ENFORCED)",
		res.PreActionsSQL[0])
	require.Len(t, res.IngestSQL, 1)
	assert.Equal(t,
		"MERGE INTO main as sink USING staging as stage ON (sink.`id` = stage.`id`) AND (sink.`name` = stage.`name`) "+
			"WHEN MATCHED AND sink.`digest` <> stage.`digest` THEN UPDATE SET sink.`id` = stage.`id`,sink.`name` = stage.`name`,"+
			"sink.`amount` = stage.`amount`,sink.`biz_date` = stage.`biz_date`,sink.`digest` = stage.`digest` "+
			"WHEN NOT MATCHED THEN INSERT (`id`, `name`, `amount`, `biz_date`, `digest`) "+
			"VALUES (stage.`id`,stage.`name`,stage.`amount`,stage.`biz_date`,stage.`digest`)",
		res.IngestSQL[0])
}

func TestNontemporalDeltaMemSQLJoinedUpdate(t *testing.T) {
	res := compile(t, memsql.MemSQL, placeholders(), datasets(stagingSchema()), core.NontemporalDelta{})

	assert.Equal(t, []string{
		"UPDATE main as sink INNER JOIN staging as stage ON ((sink.`id` = stage.`id`) AND (sink.`name` = stage.`name`)) AND (sink.`digest` <> stage.`digest`) " +
			"SET sink.`id` = stage.`id`,sink.`name` = stage.`name`,sink.`amount` = stage.`amount`,sink.`biz_date` = stage.`biz_date`,sink.`digest` = stage.`digest`",
		"INSERT INTO main (`id`, `name`, `amount`, `biz_date`, `digest`) " +
			"(SELECT stage.`id`,stage.`name`,stage.`amount`,stage.`biz_date`,stage.`digest` FROM staging as stage " +
			"WHERE NOT (EXISTS (SELECT * FROM main as sink WHERE (sink.`id` = stage.`id`) AND (sink.`name` = stage.`name`))))",
	}, res.IngestSQL)
}

func TestNontemporalDeltaDeleteIndicator(t *testing.T) {
	s := stagingSchema(field("delete_indicator", core.TypeVarchar, core.RoleDeleteIndicator))
	mode := core.NontemporalDelta{DeleteIndicator: &core.DeleteIndicator{Values: []any{"yes", "1"}}}
	res := compile(t, ansi.ANSI, placeholders(), datasets(s), mode)

	require.Len(t, res.IngestSQL, 3)
	assert.Equal(t,
		`DELETE FROM main as sink WHERE EXISTS (SELECT * FROM staging as stage WHERE `+
			`((sink."id" = stage."id") AND (sink."name" = stage."name")) AND (sink."digest" = stage."digest") AND (stage."delete_indicator" IN ('yes','1')))`,
		res.IngestSQL[2])
	assert.Contains(t, res.IngestSQL[1], `stage."delete_indicator" NOT IN ('yes','1')`)
	assert.NotContains(t, res.PreActionsSQL[0], "delete_indicator")
	assert.Contains(t, res.PreIngestStatisticsSQL, core.StatRowsDeleted)
}

func TestUnitemporalSnapshotEmptyBatchDeleteTargetData(t *testing.T) {
	opts := placeholders()
	opts.EmptyBatch = true
	mode := core.UnitemporalSnapshot{EmptyBatch: core.EmptyBatchDeleteTargetData}
	res := compile(t, ansi.ANSI, opts, datasets(stagingSchema()), mode)

	assert.Equal(t, []string{
		`UPDATE main as sink SET sink."batch_id_out" = {BATCH_ID_PATTERN}-1 WHERE sink."batch_id_out" = 999999999`,
	}, res.IngestSQL)
}

func TestEmptyBatchHandling(t *testing.T) {
	tests := []struct {
		name    string
		mode    core.IngestMode
		ingest  int
		wantErr error
	}{
		{name: "snapshot no-op", mode: core.NontemporalSnapshot{EmptyBatch: core.EmptyBatchNoOp}},
		{name: "snapshot delete", mode: core.NontemporalSnapshot{EmptyBatch: core.EmptyBatchDeleteTargetData}, ingest: 1},
		{name: "snapshot fail", mode: core.NontemporalSnapshot{EmptyBatch: core.EmptyBatchFail}, wantErr: core.ErrEmptyBatch},
		{name: "snapshot unspecified", mode: core.NontemporalSnapshot{}, wantErr: core.ErrInvalidConfiguration},
		{name: "unitemporal snapshot fail", mode: core.UnitemporalSnapshot{EmptyBatch: core.EmptyBatchFail}, wantErr: core.ErrEmptyBatch},
		{
			name: "partitions without values",
			mode: core.UnitemporalSnapshot{
				EmptyBatch:   core.EmptyBatchDeleteTargetData,
				Partitioning: &core.Partitioning{Fields: []string{"biz_date"}},
			},
		},
		{name: "delta", mode: core.NontemporalDelta{}},
		{name: "append only", mode: core.AppendOnly{}},
		{name: "unitemporal delta", mode: core.UnitemporalDelta{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := placeholders()
			opts.EmptyBatch = true
			res, err := ingest.New(ansi.ANSI, opts).Compile(datasets(stagingSchema()), tt.mode)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.IngestSQL, tt.ingest)
			assert.NotEmpty(t, res.MetadataIngestSQL)
		})
	}
}

func TestUnitemporalSnapshotPartitionSpecs(t *testing.T) {
	mode := core.UnitemporalSnapshot{
		EmptyBatch: core.EmptyBatchDeleteTargetData,
		Partitioning: &core.Partitioning{
			Fields: []string{"biz_date"},
			Specs:  []map[string]any{{"biz_date": "2000-01-01"}, {"biz_date": "2000-01-02"}},
		},
	}
	res := compile(t, ansi.ANSI, placeholders(), datasets(stagingSchema()), mode)

	require.Len(t, res.IngestSQL, 2)
	assert.Contains(t, res.IngestSQL[0], `(sink."biz_date" = '2000-01-01') OR (sink."biz_date" = '2000-01-02')`)
	assert.Contains(t, res.IngestSQL[1], `NOT (stage."digest" IN (SELECT sink."digest" FROM main as sink WHERE`)
}

func TestBitemporalFromOnlyDeleteIndicatorTempTable(t *testing.T) {
	s := stagingSchema(
		field("validity_from_reference", core.TypeDatetime, core.RoleValidityFrom),
		field("delete_indicator", core.TypeVarchar, core.RoleDeleteIndicator),
	)
	mode := core.Bitemporal{
		Validity:        core.Validity{Kind: core.ValidFromOnly},
		DeleteIndicator: &core.DeleteIndicator{Values: []any{"yes"}},
	}
	res := compile(t, ansi.ANSI, placeholders(), datasets(s), mode)

	require.Len(t, res.PreActionsSQL, 4)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS main_legend_persistence_temp_with_delete_indicator(`+
			`"id" INTEGER NOT NULL,"name" VARCHAR NOT NULL,"amount" DOUBLE,"biz_date" DATE,"digest" VARCHAR,`+
			`"batch_id_in" INTEGER NOT NULL,"batch_id_out" INTEGER,"validity_from_target" DATETIME NOT NULL,"validity_through_target" DATETIME,`+
			`"delete_indicator" INTEGER,PRIMARY KEY ("id", "name", "batch_id_in", "validity_from_target"))`,
		res.PreActionsSQL[3])
	assert.Contains(t, res.PreActionsSQL[2], "CREATE TABLE IF NOT EXISTS main_legend_persistence_temp(")
	assert.Equal(t, []string{
		`DROP TABLE IF EXISTS main_legend_persistence_temp CASCADE`,
		`DROP TABLE IF EXISTS main_legend_persistence_temp_with_delete_indicator CASCADE`,
	}, res.PostCleanupSQL)
	assert.Len(t, res.IngestSQL, 9)
	assert.Contains(t, res.PostIngestStatisticsSQL, core.StatRowsTerminated)
}

func TestBitemporalFromOnlyFilterDuplicatesSkipsOpenDigests(t *testing.T) {
	s := stagingSchema(field("validity_from_reference", core.TypeDatetime, core.RoleValidityFrom))
	mode := core.Bitemporal{
		Validity: core.Validity{Kind: core.ValidFromOnly},
		DedupBy:  core.FilterDuplicates,
	}
	res := compile(t, ansi.ANSI, placeholders(), datasets(s), mode)

	const noDup = "staging_legend_persistence_stageWithoutDuplicates"
	require.Len(t, res.PreActionsSQL, 5)
	assert.Contains(t, res.PreActionsSQL[4], "CREATE TABLE IF NOT EXISTS "+noDup+"(")
	assert.Contains(t, res.PreActionsSQL[4], `"legend_persistence_count" BIGINT`)

	require.NotEmpty(t, res.IngestSQL)
	first := res.IngestSQL[0]
	assert.True(t, strings.HasPrefix(first, "INSERT INTO "+noDup+" "), first)
	assert.Contains(t, first, "FROM staging_legend_persistence_temp_staging as stage")
	assert.Contains(t, first, `NOT (EXISTS (SELECT * FROM main as sink WHERE`)
	assert.Contains(t, first, `(sink."digest" = stage."digest")`)
	assert.Contains(t, first, `(sink."batch_id_out" = 999999999)`)

	for _, stmt := range res.IngestSQL[1:4] {
		assert.NotContains(t, stmt, "temp_staging as stage", "milestoning reads the filtered copy")
	}
	assert.Equal(t, "DELETE FROM "+noDup+" as "+noDup, res.IngestSQL[len(res.IngestSQL)-1])
	assert.Contains(t, res.PostCleanupSQL, "DROP TABLE IF EXISTS "+noDup+" CASCADE")
}

func TestBitemporalFromThrough(t *testing.T) {
	s := stagingSchema(
		field("validity_from_reference", core.TypeDatetime, core.RoleValidityFrom),
		field("validity_through_reference", core.TypeDatetime, core.RoleValidityThrough),
	)
	mode := core.Bitemporal{Validity: core.Validity{Kind: core.ValidFromThrough}}
	res := compile(t, ansi.ANSI, placeholders(), datasets(s), mode)

	require.Len(t, res.IngestSQL, 2)
	assert.Contains(t, res.IngestSQL[0], `sink."validity_from_target" = stage."validity_from_reference"`)
	assert.Contains(t, res.IngestSQL[1], `stage."validity_from_reference",stage."validity_through_reference"`)
	assert.Len(t, res.PreActionsSQL, 2)
}

func TestDedupFailOnDuplicates(t *testing.T) {
	mode := core.NontemporalSnapshot{DedupBy: core.FailOnDuplicates}
	res := compile(t, ansi.ANSI, placeholders(), datasets(stagingSchema()), mode)

	temp := "staging_legend_persistence_temp_staging"
	assert.Contains(t, res.PreActionsSQL[2], "CREATE TABLE IF NOT EXISTS "+temp+`("id" INTEGER,"name" VARCHAR,`)
	assert.Equal(t, []string{
		`DELETE FROM ` + temp + ` as stage`,
		`INSERT INTO ` + temp + ` ("id", "name", "amount", "biz_date", "digest", "legend_persistence_count") ` +
			`(SELECT stage."id",stage."name",stage."amount",stage."biz_date",stage."digest",COUNT(*) as "legend_persistence_count" ` +
			`FROM staging as stage GROUP BY stage."id", stage."name", stage."amount", stage."biz_date", stage."digest")`,
	}, res.DedupAndVersioningSQL)
	assert.Equal(t,
		`SELECT MAX(stage."legend_persistence_count") as "MAX_DUPLICATES" FROM `+temp+` as stage`,
		res.DedupAndVersioningErrorChecksSQL[core.CheckMaxDuplicates])
	assert.Equal(t,
		`SELECT stage."id",stage."name",stage."amount",stage."biz_date",stage."digest",stage."legend_persistence_count" FROM `+temp+
			` as stage WHERE stage."legend_persistence_count" > 1 LIMIT 20`,
		res.DedupAndVersioningErrorRowsSQL[core.RowsDuplicates])
	assert.Contains(t, res.DedupAndVersioningErrorChecksSQL, core.CheckMaxPKDuplicates)
	assert.Equal(t,
		`SELECT COALESCE(SUM(stage."legend_persistence_count"),0) as "incomingRecordCount" FROM `+temp+` as stage`,
		res.PreIngestStatisticsSQL[core.StatIncomingRecordCount])
	assert.Equal(t, []string{`DROP TABLE IF EXISTS ` + temp + ` CASCADE`}, res.PostCleanupSQL)
}

func TestMaxVersionDataErrorCheck(t *testing.T) {
	s := stagingSchema(field("version", core.TypeInteger, core.RoleVersion))
	mode := core.NontemporalDelta{
		DedupBy:   core.FilterDuplicates,
		VersionBy: core.MaxVersionOf("version", true),
	}
	res := compile(t, ansi.ANSI, placeholders(), datasets(s), mode)

	require.Len(t, res.DedupAndVersioningSQL, 2)
	assert.Contains(t, res.DedupAndVersioningSQL[1],
		`DENSE_RANK() OVER (PARTITION BY stage."id",stage."name" ORDER BY stage."version" DESC) as "legend_persistence_rank"`)
	assert.Contains(t, res.DedupAndVersioningSQL[1], `WHERE stage."legend_persistence_rank" = 1`)
	assert.Contains(t, res.DedupAndVersioningErrorChecksSQL, core.CheckMaxDataErrors)
	assert.NotContains(t, res.DedupAndVersioningErrorChecksSQL, core.CheckMaxPKDuplicates)
	assert.Contains(t, res.IngestSQL[0], `stage."version" > sink."version"`)
}

func TestAllVersionCompileRanges(t *testing.T) {
	s := stagingSchema(field("version", core.TypeInteger, core.RoleVersion))
	mode := core.UnitemporalDelta{VersionBy: core.AllVersionOf("version")}
	g := ingest.New(ansi.ANSI, placeholders())

	base, err := g.Compile(datasets(s), mode)
	require.NoError(t, err)
	assert.True(t, base.UsesDataSplits())
	assert.Equal(t,
		`SELECT DISTINCT stage."data_split" FROM staging_legend_persistence_temp_staging as stage ORDER BY stage."data_split" ASC`,
		base.DataSplitValuesSQL)

	results, err := g.CompileRanges(datasets(s), mode, ingest.SplitRanges([]int64{3, 1, 2, 2}))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		require.NotNil(t, res.Range)
		assert.Equal(t, int64(i+1), res.Range.Lower)
		assert.False(t, res.UsesDataSplits())
		for _, sql := range append(append([]string{}, res.IngestSQL...), res.PreIngestStatisticsSQL[core.StatIncomingRecordCount]) {
			assert.NotContains(t, sql, "DATA_SPLIT")
		}
	}
	assert.Contains(t, results[1].IngestSQL[0], `(stage."data_split" >= 2) AND (stage."data_split" <= 2)`)
	assert.Contains(t, base.IngestSQL[0], `'{DATA_SPLIT_LOWER_BOUND_PLACEHOLDER}'`)
}

func TestCompileRangesWithoutSplits(t *testing.T) {
	_, err := ingest.New(ansi.ANSI, placeholders()).CompileRanges(datasets(stagingSchema()), core.NontemporalDelta{},
		[]core.DataSplitRange{{Lower: 1, Upper: 1}})
	assert.True(t, errors.Is(err, core.ErrInvalidConfiguration))
}

func TestSplitRanges(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		want   []core.DataSplitRange
	}{
		{name: "empty"},
		{name: "single", values: []int64{5}, want: []core.DataSplitRange{{Lower: 5, Upper: 5}}},
		{
			name:   "dense",
			values: []int64{2, 1, 3},
			want:   []core.DataSplitRange{{Lower: 1, Upper: 1}, {Lower: 2, Upper: 2}, {Lower: 3, Upper: 3}},
		},
		{
			name:   "gaps and duplicates",
			values: []int64{10, 1, 4, 4},
			want:   []core.DataSplitRange{{Lower: 1, Upper: 3}, {Lower: 4, Upper: 9}, {Lower: 10, Upper: 10}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ingest.SplitRanges(tt.values)
			assert.Equal(t, tt.want, got)
			for _, v := range tt.values {
				hits := 0
				for _, r := range got {
					if r.Contains(v) {
						hits++
					}
				}
				assert.Equal(t, 1, hits, "value %d", v)
			}
		})
	}
}

func TestSplitRangesCoverRandomKeys(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		values := make([]int64, 1+rng.Intn(40))
		distinct := map[int64]bool{}
		for i := range values {
			values[i] = rng.Int63n(200) - 50
			distinct[values[i]] = true
		}

		got := ingest.SplitRanges(values)
		require.Len(t, got, len(distinct), "seed %d", seed)
		for i, r := range got {
			assert.LessOrEqual(t, r.Lower, r.Upper, "seed %d", seed)
			assert.True(t, distinct[r.Lower], "seed %d: range %s starts at a key", seed, r)
			if i > 0 {
				assert.Equal(t, got[i-1].Upper+1, r.Lower, "seed %d: ranges are contiguous", seed)
			}
		}
		for v := range distinct {
			hits := 0
			for _, r := range got {
				if r.Contains(v) {
					hits++
				}
			}
			assert.Equal(t, 1, hits, "seed %d: key %d", seed, v)
		}
	}
}

func TestConcurrentSafetyLock(t *testing.T) {
	opts := ingest.Options{
		EnableConcurrentSafety: true,
		ExecutionTime:          time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	res := compile(t, ansi.ANSI, opts, datasets(stagingSchema()), core.NontemporalDelta{DedupBy: core.FilterDuplicates})

	lock := "main_legend_persistence_lock"
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS `+lock+`("insert_ts_utc" DATETIME,"last_used_ts_utc" DATETIME,"table_name" VARCHAR UNIQUE)`,
		res.PreActionsSQL[len(res.PreActionsSQL)-1])
	assert.Equal(t, []string{
		`INSERT INTO ` + lock + ` ("insert_ts_utc", "table_name") (SELECT '2000-01-01 00:00:00.000000','main' ` +
			`WHERE NOT (EXISTS (SELECT * FROM ` + lock + ` as ` + lock + `)))`,
	}, res.InitializeLockSQL)
	assert.Equal(t, []string{
		`UPDATE ` + lock + ` as ` + lock + ` SET ` + lock + `."last_used_ts_utc" = '2000-01-01 00:00:00.000000'`,
	}, res.AcquireLockSQL)

	// Temp tables get a deterministic per-job suffix.
	assert.Regexp(t, `^CREATE TABLE IF NOT EXISTS staging_legend_persistence_temp_staging_[0-9a-f]{8}\(`, res.PreActionsSQL[2])
	again := compile(t, ansi.ANSI, opts, datasets(stagingSchema()), core.NontemporalDelta{DedupBy: core.FilterDuplicates})
	assert.Equal(t, res.PreActionsSQL, again.PreActionsSQL)
}

func TestMetadataBatchID(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	opts := ingest.Options{
		Clock:              clock,
		AdditionalMetadata: map[string]any{"watermark": "abc"},
	}
	ds := datasets(stagingSchema())
	ds.Staging.Filters = []core.Filter{{Field: "biz_date", Op: core.FilterGT, Value: "2020-01-01"}}
	res := compile(t, ansi.ANSI, opts, ds, core.UnitemporalDelta{})

	batchID := `(SELECT COALESCE(MAX(batch_metadata."table_batch_id"),0)+1 FROM batch_metadata as batch_metadata WHERE UPPER(batch_metadata."table_name") = 'MAIN')`
	assert.Equal(t, []string{
		`INSERT INTO batch_metadata ("table_name", "table_batch_id", "batch_start_ts_utc", "batch_end_ts_utc", "batch_status", "batch_source_info", "additional_metadata") ` +
			`(SELECT 'main',` + batchID + `,'2000-01-01 00:00:00.000000',CURRENT_TIMESTAMP(),'DONE',` +
			`PARSE_JSON('{"staging_filters":{"biz_date":{"GT":"2020-01-01"}}}'),PARSE_JSON('{"watermark":"abc"}'))`,
	}, res.MetadataIngestSQL)
	assert.Contains(t, res.IngestSQL[1], batchID+",999999999")
	assert.Contains(t, res.IngestSQL[1], `stage."biz_date" > '2020-01-01'`)
}

func TestUpperCaseConversion(t *testing.T) {
	opts := placeholders()
	opts.CaseConversion = ingest.CaseUpper
	res := compile(t, ansi.ANSI, opts, datasets(stagingSchema()), core.UnitemporalDelta{})

	assert.Contains(t, res.PreActionsSQL[0], `CREATE TABLE IF NOT EXISTS MAIN("ID" INTEGER NOT NULL`)
	assert.Contains(t, res.PreActionsSQL[0], `"BATCH_ID_IN" INTEGER NOT NULL,"BATCH_ID_OUT" INTEGER`)
	assert.Contains(t, res.PreActionsSQL[1], `CREATE TABLE IF NOT EXISTS BATCH_METADATA("TABLE_NAME"`)
	assert.Contains(t, res.MetadataIngestSQL[0], `(SELECT 'MAIN',`)
}

func TestCaseConversionOnlyChangesCase(t *testing.T) {
	modes := []core.IngestMode{
		core.NontemporalDelta{DedupBy: core.FilterDuplicates},
		core.UnitemporalDelta{VersionBy: core.MaxVersionOf("amount", true)},
		core.UnitemporalSnapshot{},
		core.Bitemporal{},
	}
	for _, mode := range modes {
		t.Run(mode.Kind().String(), func(t *testing.T) {
			schema := stagingSchema()
			if mode.Kind() == core.ModeBitemporal {
				schema = stagingSchema(field("valid_from", core.TypeDatetime, core.RoleValidityFrom))
			}
			opts := ingest.Options{
				EnableConcurrentSafety: true,
				ExecutionTime:          time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			preserve := compile(t, ansi.ANSI, opts, datasets(schema), mode)
			opts.CaseConversion = ingest.CaseUpper
			upper := compile(t, ansi.ANSI, opts, datasets(schema), mode)

			for _, pair := range [][2][]string{
				{preserve.PreActionsSQL, upper.PreActionsSQL},
				{preserve.DedupAndVersioningSQL, upper.DedupAndVersioningSQL},
				{preserve.IngestSQL, upper.IngestSQL},
				{preserve.MetadataIngestSQL, upper.MetadataIngestSQL},
				{preserve.PostCleanupSQL, upper.PostCleanupSQL},
			} {
				require.Len(t, pair[1], len(pair[0]))
				for i := range pair[0] {
					assert.Equal(t, strings.ToUpper(pair[0][i]), strings.ToUpper(pair[1][i]))
				}
			}
			assert.NotEqual(t, preserve.IngestSQL, upper.IngestSQL)
		})
	}
}

func TestAppendOnlyFilterExisting(t *testing.T) {
	mode := core.AppendOnly{
		FilterExistingRecords: true,
		Auditing:              core.Auditing{DateTimeField: "batch_update_time"},
	}
	res := compile(t, ansi.ANSI, placeholders(), datasets(stagingSchema()), mode)

	assert.Contains(t, res.PreActionsSQL[0], `"batch_update_time" DATETIME NOT NULL,PRIMARY KEY ("id", "name", "batch_update_time")`)
	assert.Equal(t, []string{
		`INSERT INTO main ("id", "name", "amount", "biz_date", "digest", "batch_update_time") ` +
			`(SELECT stage."id",stage."name",stage."amount",stage."biz_date",stage."digest",'{BATCH_START_TS_PATTERN}' FROM staging as stage ` +
			`WHERE NOT (EXISTS (SELECT * FROM main as sink WHERE ((sink."id" = stage."id") AND (sink."name" = stage."name")) AND (sink."digest" = stage."digest"))))`,
	}, res.IngestSQL)
}

func TestCleanupAndCreateStaging(t *testing.T) {
	opts := placeholders()
	opts.CleanupStagingData = true
	opts.CreateStagingDataset = true
	res := compile(t, ansi.ANSI, opts, datasets(stagingSchema()), core.NontemporalDelta{})

	assert.Contains(t, res.PreActionsSQL[2], "CREATE TABLE IF NOT EXISTS staging(")
	assert.Equal(t, []string{`DELETE FROM staging as stage`}, res.PostActionsSQL)
}

func TestCompileErrors(t *testing.T) {
	noPK := core.NewSchema(
		field("id", core.TypeInteger, core.RolePlain),
		field("digest", core.TypeVarchar, core.RoleDigest),
	)
	tests := []struct {
		name    string
		d       *dialect.Dialect
		ds      core.Datasets
		mode    core.IngestMode
		wantErr error
	}{
		{name: "no dialect", ds: datasets(stagingSchema()), mode: core.NontemporalDelta{}, wantErr: dialect.ErrDialectRequired},
		{name: "no mode", d: ansi.ANSI, ds: datasets(stagingSchema()), wantErr: core.ErrInvalidConfiguration},
		{name: "delta without keys", d: ansi.ANSI, ds: datasets(noPK), mode: core.NontemporalDelta{}, wantErr: core.ErrInvalidConfiguration},
		{name: "empty staging schema", d: ansi.ANSI, ds: datasets(core.Schema{}), mode: core.NontemporalSnapshot{}, wantErr: core.ErrInvalidConfiguration},
		{
			name:    "bitemporal without validity",
			d:       ansi.ANSI,
			ds:      datasets(stagingSchema()),
			mode:    core.Bitemporal{},
			wantErr: core.ErrInvalidConfiguration,
		},
		{
			name:    "all version on snapshot",
			d:       ansi.ANSI,
			ds:      datasets(stagingSchema(field("version", core.TypeInteger, core.RoleVersion))),
			mode:    core.NontemporalSnapshot{VersionBy: core.AllVersionOf("version")},
			wantErr: core.ErrInvalidConfiguration,
		},
		{
			name:    "unknown version field",
			d:       ansi.ANSI,
			ds:      datasets(stagingSchema()),
			mode:    core.NontemporalDelta{VersionBy: core.MaxVersionOf("missing", false)},
			wantErr: core.ErrInvalidConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.New(tt.d, placeholders()).Compile(tt.ds, tt.mode)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCompileEveryModeEveryDialect(t *testing.T) {
	modes := map[string]core.IngestMode{
		"nontemporal_snapshot": core.NontemporalSnapshot{},
		"nontemporal_delta":    core.NontemporalDelta{DedupBy: core.FilterDuplicates},
		"append_only":          core.AppendOnly{FilterExistingRecords: true},
		"unitemporal_delta":    core.UnitemporalDelta{Transaction: core.Transaction{Keying: core.KeyBatchIDAndTime}},
		"unitemporal_snapshot": core.UnitemporalSnapshot{Partitioning: &core.Partitioning{Fields: []string{"biz_date"}}},
	}
	for _, name := range dialect.List() {
		d, err := dialect.Lookup(name)
		require.NoError(t, err)
		for modeName, mode := range modes {
			t.Run(name+"/"+modeName, func(t *testing.T) {
				res := compile(t, d, placeholders(), datasets(stagingSchema()), mode)
				assert.NotEmpty(t, res.IngestSQL)
				assert.NotEmpty(t, res.MetadataIngestSQL)
				assert.NotEmpty(t, res.PreIngestStatisticsSQL)
			})
		}
	}
}

func TestNextBatchIDSQL(t *testing.T) {
	sql, err := ingest.New(ansi.ANSI, placeholders()).NextBatchIDSQL(datasets(stagingSchema()), core.AppendOnly{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COALESCE(MAX(batch_metadata."table_batch_id"),0)+1 FROM batch_metadata as batch_metadata WHERE UPPER(batch_metadata."table_name") = 'MAIN'`, sql)

	_, err = ingest.New(nil, ingest.Options{}).NextBatchIDSQL(datasets(stagingSchema()), core.AppendOnly{})
	assert.ErrorIs(t, err, dialect.ErrDialectRequired)
}
