package bigquery_test

import (
	"testing"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/leapstack-labs/milestone/pkg/dialects/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigQueryRegistered(t *testing.T) {
	d, ok := dialect.Get("BigQuery")
	require.True(t, ok)
	assert.Same(t, bigquery.BigQuery, d)
}

func TestBigQueryCapabilities(t *testing.T) {
	d := bigquery.BigQuery

	assert.True(t, d.Supports(dialect.FeatureMerge))
	assert.True(t, d.Supports(dialect.FeaturePrimaryKeyNotEnforced))
	assert.False(t, d.Supports(dialect.FeatureDropCascade))

	assert.Equal(t, "`main`", d.QuoteIdentifier("main"))
	assert.Equal(t, "INT64", d.TypeName(core.Type(core.TypeInteger)))
	assert.Equal(t, "STRING", d.TypeName(core.Varchar(0)))
	assert.Equal(t, "DATETIME", d.TypeName(core.Type(core.TypeDatetime)))
	assert.Equal(t, "PARSE_DATETIME('%Y-%m-%d %H:%M:%E6S','2000-01-01 00:00:00.000000')",
		d.TimestampLiteral("2000-01-01 00:00:00.000000"))
}
