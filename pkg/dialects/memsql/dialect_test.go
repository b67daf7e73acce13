package memsql_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/leapstack-labs/milestone/pkg/dialects/memsql"
	"github.com/stretchr/testify/assert"
)

func TestMemSQLDialect(t *testing.T) {
	d := memsql.MemSQL

	err := d.Require(dialect.FeatureMerge)
	assert.True(t, errors.Is(err, dialect.ErrUnsupportedFeature))
	assert.Equal(t, core.UpdateJoin, d.UpdateStyle())
	assert.Equal(t, "`mydb`.`main`", d.TableName(&core.TableRef{Database: "mydb", Name: "main"}))
	assert.Equal(t, "'{}'", d.JSONLiteral("{}"))
}
