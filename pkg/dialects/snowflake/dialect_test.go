package snowflake

import (
	"testing"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
	"github.com/stretchr/testify/assert"
)

func TestSnowflakeDialect(t *testing.T) {
	assert.Equal(t, "snowflake", Snowflake.Name)
	assert.Equal(t, "PUBLIC", Snowflake.DefaultSchema)
	assert.Equal(t, "ORDERS", Snowflake.NormalizeName("orders"))
	assert.Equal(t, "VARIANT", Snowflake.TypeName(core.Type(core.TypeJSON)))
	assert.Equal(t, core.UpdateFrom, Snowflake.UpdateStyle())
	assert.NoError(t, Snowflake.Require(dialect.FeatureMerge))
}
