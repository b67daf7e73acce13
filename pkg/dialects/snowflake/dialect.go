package snowflake

import "github.com/leapstack-labs/milestone/pkg/dialect"

func init() {
	dialect.Register(Snowflake)
}

// Snowflake is the Snowflake dialect.
var Snowflake = dialect.New(Config).Build()
