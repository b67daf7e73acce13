package h2

import "github.com/leapstack-labs/milestone/pkg/dialect"

func init() {
	dialect.Register(H2)
}

// H2 is the H2 dialect.
var H2 = dialect.New(Config).Build()
