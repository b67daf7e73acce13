package ansi

import "github.com/leapstack-labs/milestone/pkg/dialect"

func init() {
	dialect.Register(ANSI)
}

// ANSI is the ANSI SQL dialect.
var ANSI = dialect.New(Config).Build()
