package memsql

import "github.com/leapstack-labs/milestone/pkg/dialect"

func init() {
	dialect.Register(MemSQL)
}

// MemSQL is the MemSQL (SingleStore) dialect.
var MemSQL = dialect.New(Config).Build()
