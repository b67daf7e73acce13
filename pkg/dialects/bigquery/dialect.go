package bigquery

import "github.com/leapstack-labs/milestone/pkg/dialect"

func init() {
	dialect.Register(BigQuery)
}

// BigQuery is the BigQuery dialect.
var BigQuery = dialect.New(Config).Build()
