package memsql

import (
	"log/slog"

	"github.com/leapstack-labs/milestone/pkg/adapter"
)

func init() {
	adapter.Register("memsql", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
