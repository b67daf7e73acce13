package duckdb

import "github.com/leapstack-labs/milestone/pkg/adapter"

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load before the first batch (e.g. "json").
	Extensions []string `mapstructure:"extensions"`

	// Settings to apply at session level (e.g., memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if err := adapter.DecodeParams(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}
