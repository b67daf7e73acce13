package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name:  "empty map returns empty struct",
			input: map[string]any{},
			want:  &Params{},
		},
		{
			name: "extensions only",
			input: map[string]any{
				"extensions": []any{"json", "icu"},
			},
			want: &Params{Extensions: []string{"json", "icu"}},
		},
		{
			name: "settings only",
			input: map[string]any{
				"settings": map[string]any{
					"memory_limit": "4GB",
					"threads":      4,
				},
			},
			want: &Params{Settings: map[string]string{"memory_limit": "4GB", "threads": "4"}},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"secrets": []any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
