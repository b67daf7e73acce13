package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/milestone/pkg/adapter"
	"github.com/leapstack-labs/milestone/pkg/dialect"
)

var listedFeatures = []dialect.Feature{
	dialect.FeatureMerge,
	dialect.FeatureCTE,
	dialect.FeatureWindow,
	dialect.FeatureTruncate,
}

// dialectInfo describes a registered dialect.
type dialectInfo struct {
	Name          string          `json:"name" yaml:"name"`
	DefaultSchema string          `json:"default_schema,omitempty" yaml:"default_schema,omitempty"`
	UpdateStyle   string          `json:"update_style" yaml:"update_style"`
	Features      map[string]bool `json:"features" yaml:"features"`
	Adapter       bool            `json:"adapter" yaml:"adapter"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects and their capabilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			infos := listDialects()

			r := c.Renderer
			if r.IsStructured() {
				return r.Structured(infos)
			}

			header := []string{"dialect", "default schema", "update style"}
			for _, f := range listedFeatures {
				header = append(header, string(f))
			}
			header = append(header, "adapter")

			rows := make([][]any, 0, len(infos))
			for _, info := range infos {
				row := []any{info.Name, info.DefaultSchema, info.UpdateStyle}
				for _, f := range listedFeatures {
					row = append(row, yesNo(info.Features[string(f)]))
				}
				rows = append(rows, append(row, yesNo(info.Adapter)))
			}
			r.Table(header, rows)
			return nil
		},
	}
}

func listDialects() []dialectInfo {
	names := dialect.List()
	infos := make([]dialectInfo, 0, len(names))
	for _, name := range names {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		info := dialectInfo{
			Name:          d.GetName(),
			DefaultSchema: d.DefaultSchema,
			UpdateStyle:   d.UpdateStyle().String(),
			Features:      make(map[string]bool, len(listedFeatures)),
			Adapter:       adapter.IsRegistered(name),
		}
		for _, f := range listedFeatures {
			info.Features[string(f)] = d.Supports(f)
		}
		infos = append(infos, info)
	}
	return infos
}
