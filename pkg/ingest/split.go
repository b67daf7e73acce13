package ingest

import (
	"slices"
	"strconv"
	"strings"

	"github.com/leapstack-labs/milestone/pkg/core"
	"github.com/leapstack-labs/milestone/pkg/dialect"
)

// SplitRanges turns the split keys found in staging into ranges. Ranges are
// sorted, contiguous and non-overlapping: each starts at a distinct key and
// ends just before the next one, so every key lands in exactly one range.
func SplitRanges(values []int64) []core.DataSplitRange {
	if len(values) == 0 {
		return nil
	}
	keys := slices.Clone(values)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	ranges := make([]core.DataSplitRange, len(keys))
	for i, k := range keys {
		upper := k
		if i+1 < len(keys) {
			upper = keys[i+1] - 1
		}
		ranges[i] = core.DataSplitRange{Lower: k, Upper: upper}
	}
	return ranges
}

// bindRange returns a copy of r with the split bound placeholders replaced by
// the bounds of rng.
func bindRange(r *core.GeneratorResult, d *dialect.Dialect, rng core.DataSplitRange) *core.GeneratorResult {
	replacer := strings.NewReplacer(
		d.StringLiteral(core.SplitLowerPattern), strconv.FormatInt(rng.Lower, 10),
		d.StringLiteral(core.SplitUpperPattern), strconv.FormatInt(rng.Upper, 10),
	)
	list := func(in []string) []string {
		if in == nil {
			return nil
		}
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = replacer.Replace(s)
		}
		return out
	}

	bound := *r
	bound.PreActionsSQL = list(r.PreActionsSQL)
	bound.InitializeLockSQL = list(r.InitializeLockSQL)
	bound.AcquireLockSQL = list(r.AcquireLockSQL)
	bound.DedupAndVersioningSQL = list(r.DedupAndVersioningSQL)
	bound.DedupAndVersioningErrorChecksSQL = replaceValues(r.DedupAndVersioningErrorChecksSQL, replacer)
	bound.DedupAndVersioningErrorRowsSQL = replaceValues(r.DedupAndVersioningErrorRowsSQL, replacer)
	bound.IngestSQL = list(r.IngestSQL)
	bound.MetadataIngestSQL = list(r.MetadataIngestSQL)
	bound.PostActionsSQL = list(r.PostActionsSQL)
	bound.PostCleanupSQL = list(r.PostCleanupSQL)
	bound.PreIngestStatisticsSQL = replaceValues(r.PreIngestStatisticsSQL, replacer)
	bound.PostIngestStatisticsSQL = replaceValues(r.PostIngestStatisticsSQL, replacer)
	bound.Range = &rng
	return &bound
}

func replaceValues[K comparable](in map[K]string, replacer *strings.Replacer) map[K]string {
	if in == nil {
		return nil
	}
	out := make(map[K]string, len(in))
	for k, s := range in {
		out[k] = replacer.Replace(s)
	}
	return out
}
