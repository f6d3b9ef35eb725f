package engine

import (
	"strconv"
	"strings"
)

// ============================================================================
// GROWTH — Year-over-year change per group
// ============================================================================
// Each year row is compared with the year−1 row of the same group (all
// non-year keys equal). Growth never mixes values across categories.
// Rows without a usable predecessor get 0: missing prior-year data is not
// distinguished from zero growth.
// ============================================================================

// WithGrowth returns a copy of p with one "<Metric> Growth %" column per
// metric. Results not grouped by Year are returned unchanged.
func WithGrowth(p PivotResult) PivotResult {
	yi := p.DimensionIndex(Year)
	if yi < 0 {
		return p
	}

	out := p.clone()
	out.HasGrowth = true

	// partition → year → row index
	lookup := make(map[string]map[int]int)
	years := make([]int, len(out.Rows))
	parts := make([]string, len(out.Rows))
	for i, r := range out.Rows {
		y, err := strconv.Atoi(r.Group[yi])
		if err != nil {
			y = 0
		}
		part := partitionKey(r.Group, yi)
		years[i], parts[i] = y, part
		if lookup[part] == nil {
			lookup[part] = make(map[int]int)
		}
		lookup[part][y] = i
	}

	for i := range out.Rows {
		r := &out.Rows[i]
		r.Growth = make(map[Metric]float64, len(out.Metrics))
		prevIdx, hasPrev := lookup[parts[i]][years[i]-1]
		for _, m := range out.Metrics {
			var g float64
			if hasPrev && years[i] != 0 {
				g = growthPct(r.sums[m], out.Rows[prevIdx].sums[m])
			}
			r.Growth[m] = g
		}
	}
	return out
}

// growthPct is (cur − prev) / prev * 100 to one decimal, 0 when prev is 0.
func growthPct(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return RoundTo((cur-prev)/prev*100, 1)
}

func partitionKey(group []string, skip int) string {
	parts := make([]string, 0, len(group))
	for i, g := range group {
		if i != skip {
			parts = append(parts, g)
		}
	}
	return strings.Join(parts, keySep)
}
