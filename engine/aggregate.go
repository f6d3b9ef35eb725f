package engine

import (
	"sort"
)

// ============================================================================
// AGGREGATE — ParsedQuery + RecordView → PivotResult
// ============================================================================
// Pipeline:
//   1. Apply value filters (year, month, valued dimensions) → SubView
//   2. Resolve metrics and keys against the view's capabilities; with none
//      of the requested metrics present, fall back to FallbackMetrics
//   3. Group (Year first for trends) and sum
//   4. Order: trend by key, cost drivers by TotalCost (never truncated),
//      ranking by first metric with top-N truncation
//   5. Round sums to whole units, derive ProfitMarginPct
//
// Growth and share columns are attached afterwards by WithGrowth/WithShare.
// ============================================================================

// Aggregate computes the pivot for q over view. It also returns the filtered
// view the pivot was computed from; share analytics and row counts need it.
func Aggregate(view RecordView, q ParsedQuery, opts ...Option) (PivotResult, RecordView) {
	cfg := applyOptions(opts)
	caps := view.Capabilities()

	filtered := ApplyFilters(view, q.Filters())

	metrics := availableMetrics(q.Metrics, caps)
	if len(metrics) == 0 {
		metrics = availableMetrics(FallbackMetrics, caps)
	}
	keys := availableDimensions(q.GroupKeys(), caps)
	groupBy := keys
	if q.IsTrend && caps.HasDimension(Year) {
		groupBy = append([]Dimension{Year}, keys...)
	}

	result := PivotResult{
		GroupBy:         groupBy,
		Metrics:         metrics,
		Trend:           q.IsTrend,
		HasProfitMargin: containsMetric(metrics, Revenue) && containsMetric(metrics, GrossProfit),
	}
	if filtered.Len() == 0 {
		return result, filtered
	}

	if len(groupBy) == 0 {
		result.Rows = []PivotRow{newPivotRow(nil, filtered, metrics)}
		finalizeRows(&result)
		return result, filtered
	}

	groups := GroupRows(filtered, groupBy)
	sortGroupsByKey(groups, groupBy)
	rows := make([]PivotRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, newPivotRow(g.Keys, g.View, metrics))
	}

	costs := costMetrics(metrics)
	switch {
	case q.IsTrend:
		// chronological, every group kept
	case q.IsCostDrivers:
		// exhaustive; ordered by TotalCost only when cost columns exist
		if len(costs) == 0 {
			break
		}
		result.HasTotalCost = true
		for i := range rows {
			for _, m := range costs {
				rows[i].TotalCost += rows[i].sums[m]
			}
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalCost > rows[j].TotalCost })
	default:
		if len(metrics) > 0 {
			first := metrics[0]
			if q.IsLowestRanking {
				sort.SliceStable(rows, func(i, j int) bool { return rows[i].sums[first] < rows[j].sums[first] })
			} else {
				sort.SliceStable(rows, func(i, j int) bool { return rows[i].sums[first] > rows[j].sums[first] })
			}
		}
		if cfg.RankingLimit > 0 && len(rows) > cfg.RankingLimit {
			rows = rows[:cfg.RankingLimit]
		}
	}

	result.Rows = rows
	finalizeRows(&result)
	return result, filtered
}

func newPivotRow(keys []string, view RecordView, metrics []Metric) PivotRow {
	row := PivotRow{
		Group: keys,
		Count: view.Len(),
		sums:  make(map[Metric]float64, len(metrics)),
	}
	for _, m := range metrics {
		row.sums[m] = SumMetric(view, m)
	}
	return row
}

// finalizeRows casts sums to whole units and derives the profit margin
// from the rounded values.
func finalizeRows(p *PivotResult) {
	for i := range p.Rows {
		r := &p.Rows[i]
		r.Values = make(map[Metric]int64, len(p.Metrics))
		for _, m := range p.Metrics {
			r.Values[m] = WholeUnits(r.sums[m])
		}
		if p.HasTotalCost {
			r.TotalCost = RoundTo(r.TotalCost, 0)
		}
		if p.HasProfitMargin {
			r.ProfitMarginPct = profitMargin(r.Values[GrossProfit], r.Values[Revenue])
		}
	}
}

// profitMargin is GrossProfit / Revenue * 100 to one decimal, 0 when there
// is no revenue.
func profitMargin(gp, rev int64) float64 {
	if rev == 0 {
		return 0
	}
	return RoundTo(float64(gp)/float64(rev)*100, 1)
}

func availableMetrics(requested []Metric, caps Capabilities) []Metric {
	out := make([]Metric, 0, len(requested))
	seen := make(map[Metric]bool, len(requested))
	for _, m := range requested {
		if caps.HasMetric(m) && !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func availableDimensions(requested []Dimension, caps Capabilities) []Dimension {
	out := make([]Dimension, 0, len(requested))
	seen := make(map[Dimension]bool, len(requested))
	for _, d := range requested {
		if caps.HasDimension(d) && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func costMetrics(metrics []Metric) []Metric {
	var out []Metric
	for _, m := range metrics {
		if m.IsCostDriver() {
			out = append(out, m)
		}
	}
	return out
}

func containsMetric(metrics []Metric, m Metric) bool {
	for _, x := range metrics {
		if x == m {
			return true
		}
	}
	return false
}
