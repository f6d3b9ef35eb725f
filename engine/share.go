package engine

import (
	"math"
	"strconv"
)

// ============================================================================
// SHARE — Percent of total revenue
// ============================================================================
// Trend results: share of that year's revenue over the filtered rows.
// Other grouped results: share of the whole filtered revenue.
// Flat results carry no share column.
// ============================================================================

// WithShare returns a copy of p with a PercentOfTotal column computed against
// filtered, the row set p was aggregated from. Results without a Revenue
// column or without grouping keys are returned unchanged.
func WithShare(p PivotResult, filtered RecordView) PivotResult {
	if !p.HasMetric(Revenue) || len(p.GroupBy) == 0 {
		return p
	}

	out := p.clone()
	out.HasPercentOfTotal = true

	yi := out.DimensionIndex(Year)
	if out.Trend && yi >= 0 {
		totals := revenueByYear(filtered)
		for i := range out.Rows {
			r := &out.Rows[i]
			r.PercentOfTotal = sharePct(r.Values[Revenue], totals[r.Group[yi]])
		}
		return out
	}

	total := SumMetric(filtered, Revenue)
	for i := range out.Rows {
		r := &out.Rows[i]
		r.PercentOfTotal = sharePct(r.Values[Revenue], total)
	}
	return out
}

func revenueByYear(view RecordView) map[string]float64 {
	totals := make(map[string]float64)
	for i := 0; i < view.Len(); i++ {
		y := view.Dimension(i, Year)
		if _, err := strconv.Atoi(y); err != nil {
			continue
		}
		v := view.Metric(i, Revenue)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		totals[y] += v
	}
	return totals
}

// sharePct is part / total * 100 to one decimal, 0 unless total is positive.
func sharePct(part int64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return RoundTo(float64(part)/total*100, 1)
}
