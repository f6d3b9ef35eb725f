package engine

import (
	"fmt"
	"sort"
	"strings"
)

// ============================================================================
// SUMMARY — Short plain-text digests of a pivot
// ============================================================================
// Shown above the LLM narrative so the headline numbers are visible even when
// the model is slow or unavailable.
// ============================================================================

// TopBusinessSummary names the business with the highest revenue and the two
// runners-up. ok is false when the pivot is not grouped by Business or has no
// Revenue column.
func TopBusinessSummary(p PivotResult, year int) (summary string, ok bool) {
	bi := p.DimensionIndex(Business)
	if bi < 0 || !p.HasMetric(Revenue) || len(p.Rows) == 0 {
		return "", false
	}

	rows := append([]PivotRow(nil), p.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Values[Revenue] > rows[j].Values[Revenue] })

	share := func(r PivotRow) string {
		if !p.HasPercentOfTotal {
			return ""
		}
		return " (" + FormatPct(r.PercentOfTotal) + ")"
	}

	var b strings.Builder
	top := rows[0]
	fmt.Fprintf(&b, "Top business in%s: %s - %s%s", yearSuffix(year), top.Group[bi], FormatEuro(float64(top.Values[Revenue])), share(top))

	rest := rows[1:]
	if len(rest) > 2 {
		rest = rest[:2]
	}
	if len(rest) > 0 {
		parts := make([]string, 0, len(rest))
		for _, r := range rest {
			parts = append(parts, fmt.Sprintf("%s %s%s", r.Group[bi], FormatEuro(float64(r.Values[Revenue])), share(r)))
		}
		fmt.Fprintf(&b, "\nNext: %s", strings.Join(parts, ", "))
	}
	return b.String(), true
}

// costSummaryDimensions are tried in order to pick the breakdown column.
var costSummaryDimensions = []Dimension{Business, Brand, Category, Channel}

// CostDriverSummary lists the three largest cost contributors by the first
// categorical column of the pivot.
func CostDriverSummary(p PivotResult, year int) (summary string, ok bool) {
	costs := costMetrics(p.Metrics)
	if len(costs) == 0 || len(p.Rows) == 0 {
		return "", false
	}

	di, dim := -1, Dimension("")
	for _, d := range costSummaryDimensions {
		if i := p.DimensionIndex(d); i >= 0 {
			di, dim = i, d
			break
		}
	}
	if di < 0 {
		return "", false
	}

	type entry struct {
		key   string
		costs map[Metric]float64
		total float64
	}
	byKey := make(map[string]*entry)
	var order []*entry
	for _, r := range p.Rows {
		k := r.Group[di]
		e, exists := byKey[k]
		if !exists {
			e = &entry{key: k, costs: make(map[Metric]float64)}
			byKey[k] = e
			order = append(order, e)
		}
		for _, m := range costs {
			v := float64(r.Values[m])
			e.costs[m] += v
			e.total += v
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].total > order[j].total })
	if len(order) > 3 {
		order = order[:3]
	}

	lines := []string{fmt.Sprintf("Top cost drivers by %s in%s:", dim, yearSuffix(year))}
	for _, e := range order {
		lines = append(lines, fmt.Sprintf(" - %s: %s, Total: %s, Group: %s, LTA: %s, PermDisc: %s, PriceDowns: %s",
			dim, e.key,
			FormatEuro(e.total),
			FormatEuro(e.costs[GroupCost]),
			FormatEuro(e.costs[LTA]),
			FormatEuro(e.costs[PermanentDiscount]),
			FormatEuro(e.costs[PriceDowns]),
		))
	}
	return strings.Join(lines, "\n"), true
}

func yearSuffix(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf(" %d", year)
}
