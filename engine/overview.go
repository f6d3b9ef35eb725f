package engine

import (
	"fmt"
	"sort"
	"strconv"
)

// ============================================================================
// OVERVIEW — Dashboard KPIs and fixed breakdowns
// ============================================================================
// These feed the dashboard pages rather than the assistant: fixed metric
// sets, no truncation except the explicit top-N lists, sums to two decimals.
// ============================================================================

// kpiMetrics are the headline metrics of every dashboard breakdown.
var kpiMetrics = []Metric{GrossProfit, Revenue, Units}

// BreakdownRow is one group of a fixed-metric breakdown.
type BreakdownRow struct {
	Keys   map[Dimension]string `json:"keys"`
	Values map[Metric]float64   `json:"values"`
}

// Breakdown sums metrics per distinct combination of dims, ordered by key.
// Unavailable dimensions and metrics are skipped.
func Breakdown(view RecordView, dims []Dimension, metrics []Metric) []BreakdownRow {
	caps := view.Capabilities()
	dims = availableDimensions(dims, caps)
	metrics = availableMetrics(metrics, caps)
	if len(dims) == 0 || view.Len() == 0 {
		return []BreakdownRow{}
	}

	groups := GroupRows(view, dims)
	sortGroupsByKey(groups, dims)

	rows := make([]BreakdownRow, 0, len(groups))
	for _, g := range groups {
		row := BreakdownRow{
			Keys:   make(map[Dimension]string, len(dims)),
			Values: make(map[Metric]float64, len(metrics)),
		}
		for i, d := range dims {
			row.Keys[d] = g.Keys[i]
		}
		for _, m := range metrics {
			row.Values[m] = RoundTo2(SumMetric(g.View, m))
		}
		rows = append(rows, row)
	}
	return rows
}

// TopBreakdown returns the n rows with the largest value of m.
func TopBreakdown(rows []BreakdownRow, m Metric, n int) []BreakdownRow {
	out := append([]BreakdownRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Values[m] > out[j].Values[m] })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ============================================================================
// EXECUTIVE OVERVIEW
// ============================================================================

// Overview is the executive dashboard payload.
type Overview struct {
	YearlyPerformance   []BreakdownRow `json:"yearlyPerformance"`
	BusinessPerformance []BreakdownRow `json:"businessPerformance"`
	MonthlyTrend        []BreakdownRow `json:"monthlyTrend"`
	LatestYear          int            `json:"latestYear"`
	TotalGrossProfit    float64        `json:"totalGrossProfit"`
	TotalRevenue        float64        `json:"totalRevenue"`
	TotalUnits          float64        `json:"totalUnits"`
}

// ExecutiveOverview computes yearly, per-business and latest-year monthly
// KPIs over the rows matching filters. ok is false when nothing matches.
func ExecutiveOverview(view RecordView, filters Filters) (ov Overview, ok bool) {
	filtered := ApplyFilters(view, filters)
	if filtered.Len() == 0 {
		return Overview{}, false
	}

	ov.YearlyPerformance = Breakdown(filtered, []Dimension{Year}, kpiMetrics)
	ov.BusinessPerformance = Breakdown(filtered, []Dimension{Business}, kpiMetrics)

	ov.LatestYear = latestYear(filtered)
	latest := filtered
	if ov.LatestYear != 0 {
		latest = ApplyFilters(filtered, Filters{Dimensions: map[Dimension][]string{
			Year: {strconv.Itoa(ov.LatestYear)},
		}})
	}
	ov.MonthlyTrend = Breakdown(latest, []Dimension{Month}, kpiMetrics)

	ov.TotalGrossProfit = SumMetric(filtered, GrossProfit)
	ov.TotalRevenue = SumMetric(filtered, Revenue)
	ov.TotalUnits = SumMetric(filtered, Units)
	return ov, true
}

func latestYear(view RecordView) int {
	latest := 0
	for i := 0; i < view.Len(); i++ {
		if y, err := strconv.Atoi(view.Dimension(i, Year)); err == nil && y > latest {
			latest = y
		}
	}
	return latest
}

// ============================================================================
// DRILLDOWNS
// ============================================================================

// CustomerAnalysis breaks KPIs down by channel and customer.
type CustomerAnalysis struct {
	ChannelPerformance  []BreakdownRow `json:"channelPerformance"`
	CustomerPerformance []BreakdownRow `json:"customerPerformance"`
	TopCustomers        []BreakdownRow `json:"topCustomers"`
}

// AnalyzeCustomers computes channel and customer performance plus the ten
// customers with the highest revenue.
func AnalyzeCustomers(view RecordView) CustomerAnalysis {
	customers := Breakdown(view, []Dimension{Customer}, kpiMetrics)
	return CustomerAnalysis{
		ChannelPerformance:  Breakdown(view, []Dimension{Channel}, kpiMetrics),
		CustomerPerformance: customers,
		TopCustomers:        TopBreakdown(customers, Revenue, 10),
	}
}

// BrandAnalysis breaks KPIs down by brand.
type BrandAnalysis struct {
	BrandPerformance []BreakdownRow `json:"brandPerformance"`
	BrandByBusiness  []BreakdownRow `json:"brandByBusiness"`
	BrandByYear      []BreakdownRow `json:"brandByYear"`
}

// AnalyzeBrands computes brand performance, brand by business and brand
// revenue per year.
func AnalyzeBrands(view RecordView) BrandAnalysis {
	return BrandAnalysis{
		BrandPerformance: Breakdown(view, []Dimension{Brand}, kpiMetrics),
		BrandByBusiness:  Breakdown(view, []Dimension{Brand, Business}, []Metric{GrossProfit, Revenue}),
		BrandByYear:      Breakdown(view, []Dimension{Brand, Year}, []Metric{Revenue}),
	}
}

// CategoryAnalysis breaks KPIs down by category and sub-category.
type CategoryAnalysis struct {
	CategoryPerformance    []BreakdownRow `json:"categoryPerformance"`
	SubCategoryPerformance []BreakdownRow `json:"subCategoryPerformance"`
}

// AnalyzeCategories computes category and sub-category performance.
func AnalyzeCategories(view RecordView) CategoryAnalysis {
	return CategoryAnalysis{
		CategoryPerformance:    Breakdown(view, []Dimension{Category}, kpiMetrics),
		SubCategoryPerformance: Breakdown(view, []Dimension{SubCategory}, kpiMetrics),
	}
}

// ============================================================================
// FILTER OPTIONS & DATA SUMMARY
// ============================================================================

// FilterOptions lists the selectable values of each dashboard filter.
type FilterOptions struct {
	Years      []string `json:"years"`
	Months     []string `json:"months"`
	Businesses []string `json:"businesses"`
	Channels   []string `json:"channels"`
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
	Customers  []string `json:"customers"`
}

// BuildFilterOptions collects sorted distinct values per dimension.
func BuildFilterOptions(view RecordView) FilterOptions {
	return FilterOptions{
		Years:      SortedValues(view, Year),
		Months:     SortedValues(view, Month),
		Businesses: SortedValues(view, Business),
		Channels:   SortedValues(view, Channel),
		Brands:     SortedValues(view, Brand),
		Categories: SortedValues(view, Category),
		Customers:  SortedValues(view, Customer),
	}
}

// DataSummary describes the size and spread of a snapshot.
type DataSummary struct {
	TotalRows        int    `json:"totalRows"`
	YearRange        string `json:"yearRange"`
	BusinessSegments int    `json:"businessSegments"`
	Channels         int    `json:"channels"`
	Customers        int    `json:"customers"`
	Brands           int    `json:"brands"`
	Categories       int    `json:"categories"`
}

// Summarize computes a DataSummary for view.
func Summarize(view RecordView) DataSummary {
	s := DataSummary{
		TotalRows:        view.Len(),
		BusinessSegments: len(UniqueValues(view, Business)),
		Channels:         len(UniqueValues(view, Channel)),
		Customers:        len(UniqueValues(view, Customer)),
		Brands:           len(UniqueValues(view, Brand)),
		Categories:       len(UniqueValues(view, Category)),
	}
	years := SortedValues(view, Year)
	if len(years) > 0 {
		s.YearRange = fmt.Sprintf("%s - %s", years[0], years[len(years)-1])
	}
	return s
}
