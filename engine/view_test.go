package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactViewCanonicalMonths(t *testing.T) {
	view := sampleView()
	assert.Equal(t, "Jan", view.Dimension(1, Month))
	assert.Equal(t, "Feb", view.Dimension(3, Month))
	assert.Equal(t, "2024", view.Dimension(2, Year))
	assert.Equal(t, "", view.Dimension(99, Year))
	assert.Equal(t, 0.0, view.Metric(-1, Revenue))
}

func TestFactViewUnknownYear(t *testing.T) {
	view := NewFactView([]FactRow{{Month: "Jan", Revenue: 1}}, FullCapabilities())
	assert.Equal(t, "", view.Dimension(0, Year))
}

func TestApplyFilters(t *testing.T) {
	view := sampleView()

	out := ApplyFilters(view, Filters{Dimensions: map[Dimension][]string{Month: {"january"}}})
	assert.Equal(t, 3, out.Len())

	out = ApplyFilters(view, Filters{Dimensions: map[Dimension][]string{
		Month:    {"Jan"},
		Business: {" b "},
	}})
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "Aldi", out.Dimension(0, Customer))

	assert.Same(t, view, ApplyFilters(view, Filters{}))
}

func TestGroupRowsWithoutDimensions(t *testing.T) {
	groups := GroupRows(sampleView(), nil)
	require.Len(t, groups, 1)
	assert.Equal(t, "all", groups[0].Key)
	assert.Equal(t, 5, groups[0].Count)
}

func TestCanonicalMonth(t *testing.T) {
	assert.Equal(t, "Sep", CanonicalMonth("september"))
	assert.Equal(t, "Sep", CanonicalMonth(" SEPT "))
	assert.Equal(t, "Aug", CanonicalMonth("Aug"))
	assert.Equal(t, "Q1", CanonicalMonth("Q1"))
	assert.Equal(t, 12, MonthOrder("December"))
	assert.Equal(t, 13, MonthOrder("Q1"))
}

func TestWithPresets(t *testing.T) {
	q := ParsedQuery{
		Metrics:          []Metric{Revenue},
		DimensionFilters: []DimensionFilter{{Dimension: Business}},
	}

	out := q.WithPresets(Presets{Year: 2024, Month: "march", Business: "A"})
	assert.Equal(t, 2024, out.Year)
	assert.Equal(t, "Mar", out.Month)
	assert.Equal(t, []DimensionFilter{{Dimension: Business, Value: "A"}}, out.DimensionFilters)
	assert.True(t, q.DimensionFilters[0].IsGrouping())

	out = ParsedQuery{Metrics: []Metric{Revenue}}.WithPresets(Presets{Business: "B"})
	assert.Equal(t, []DimensionFilter{{Dimension: Business, Value: "B"}}, out.DimensionFilters)
	assert.Equal(t, []string{"B"}, out.Filters().Dimensions[Business])
}

func TestPivotPresentation(t *testing.T) {
	q := byBusiness(Revenue, GrossProfit)
	q.IsTrend = true
	p := Execute(q, sampleView()).Pivot

	table := BuildPivotTable(p, "t")
	require.Len(t, table.Columns, 8)
	assert.Equal(t, "text", table.Columns[0].Type)
	assert.Equal(t, "percent", table.Columns[4].Type)
	assert.Equal(t, []string{"2023", "A", "100", "40", "0.0", "0.0", "40.0", "33.3"}, table.Rows[0])

	chart := BuildPivotChart(p, "t")
	require.NotNil(t, chart)
	assert.Equal(t, "line", chart.ChartType)
	assert.Equal(t, "Year / Business", chart.XAxis)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, "2023 / A", chart.Series[0].Data[0].Label)

	assert.Nil(t, BuildPivotChart(PivotResult{}, "t"))
}
