package engine

import (
	"strings"
)

// ============================================================================
// CHART BUILDER — Produces ChartConfig from a PivotResult
// ============================================================================
// One series per metric, one point per pivot row. Trend pivots render as
// lines, everything else as bars.
// ============================================================================

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// BuildPivotChart produces a ChartConfig for a pivot. Returns nil when there
// is nothing to plot.
func BuildPivotChart(p PivotResult, title string) *ChartConfig {
	if len(p.Rows) == 0 || len(p.Metrics) == 0 {
		return nil
	}

	chartType := "bar"
	if p.Trend {
		chartType = "line"
	}

	config := &ChartConfig{
		ChartType:  chartType,
		Title:      title,
		ShowLegend: len(p.Metrics) > 1,
		ShowGrid:   true,
		YAxis:      "€",
	}
	if len(p.GroupBy) > 0 {
		names := make([]string, len(p.GroupBy))
		for i, d := range p.GroupBy {
			names[i] = string(d)
		}
		config.XAxis = strings.Join(names, " / ")
	}

	config.Series = make([]ChartSeries, 0, len(p.Metrics))
	for i, m := range p.Metrics {
		points := make([]ChartPoint, 0, len(p.Rows))
		for _, r := range p.Rows {
			points = append(points, ChartPoint{
				Label: rowLabel(r),
				Value: float64(r.Values[m]),
			})
		}
		config.Series = append(config.Series, ChartSeries{
			Name:  string(m),
			Data:  points,
			Color: defaultColors[i%len(defaultColors)],
		})
	}

	config.Colors = assignColors(len(config.Series))
	return config
}

func rowLabel(r PivotRow) string {
	if len(r.Group) == 0 {
		return "Total"
	}
	return strings.Join(r.Group, " / ")
}

func assignColors(count int) []string {
	colors := make([]string, count)
	for i := 0; i < count; i++ {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
