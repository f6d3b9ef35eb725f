package engine

import (
	"fmt"
	"strings"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a PivotResult
// ============================================================================
// Metric and cost columns get thousands separators, derived percentages one
// decimal. Used by the context assembler and the HTTP layer alike.
// ============================================================================

// BuildPivotTable renders a pivot into display-ready TableData.
func BuildPivotTable(p PivotResult, title string) *TableData {
	columns := pivotColumns(p)
	rows := make([][]string, 0, len(p.Rows))
	for _, r := range p.Rows {
		rows = append(rows, pivotCells(p, r))
	}
	return &TableData{
		Title:   title,
		Columns: columns,
		Rows:    rows,
	}
}

func pivotColumns(p PivotResult) []Column {
	labels := p.Columns()
	columns := make([]Column, 0, len(labels))
	for i, label := range labels {
		col := Column{Key: label, Label: label, Type: "number", Align: "right"}
		switch {
		case i < len(p.GroupBy):
			col.Type, col.Align = "text", "left"
		case strings.HasSuffix(label, "%") || strings.HasSuffix(label, "Pct") || label == "PercentOfTotal":
			col.Type = "percent"
		}
		columns = append(columns, col)
	}
	return columns
}

func pivotCells(p PivotResult, r PivotRow) []string {
	cells := make([]string, 0, len(p.GroupBy)+2*len(p.Metrics)+3)
	for i := range p.GroupBy {
		if i < len(r.Group) {
			cells = append(cells, r.Group[i])
		} else {
			cells = append(cells, "")
		}
	}
	for _, m := range p.Metrics {
		cells = append(cells, FormatInt(r.Values[m]))
	}
	if p.HasGrowth {
		for _, m := range p.Metrics {
			cells = append(cells, fmt.Sprintf("%.1f", r.Growth[m]))
		}
	}
	if p.HasTotalCost {
		cells = append(cells, FormatInt(WholeUnits(r.TotalCost)))
	}
	if p.HasProfitMargin {
		cells = append(cells, fmt.Sprintf("%.1f", r.ProfitMarginPct))
	}
	if p.HasPercentOfTotal {
		cells = append(cells, fmt.Sprintf("%.1f", r.PercentOfTotal))
	}
	return cells
}
