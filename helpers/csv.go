package helpers

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// ============================================================================
// CSV HELPER — Parses CSV data into []engine.FactRow
// ============================================================================
// The store reads bytes from wherever they live (file, S3). This helper turns
// them into canonical FactRows using the discovered schema. Numeric cells
// tolerate thousands separators, currency symbols and junk (→ 0).
// ============================================================================

// ParseCSV parses CSV bytes into FactRows using sch to locate columns.
func ParseCSV(data []byte, sch schema.Config) ([]engine.FactRow, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	return RowsToFacts(rows, sch), nil
}

// ParseCSVAuto discovers the schema from the CSV header, then parses.
func ParseCSVAuto(data []byte) ([]engine.FactRow, *schema.Config, error) {
	sch, err := schema.DiscoverFromCSV(data)
	if err != nil {
		return nil, nil, err
	}
	facts, err := ParseCSV(data, *sch)
	if err != nil {
		return nil, nil, err
	}
	return facts, sch, nil
}

// ParseCSVView parses CSV without a schema and returns a RecordView.
func ParseCSVView(data []byte) (engine.RecordView, *schema.Config, error) {
	facts, sch, err := ParseCSVAuto(data)
	if err != nil {
		return nil, nil, err
	}
	return engine.NewFactView(facts, sch.Capabilities()), sch, nil
}

// RowsToFacts converts string rows laid out as described by sch.
// Shared by the CSV, Excel and SQL loaders.
func RowsToFacts(rows [][]string, sch schema.Config) []engine.FactRow {
	facts := make([]engine.FactRow, 0, len(rows))
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		var f engine.FactRow
		for _, d := range sch.Dimensions {
			setDimension(&f, d.Key, cell(row, d.ColumnIndex))
		}
		for _, m := range sch.Measures {
			setMetric(&f, m.Key, ParseNumber(cell(row, m.ColumnIndex)))
		}
		facts = append(facts, f)
	}
	return facts
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func setDimension(f *engine.FactRow, d engine.Dimension, val string) {
	switch d {
	case engine.Year:
		f.Year = int(ParseNumber(val))
	case engine.Month:
		f.Month = engine.CanonicalMonth(val)
	case engine.Business:
		f.Business = val
	case engine.Channel:
		f.Channel = val
	case engine.Customer:
		f.Customer = val
	case engine.Brand:
		f.Brand = val
	case engine.Category:
		f.Category = val
	case engine.SubCategory:
		f.SubCategory = val
	}
}

func setMetric(f *engine.FactRow, m engine.Metric, v float64) {
	switch m {
	case engine.Revenue:
		f.Revenue = v
	case engine.GrossProfit:
		f.GrossProfit = v
	case engine.Units:
		f.Units = v
	case engine.PriceDowns:
		f.PriceDowns = v
	case engine.PermanentDiscount:
		f.PermanentDiscount = v
	case engine.GroupCost:
		f.GroupCost = v
	case engine.LTA:
		f.LTA = v
	}
}

// ParseNumber reads a numeric cell leniently: "1,234.50", "€ 99", "(12)"
// and " 7 " all parse; anything else, NaN and infinities become 0.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", "€", "", "$", "", "£", "", " ", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}
