package schema

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// DISCOVERY — Header normalization onto the canonical sales columns
// ============================================================================
// Source workbooks name the same column many ways ("gSales", "Revenue",
// "Month_Name", "Month Name", "Sub_Cat"...). Discovery folds each header to
// a lookup key (lower case, letters and digits only) and resolves it through
// the alias table. Unknown and duplicate columns are recorded as skipped.
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize int    // Rows inspected for sample values. Default: 200
	MaxSamples int    // Sample values kept per dimension. Default: 8
	Name       string // Dataset name override
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize: 200,
		MaxSamples: 8,
	}
}

var dimensionAliases = map[string]engine.Dimension{
	"year":         engine.Year,
	"month":        engine.Month,
	"monthname":    engine.Month,
	"business":     engine.Business,
	"businessunit": engine.Business,
	"channel":      engine.Channel,
	"customer":     engine.Customer,
	"customername": engine.Customer,
	"brand":        engine.Brand,
	"category":     engine.Category,
	"subcategory":  engine.SubCategory,
	"subcat":       engine.SubCategory,
}

var metricAliases = map[string]engine.Metric{
	"revenue":           engine.Revenue,
	"gsales":            engine.Revenue,
	"grosssales":        engine.Revenue,
	"grossprofit":       engine.GrossProfit,
	"fgp":               engine.GrossProfit,
	"units":             engine.Units,
	"cases":             engine.Units,
	"pricedowns":        engine.PriceDowns,
	"pricedown":         engine.PriceDowns,
	"permanentdiscount": engine.PermanentDiscount,
	"permdisc":          engine.PermanentDiscount,
	"permdiscount":      engine.PermanentDiscount,
	"groupcost":         engine.GroupCost,
	"lta":               engine.LTA,
}

// foldHeader reduces a header to its alias lookup key.
func foldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveDimension maps a source header to a canonical dimension.
func ResolveDimension(header string) (engine.Dimension, bool) {
	d, ok := dimensionAliases[foldHeader(header)]
	return d, ok
}

// ResolveMetric maps a source header to a canonical metric.
func ResolveMetric(header string) (engine.Metric, bool) {
	m, ok := metricAliases[foldHeader(header)]
	return m, ok
}

// Discover builds a Config from headers and an optional sample of rows.
// Returns an error when no canonical column is recognized at all.
func Discover(headers []string, rows [][]string, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("source has no columns")
	}

	config := &Config{
		Name:         opt.Name,
		DiscoveredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if config.Name == "" {
		config.Name = "Sales Facts"
	}

	seenDims := make(map[engine.Dimension]string)
	seenMetrics := make(map[engine.Metric]string)

	for i, h := range headers {
		if d, ok := ResolveDimension(h); ok {
			if prev, dup := seenDims[d]; dup {
				config.SkippedColumns = append(config.SkippedColumns, SkippedColumn{
					Column: h,
					Reason: fmt.Sprintf("duplicate of %q", prev),
				})
				continue
			}
			seenDims[d] = h
			config.Dimensions = append(config.Dimensions, DimensionMeta{
				Key:          d,
				DisplayName:  toDisplayName(string(d)),
				SourceColumn: h,
				ColumnIndex:  i,
				SampleValues: collectSamples(rows, i, opt.SampleSize, opt.MaxSamples),
				IsTemporal:   d == engine.Year || d == engine.Month,
			})
			continue
		}
		if m, ok := ResolveMetric(h); ok {
			if prev, dup := seenMetrics[m]; dup {
				config.SkippedColumns = append(config.SkippedColumns, SkippedColumn{
					Column: h,
					Reason: fmt.Sprintf("duplicate of %q", prev),
				})
				continue
			}
			seenMetrics[m] = h
			unit := "currency"
			if m == engine.Units {
				unit = "units"
			}
			config.Measures = append(config.Measures, MeasureMeta{
				Key:          m,
				DisplayName:  fmt.Sprintf("%s (%s)", toDisplayName(string(m)), m.Label()),
				SourceColumn: h,
				ColumnIndex:  i,
				Unit:         unit,
				IsCostDriver: m.IsCostDriver(),
			})
			continue
		}
		config.SkippedColumns = append(config.SkippedColumns, SkippedColumn{
			Column: h,
			Reason: "not a sales fact column",
		})
	}

	if len(config.Dimensions) == 0 && len(config.Measures) == 0 {
		return nil, fmt.Errorf("no sales fact columns recognized in %d headers", len(headers))
	}
	return config, nil
}

// DiscoverFromCSV reads the header and a sample of rows from CSV data.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	var rows [][]string
	for len(rows) < opt.SampleSize {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	config, err := Discover(headers, rows, opt)
	if err != nil {
		return nil, err
	}
	config.DiscoveredFrom = "csv"
	return config, nil
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toDisplayName splits a CamelCase key for human display.
// "SubCategory" → "Sub Category", "GrossProfit" → "Gross Profit", "LTA" → "LTA"
func toDisplayName(s string) string {
	var words []string
	var cur []rune
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			words = append(words, string(cur))
			cur = nil
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}

	title := cases.Title(language.English, cases.NoLower)
	for i, w := range words {
		words[i] = title.String(w)
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples distinct values of column idx.
func collectSamples(rows [][]string, idx, sampleSize, maxSamples int) []string {
	unique := make(map[string]bool)
	for i, row := range rows {
		if sampleSize > 0 && i >= sampleSize {
			break
		}
		if idx < len(row) {
			if v := strings.TrimSpace(row[idx]); v != "" {
				unique[v] = true
			}
		}
	}

	samples := make([]string, 0, len(unique))
	for v := range unique {
		samples = append(samples, v)
	}

	// Sort for deterministic output
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
