package engine

import (
	"strconv"
)

// ============================================================================
// PULSE ENGINE TYPES — Sales Fact Analytics
// ============================================================================
// FactRow      — canonical sales row handed over by the fact store
// ParsedQuery  — contract between the query interpreter and the engine
// PivotResult  — grouped, derived-metric table handed to the context assembler
//
// The engine performs no I/O. Everything here is a plain value.
// ============================================================================

// ============================================================================
// METRICS & DIMENSIONS
// ============================================================================

// Metric names a numeric column of the fact table.
type Metric string

const (
	Revenue           Metric = "Revenue"
	GrossProfit       Metric = "GrossProfit"
	Units             Metric = "Units"
	PriceDowns        Metric = "PriceDowns"
	PermanentDiscount Metric = "PermanentDiscount"
	GroupCost         Metric = "GroupCost"
	LTA               Metric = "LTA"
)

// AllMetrics is the metric catalogue in detection order.
var AllMetrics = []Metric{Revenue, GrossProfit, Units, PriceDowns, PermanentDiscount, GroupCost, LTA}

// DefaultMetrics is reported when a question names no metric at all.
var DefaultMetrics = []Metric{Units, Revenue, PriceDowns, PermanentDiscount, GroupCost, LTA, GrossProfit}

// FallbackMetrics are used when a source has none of the requested metrics.
var FallbackMetrics = []Metric{Revenue, GrossProfit, Units}

// CostDrivers are the four components subtracted from revenue to reach gross profit.
var CostDrivers = []Metric{PriceDowns, PermanentDiscount, GroupCost, LTA}

// metricLabels maps canonical metrics to the labels used in the source workbooks.
var metricLabels = map[Metric]string{
	Revenue:           "gSales",
	GrossProfit:       "fGP",
	Units:             "Cases",
	PriceDowns:        "Price Downs",
	PermanentDiscount: "Perm. Disc.",
	GroupCost:         "Group Cost",
	LTA:               "LTA",
}

// Label returns the source label of the metric (e.g. "gSales" for Revenue).
func (m Metric) Label() string {
	if l, ok := metricLabels[m]; ok {
		return l
	}
	return string(m)
}

// IsCostDriver reports whether m is one of the four cost components.
func (m Metric) IsCostDriver() bool {
	for _, c := range CostDrivers {
		if c == m {
			return true
		}
	}
	return false
}

// Dimension names a categorical column of the fact table.
type Dimension string

const (
	Year        Dimension = "Year"
	Month       Dimension = "Month"
	Business    Dimension = "Business"
	Channel     Dimension = "Channel"
	Customer    Dimension = "Customer"
	Brand       Dimension = "Brand"
	Category    Dimension = "Category"
	SubCategory Dimension = "SubCategory"
)

// AllDimensions lists every dimension the fact table can carry.
var AllDimensions = []Dimension{Year, Month, Business, Channel, Customer, Brand, Category, SubCategory}

// GroupingDimensions are the dimensions a question can break results down by,
// in the order they appear as pivot keys.
var GroupingDimensions = []Dimension{Business, Channel, Customer, Brand, Category}

// ============================================================================
// CAPABILITIES — typed set of columns present in a snapshot
// ============================================================================

// Capabilities records which dimensions and metrics a data source provides.
// Computed once when a snapshot is loaded and carried by every RecordView.
type Capabilities struct {
	Dimensions map[Dimension]bool `json:"dimensions"`
	Metrics    map[Metric]bool    `json:"metrics"`
}

// FullCapabilities returns a capability set with every known column.
func FullCapabilities() Capabilities {
	c := Capabilities{
		Dimensions: make(map[Dimension]bool, len(AllDimensions)),
		Metrics:    make(map[Metric]bool, len(AllMetrics)),
	}
	for _, d := range AllDimensions {
		c.Dimensions[d] = true
	}
	for _, m := range AllMetrics {
		c.Metrics[m] = true
	}
	return c
}

func (c Capabilities) HasDimension(d Dimension) bool { return c.Dimensions[d] }
func (c Capabilities) HasMetric(m Metric) bool       { return c.Metrics[m] }

// ============================================================================
// FACT ROW
// ============================================================================

// FactRow is one aggregated sales observation.
type FactRow struct {
	Year        int    `json:"year"`
	Month       string `json:"month"`
	Business    string `json:"business,omitempty"`
	Channel     string `json:"channel,omitempty"`
	Customer    string `json:"customer,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Category    string `json:"category,omitempty"`
	SubCategory string `json:"subCategory,omitempty"`

	Revenue           float64 `json:"revenue"`
	GrossProfit       float64 `json:"grossProfit"`
	Units             float64 `json:"units"`
	PriceDowns        float64 `json:"priceDowns"`
	PermanentDiscount float64 `json:"permanentDiscount"`
	GroupCost         float64 `json:"groupCost"`
	LTA               float64 `json:"lta"`
}

// yearLabel renders the year as a dimension value. Zero means unknown.
func (r FactRow) yearLabel() string {
	if r.Year == 0 {
		return ""
	}
	return strconv.Itoa(r.Year)
}

// ============================================================================
// PARSED QUERY — Contract between interpreter and engine
// ============================================================================

// DimensionFilter references a dimension from the question.
// An empty Value means "break results down by this dimension".
type DimensionFilter struct {
	Dimension Dimension `json:"dimension"`
	Value     string    `json:"value,omitempty"`
}

// IsGrouping reports whether the filter only groups.
func (f DimensionFilter) IsGrouping() bool { return f.Value == "" }

// ParsedQuery is the structured form of a free-text question.
type ParsedQuery struct {
	Metrics          []Metric          `json:"metrics"`
	MetricsDefaulted bool              `json:"metricsDefaulted"`
	DimensionFilters []DimensionFilter `json:"dimensionFilters"`
	Year             int               `json:"year,omitempty"`  // 0 = no year restriction
	Month            string            `json:"month,omitempty"` // canonical label, "" = none
	IsTrend          bool              `json:"isTrend"`
	IsLowestRanking  bool              `json:"isLowestRanking"`
	IsCostDrivers    bool              `json:"isCostDrivers"`
}

// GroupKeys returns every referenced dimension, grouping or concrete, in order.
func (q ParsedQuery) GroupKeys() []Dimension {
	keys := make([]Dimension, 0, len(q.DimensionFilters))
	for _, f := range q.DimensionFilters {
		keys = append(keys, f.Dimension)
	}
	return keys
}

// GroupBy returns only the dimensions referenced without a concrete value.
func (q ParsedQuery) GroupBy() []Dimension {
	var dims []Dimension
	for _, f := range q.DimensionFilters {
		if f.IsGrouping() {
			dims = append(dims, f.Dimension)
		}
	}
	return dims
}

// Filters converts the concrete restrictions of the query (year, month and
// valued dimensions) into engine Filters.
func (q ParsedQuery) Filters() Filters {
	f := Filters{Dimensions: make(map[Dimension][]string)}
	if q.Year != 0 {
		f.Dimensions[Year] = []string{strconv.Itoa(q.Year)}
	}
	if q.Month != "" {
		f.Dimensions[Month] = []string{q.Month}
	}
	for _, df := range q.DimensionFilters {
		if !df.IsGrouping() {
			f.Dimensions[df.Dimension] = []string{df.Value}
		}
	}
	return f
}

// HasMetric reports whether the query requests m.
func (q ParsedQuery) HasMetric(m Metric) bool {
	for _, qm := range q.Metrics {
		if qm == m {
			return true
		}
	}
	return false
}

// Presets are filters chosen outside the question (dashboard selections).
type Presets struct {
	Year     int    `json:"year,omitempty"`
	Month    string `json:"month,omitempty"`
	Business string `json:"business,omitempty"`
}

// IsEmpty returns true if no preset is set.
func (p Presets) IsEmpty() bool {
	return p.Year == 0 && p.Month == "" && p.Business == ""
}

// WithPresets returns a copy of q with the presets merged in. A preset value
// replaces the grouping entry of the same dimension.
func (q ParsedQuery) WithPresets(p Presets) ParsedQuery {
	out := q
	out.Metrics = append([]Metric(nil), q.Metrics...)
	out.DimensionFilters = append([]DimensionFilter(nil), q.DimensionFilters...)
	if p.Year != 0 {
		out.Year = p.Year
	}
	if p.Month != "" {
		out.Month = CanonicalMonth(p.Month)
	}
	if p.Business != "" {
		replaced := false
		for i := range out.DimensionFilters {
			if out.DimensionFilters[i].Dimension == Business {
				out.DimensionFilters[i].Value = p.Business
				replaced = true
			}
		}
		if !replaced {
			out.DimensionFilters = append(out.DimensionFilters, DimensionFilter{Dimension: Business, Value: p.Business})
		}
	}
	return out
}

// Filters define which rows to include.
// OR within a dimension, AND across dimensions. Empty = all.
type Filters struct {
	Dimensions map[Dimension][]string `json:"dimensions"`
}

// HasFilter returns true if a specific dimension filter is set.
func (f Filters) HasFilter(d Dimension) bool {
	if f.Dimensions == nil {
		return false
	}
	vals, ok := f.Dimensions[d]
	return ok && len(vals) > 0
}

// IsEmpty returns true if no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Dimensions {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// ============================================================================
// PIVOT RESULT
// ============================================================================

// PivotRow is one group of a PivotResult.
type PivotRow struct {
	Group           []string           `json:"group"` // aligned with PivotResult.GroupBy
	Values          map[Metric]int64   `json:"values"`
	Growth          map[Metric]float64 `json:"growth,omitempty"`
	TotalCost       float64            `json:"totalCost,omitempty"`
	ProfitMarginPct float64            `json:"profitMarginPct,omitempty"`
	PercentOfTotal  float64            `json:"percentOfTotal,omitempty"`
	Count           int                `json:"count"`

	sums map[Metric]float64 // unrounded, used by growth
}

// PivotResult is the grouped, summed, derived-metric table for one question.
// Built fresh per request. Analytics return copies and never mutate it.
type PivotResult struct {
	GroupBy           []Dimension `json:"groupBy"`
	Metrics           []Metric    `json:"metrics"`
	Trend             bool        `json:"trend"`
	HasGrowth         bool        `json:"hasGrowth"`
	HasTotalCost      bool        `json:"hasTotalCost"`
	HasProfitMargin   bool        `json:"hasProfitMargin"`
	HasPercentOfTotal bool        `json:"hasPercentOfTotal"`
	Rows              []PivotRow  `json:"rows"`
}

// HasMetric reports whether m is a column of the result.
func (p PivotResult) HasMetric(m Metric) bool {
	for _, pm := range p.Metrics {
		if pm == m {
			return true
		}
	}
	return false
}

// DimensionIndex returns the position of d in GroupBy, or -1.
func (p PivotResult) DimensionIndex(d Dimension) int {
	for i, g := range p.GroupBy {
		if g == d {
			return i
		}
	}
	return -1
}

// GrowthColumn is the column label for a metric's year-over-year growth.
func GrowthColumn(m Metric) string { return string(m) + " Growth %" }

// Columns returns the ordered column labels of the result.
func (p PivotResult) Columns() []string {
	cols := make([]string, 0, len(p.GroupBy)+2*len(p.Metrics)+3)
	for _, d := range p.GroupBy {
		cols = append(cols, string(d))
	}
	for _, m := range p.Metrics {
		cols = append(cols, string(m))
	}
	if p.HasGrowth {
		for _, m := range p.Metrics {
			cols = append(cols, GrowthColumn(m))
		}
	}
	if p.HasTotalCost {
		cols = append(cols, "TotalCost")
	}
	if p.HasProfitMargin {
		cols = append(cols, "ProfitMarginPct")
	}
	if p.HasPercentOfTotal {
		cols = append(cols, "PercentOfTotal")
	}
	return cols
}

// Records flattens the result into one map per row keyed by column label.
func (p PivotResult) Records() []map[string]any {
	out := make([]map[string]any, 0, len(p.Rows))
	for _, r := range p.Rows {
		rec := make(map[string]any, len(p.GroupBy)+len(p.Metrics)+4)
		for i, d := range p.GroupBy {
			if i < len(r.Group) {
				rec[string(d)] = r.Group[i]
			}
		}
		for _, m := range p.Metrics {
			rec[string(m)] = r.Values[m]
		}
		if p.HasGrowth {
			for _, m := range p.Metrics {
				rec[GrowthColumn(m)] = r.Growth[m]
			}
		}
		if p.HasTotalCost {
			rec["TotalCost"] = r.TotalCost
		}
		if p.HasProfitMargin {
			rec["ProfitMarginPct"] = r.ProfitMarginPct
		}
		if p.HasPercentOfTotal {
			rec["PercentOfTotal"] = r.PercentOfTotal
		}
		out = append(out, rec)
	}
	return out
}

// clone copies rows and their maps so analytics can attach columns.
func (p PivotResult) clone() PivotResult {
	out := p
	out.Rows = make([]PivotRow, len(p.Rows))
	for i, r := range p.Rows {
		c := r
		c.Values = make(map[Metric]int64, len(r.Values))
		for k, v := range r.Values {
			c.Values[k] = v
		}
		if r.Growth != nil {
			c.Growth = make(map[Metric]float64, len(r.Growth))
			for k, v := range r.Growth {
				c.Growth[k] = v
			}
		}
		out.Rows[i] = c
	}
	return out
}

// ============================================================================
// CONVERSATION
// ============================================================================

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message of the caller-supplied chat log.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ============================================================================
// CHART TYPES
// ============================================================================

// ChartConfig defines how to render a chart.
type ChartConfig struct {
	ChartType  string        `json:"chartType"`
	Title      string        `json:"title"`
	XAxis      string        `json:"xAxis,omitempty"`
	YAxis      string        `json:"yAxis,omitempty"`
	Series     []ChartSeries `json:"series"`
	Colors     []string      `json:"colors,omitempty"`
	ShowLegend bool          `json:"showLegend"`
	ShowGrid   bool          `json:"showGrid"`
}

// ChartSeries represents a data series in a chart.
type ChartSeries struct {
	Name  string       `json:"name"`
	Data  []ChartPoint `json:"data"`
	Color string       `json:"color,omitempty"`
}

// ChartPoint represents a single data point.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ============================================================================
// TABLE TYPES
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string     `json:"title"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Column defines a table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "percent"
	Align string `json:"align"` // "left", "right"
}
