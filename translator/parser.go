package translator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// ============================================================================
// RESPONSE PARSER — Model JSON → validated ParsedQuery
// ============================================================================
// Models wrap JSON in markdown, drop quotes and leave trailing commas, so the
// body is repaired before decoding. Every metric and dimension name is then
// resolved through the schema alias tables; anything unknown rejects the
// whole answer with ErrInvalidQuery.
// ============================================================================

// llmQuery is the JSON shape the prompt asks for.
type llmQuery struct {
	Metrics     []string          `json:"metrics"`
	GroupBy     []string          `json:"groupBy"`
	Filters     map[string]string `json:"filters"`
	Year        flexInt           `json:"year"`
	Month       string            `json:"month"`
	Trend       bool              `json:"trend"`
	Lowest      bool              `json:"lowest"`
	CostDrivers bool              `json:"costDrivers"`
}

// flexInt accepts 2024, "2024" and null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a year: %s", s)
	}
	*f = flexInt(n)
	return nil
}

// parseResponse extracts a ParsedQuery from the model's answer.
func parseResponse(response string) (engine.ParsedQuery, error) {
	body := extractJSON(response)
	if body == "" {
		return engine.ParsedQuery{}, fmt.Errorf("%w: no JSON object in response", ErrInvalidQuery)
	}

	repaired, err := jsonrepair.RepairJSON(body)
	if err != nil {
		repaired = body
	}

	var raw llmQuery
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		return engine.ParsedQuery{}, fmt.Errorf("failed to parse translator response: %w (response: %.200s)", err, body)
	}
	return raw.toParsedQuery()
}

// extractJSON strips markdown fences and returns the outermost {...} span.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 {
		return ""
	}
	if end < start {
		return response[start:] // unterminated, left to the repairer
	}
	return response[start : end+1]
}

func (r llmQuery) toParsedQuery() (engine.ParsedQuery, error) {
	q := engine.ParsedQuery{
		IsTrend:         r.Trend,
		IsLowestRanking: r.Lowest,
		IsCostDrivers:   r.CostDrivers,
		Year:            int(r.Year),
	}

	seen := make(map[engine.Metric]bool)
	for _, name := range r.Metrics {
		m, ok := schema.ResolveMetric(name)
		if !ok {
			return engine.ParsedQuery{}, fmt.Errorf("%w: unknown metric %q", ErrInvalidQuery, name)
		}
		if !seen[m] {
			seen[m] = true
			q.Metrics = append(q.Metrics, m)
		}
	}
	if q.IsCostDrivers {
		for _, m := range engine.CostDrivers {
			if !seen[m] {
				seen[m] = true
				q.Metrics = append(q.Metrics, m)
			}
		}
	}
	if len(q.Metrics) == 0 {
		q.Metrics = append([]engine.Metric(nil), engine.DefaultMetrics...)
		q.MetricsDefaulted = true
	}

	grouped := make(map[engine.Dimension]bool)
	for _, name := range r.GroupBy {
		d, ok := schema.ResolveDimension(name)
		if !ok {
			return engine.ParsedQuery{}, fmt.Errorf("%w: unknown dimension %q", ErrInvalidQuery, name)
		}
		grouped[d] = true
	}

	values := make(map[engine.Dimension]string)
	for name, val := range r.Filters {
		d, ok := schema.ResolveDimension(name)
		if !ok {
			return engine.ParsedQuery{}, fmt.Errorf("%w: unknown dimension %q", ErrInvalidQuery, name)
		}
		val = strings.TrimSpace(val)
		if val == "" {
			grouped[d] = true
			continue
		}
		switch d {
		case engine.Year:
			y, err := strconv.Atoi(val)
			if err != nil {
				return engine.ParsedQuery{}, fmt.Errorf("%w: year %q", ErrInvalidQuery, val)
			}
			q.Year = y
		case engine.Month:
			r.Month = val
		default:
			values[d] = val
		}
	}

	// canonical key order, time dimensions never group outside a trend
	for _, d := range engine.AllDimensions {
		if d == engine.Year || d == engine.Month {
			continue
		}
		if v, ok := values[d]; ok {
			q.DimensionFilters = append(q.DimensionFilters, engine.DimensionFilter{Dimension: d, Value: v})
		} else if grouped[d] {
			q.DimensionFilters = append(q.DimensionFilters, engine.DimensionFilter{Dimension: d})
		}
	}

	if m := strings.TrimSpace(r.Month); m != "" {
		if engine.MonthOrder(m) > 12 {
			return engine.ParsedQuery{}, fmt.Errorf("%w: month %q", ErrInvalidQuery, m)
		}
		q.Month = engine.CanonicalMonth(m)
	}

	if q.Year != 0 && (q.Year < 1900 || q.Year > 2200) {
		return engine.ParsedQuery{}, fmt.Errorf("%w: year %d", ErrInvalidQuery, q.Year)
	}
	if q.IsTrend {
		q.Year = 0
	}
	return q, nil
}
