package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ============================================================================
// AGGREGATORS — Grouping, Summation, and Key Ordering via RecordView
// ============================================================================
// All functions operate on RecordView: zero-copy access to any data source.
// Grouping produces SubViews (index lists into parent view).
// ============================================================================

// Group is one distinct combination of dimension values.
type Group struct {
	Key   string     `json:"key"`
	Keys  []string   `json:"keys"`
	Label string     `json:"label"`
	Count int        `json:"count"`
	View  RecordView `json:"-"` // Sub-view for rows in this group (zero-copy)
}

// keySep never occurs in dimension values read from CSV or Excel.
const keySep = "\x1f"

// GroupRows splits a view by the given dimensions in first-seen order.
// Rows with an empty value for any grouping dimension are left out, matching
// how the dashboard's pivot tables drop missing keys.
func GroupRows(view RecordView, dims []Dimension) []Group {
	if len(dims) == 0 {
		return []Group{{
			Key:   "all",
			Label: "Total",
			Count: view.Len(),
			View:  view,
		}}
	}

	index := make(map[string]int)
	var groups []Group
	var members [][]int

	for i := 0; i < view.Len(); i++ {
		keys := make([]string, len(dims))
		missing := false
		for j, d := range dims {
			keys[j] = strings.TrimSpace(view.Dimension(i, d))
			if keys[j] == "" {
				missing = true
				break
			}
		}
		if missing {
			continue
		}
		key := strings.Join(keys, keySep)
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{
				Key:   key,
				Keys:  keys,
				Label: strings.Join(keys, " / "),
			})
			members = append(members, nil)
		}
		members[gi] = append(members[gi], i)
	}

	for gi := range groups {
		groups[gi].Count = len(members[gi])
		groups[gi].View = newSubView(view, members[gi])
	}
	return groups
}

// SumMetric sums a metric across a view. NaN and infinities count as 0.
func SumMetric(view RecordView, m Metric) float64 {
	var total float64
	for i := 0; i < view.Len(); i++ {
		v := view.Metric(i, m)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		total += v
	}
	return total
}

// compareKeys orders two group key tuples: years and months numerically,
// everything else lexically.
func compareKeys(dims []Dimension, a, b []string) int {
	for i, d := range dims {
		if i >= len(a) || i >= len(b) {
			break
		}
		if a[i] == b[i] {
			continue
		}
		switch d {
		case Year:
			ya, errA := strconv.Atoi(a[i])
			yb, errB := strconv.Atoi(b[i])
			if errA == nil && errB == nil {
				if ya < yb {
					return -1
				}
				return 1
			}
		case Month:
			ma, mb := MonthOrder(a[i]), MonthOrder(b[i])
			if ma != mb {
				if ma < mb {
					return -1
				}
				return 1
			}
		}
		if a[i] < b[i] {
			return -1
		}
		return 1
	}
	return 0
}

// sortGroupsByKey orders groups ascending by their key tuple.
func sortGroupsByKey(groups []Group, dims []Dimension) {
	sort.SliceStable(groups, func(i, j int) bool {
		return compareKeys(dims, groups[i].Keys, groups[j].Keys) < 0
	})
}

// UniqueValues returns distinct non-empty values for a dimension across a view.
func UniqueValues(view RecordView, d Dimension) []string {
	seen := make(map[string]bool)
	var result []string
	for i := 0; i < view.Len(); i++ {
		val := strings.TrimSpace(view.Dimension(i, d))
		if val != "" && !seen[val] {
			seen[val] = true
			result = append(result, val)
		}
	}
	return result
}

// SortedValues returns UniqueValues in key order (years and months
// chronologically, everything else alphabetically).
func SortedValues(view RecordView, d Dimension) []string {
	vals := UniqueValues(view, d)
	dims := []Dimension{d}
	sort.SliceStable(vals, func(i, j int) bool {
		return compareKeys(dims, []string{vals[i]}, []string{vals[j]}) < 0
	})
	return vals
}

// ============================================================================
// MONTHS
// ============================================================================

// monthLookup maps lower-cased full and abbreviated month names to their
// canonical label ("january", "jan", "sept" → "Jan" / "Sep").
var monthLookup = buildMonthLookup()

func buildMonthLookup() map[string]string {
	title := cases.Title(language.English)
	lookup := make(map[string]string, 40)
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		label := title.String(full[:3])
		lookup[full] = label
		lookup[full[:3]] = label
	}
	lookup["sept"] = "Sep"
	return lookup
}

// CanonicalMonth converts a month name in any case, full or abbreviated,
// to its three-letter label. Unknown values are returned trimmed.
func CanonicalMonth(s string) string {
	s = strings.TrimSpace(s)
	if label, ok := monthLookup[strings.ToLower(s)]; ok {
		return label
	}
	return s
}

// MonthOrder returns 1..12 for a recognizable month name, 13 otherwise.
func MonthOrder(s string) int {
	label := CanonicalMonth(s)
	for m := time.January; m <= time.December; m++ {
		if m.String()[:3] == label {
			return int(m)
		}
	}
	return 13
}

// ============================================================================
// FORMATTING & ROUNDING UTILITIES
// ============================================================================

// WholeUnits rounds a sum to whole currency units (half to even).
func WholeUnits(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).RoundBank(0).IntPart()
}

// RoundTo rounds to the given number of decimal places (half to even).
func RoundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).RoundBank(places).InexactFloat64()
}

// RoundTo2 rounds to 2 decimal places.
func RoundTo2(v float64) float64 {
	return RoundTo(v, 2)
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	return humanize.Comma(n)
}

// FormatEuro renders an amount compactly: €1.2M, €3.4k, €950.
func FormatEuro(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("€%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("€%.1fk", v/1_000)
	default:
		return "€" + humanize.Comma(int64(v))
	}
}

// FormatPct renders a percentage with one decimal.
func FormatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
