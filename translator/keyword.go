package translator

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// KEYWORD TRANSLATOR — Substring keyword tables
// ============================================================================
// Every rule is a case-insensitive substring test against the question.
// Month names are the exception: full names and three-letter abbreviations
// must stand as a word, so "market" does not mean March and "maybe" does not
// mean May.
// ============================================================================

type metricKeyword struct {
	metric engine.Metric
	words  []string
}

// metricKeywords are tested in catalogue order.
var metricKeywords = []metricKeyword{
	{engine.Revenue, []string{"gsales", "money", "sales"}},
	{engine.GrossProfit, []string{"fgp", "profit"}},
	{engine.Units, []string{"cases", "inventory"}},
	{engine.PriceDowns, []string{"price downs"}},
	{engine.PermanentDiscount, []string{"perm disc", "permanent discount"}},
	{engine.GroupCost, []string{"group cost"}},
	{engine.LTA, []string{"lta"}},
}

// dimensionKeywords map a word to the dimension it groups by.
var dimensionKeywords = []struct {
	word string
	dim  engine.Dimension
}{
	{"business", engine.Business},
	{"channel", engine.Channel},
	{"customer", engine.Customer},
	{"brand", engine.Brand},
	{"category", engine.Category},
}

const costDriversPhrase = "cost drivers"

var (
	trendWords  = []string{"trend", "compare", "last 3 years"}
	lowestWords = []string{"loser", "worst", "lowest", "least"}
)

// Keyword is the default interpreter. Identical text always yields an
// identical ParsedQuery.
type Keyword struct {
	years []int
}

// KeywordOption configures a Keyword translator.
type KeywordOption func(*Keyword)

// WithYears replaces the recognized year literals. When several appear in a
// question the one listed last wins.
func WithYears(years ...int) KeywordOption {
	return func(k *Keyword) {
		k.years = append([]int(nil), years...)
	}
}

// NewKeyword creates a keyword translator.
func NewKeyword(opts ...KeywordOption) *Keyword {
	k := &Keyword{
		years: append([]int(nil), DefaultYears...),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Interpret implements Translator. It never fails.
func (k *Keyword) Interpret(_ context.Context, text string) (engine.ParsedQuery, error) {
	return k.Parse(text), nil
}

// Parse reads the question with the keyword tables.
func (k *Keyword) Parse(text string) engine.ParsedQuery {
	// a Caser is stateful, one per call
	t := cases.Fold().String(text)

	q := engine.ParsedQuery{
		IsTrend:         containsAny(t, trendWords),
		IsLowestRanking: containsAny(t, lowestWords),
		IsCostDrivers:   strings.Contains(t, costDriversPhrase),
	}

	for _, mk := range metricKeywords {
		if containsAny(t, mk.words) || (q.IsCostDrivers && mk.metric.IsCostDriver()) {
			q.Metrics = append(q.Metrics, mk.metric)
		}
	}
	if len(q.Metrics) == 0 {
		q.Metrics = append([]engine.Metric(nil), engine.DefaultMetrics...)
		q.MetricsDefaulted = true
	}

	for _, dk := range dimensionKeywords {
		if strings.Contains(t, dk.word) {
			q.DimensionFilters = append(q.DimensionFilters, engine.DimensionFilter{Dimension: dk.dim})
		}
	}

	if !q.IsTrend {
		for _, y := range k.years {
			if strings.Contains(t, strconv.Itoa(y)) {
				q.Year = y
			}
		}
	}

	q.Month = detectMonth(t)
	return q
}

// detectMonth matches full month names and three-letter abbreviations as
// whole words. The last hit in calendar order wins.
func detectMonth(t string) string {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(t, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		words[w] = true
	}

	month := ""
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if words[full[:3]] || words[full] {
			month = engine.CanonicalMonth(full)
		}
	}
	return month
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
