package translator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// ============================================================================
// PROMPT BUILDER — Schema-driven prompt for the LLM translator
// ============================================================================
// The model sees the canonical column names, their source labels and a few
// sample values per dimension. Never fact rows. It answers with one JSON
// object that parseResponse turns into a ParsedQuery.
// ============================================================================

// BuildPrompt generates the system prompt for the LLM translator. A nil
// schema describes the full catalogue without sample values.
func BuildPrompt(sch *schema.Config, years []int) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a query translator for a sales analytics engine.

CURRENT DATE: %s

YOUR ROLE:
Translate the user's business question into a structured query that the engine will execute.
You are a TRANSLATOR ONLY. Do NOT compute any values.

`, time.Now().Format("2006-01-02"))

	b.WriteString("DATA MODEL:\n")
	b.WriteString(buildDimensionDescription(sch))
	b.WriteString(buildMetricDescription(sch))
	b.WriteString("\n")

	if len(years) > 0 {
		labels := make([]string, len(years))
		for i, y := range years {
			labels[i] = strconv.Itoa(y)
		}
		fmt.Fprintf(&b, "YEARS IN THE DATA: %s\n\n", strings.Join(labels, ", "))
	}

	b.WriteString(responseFormat)
	b.WriteString(queryRules)
	b.WriteString(exampleTranslations)
	b.WriteString("\nRemember: output the JSON object only.\n")

	return b.String()
}

// ============================================================================
// SECTION BUILDERS
// ============================================================================

func buildDimensionDescription(sch *schema.Config) string {
	var b strings.Builder
	b.WriteString("DIMENSIONS (for grouping and filtering):\n")

	if sch == nil {
		for _, d := range engine.AllDimensions {
			fmt.Fprintf(&b, "- \"%s\"\n", d)
		}
		return b.String()
	}
	for _, d := range sch.Dimensions {
		fmt.Fprintf(&b, "- \"%s\"", d.Key)
		if len(d.SampleValues) > 0 {
			fmt.Fprintf(&b, ": values [%s]", strings.Join(quotedValues(d.SampleValues), ", "))
		}
		if d.IsTemporal {
			b.WriteString(" [TEMPORAL]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildMetricDescription(sch *schema.Config) string {
	var b strings.Builder
	b.WriteString("\nMETRICS (summed, values in Euros except Units):\n")

	metrics := engine.AllMetrics
	if sch != nil {
		metrics = sch.MeasureKeys()
	}
	for _, m := range metrics {
		fmt.Fprintf(&b, "- \"%s\" (also called %q)", m, m.Label())
		if m.IsCostDriver() {
			b.WriteString(" [COST DRIVER]")
		}
		b.WriteString("\n")
	}
	b.WriteString("GrossProfit = Revenue - PriceDowns - PermanentDiscount - GroupCost - LTA\n")
	return b.String()
}

const responseFormat = `RESPONSE FORMAT (ALWAYS valid JSON, no markdown):
{
  "metrics": ["Revenue"],
  "groupBy": ["Business"],
  "filters": {"Brand": "Crispo"},
  "year": 2024,
  "month": "Jan",
  "trend": false,
  "lowest": false,
  "costDrivers": false
}

`

const queryRules = `RULES:
1. "metrics": metric names from METRICS. Use [] when the question names no metric.
2. "groupBy": dimensions the user wants results broken down by ("by brand", "which customer").
3. "filters": dimension → one concrete value the question restricts to. Do not put Year or Month here.
4. "year": a single year restriction, 0 when none. Leave 0 for trend questions.
5. "month": three-letter month label, "" when none.
6. "trend": true for trends, comparisons across years, "last 3 years".
7. "lowest": true for worst, lowest, least, losers.
8. "costDrivers": true when the question asks about cost drivers; include all four cost driver metrics.

`

const exampleTranslations = `EXAMPLE QUERY TRANSLATIONS:
- "top brands by gsales in 2024" → {"metrics":["Revenue"],"groupBy":["Brand"],"year":2024}
- "cost drivers by business" → {"metrics":["PriceDowns","PermanentDiscount","GroupCost","LTA"],"groupBy":["Business"],"costDrivers":true}
- "profit trend for Crispo" → {"metrics":["GrossProfit"],"filters":{"Brand":"Crispo"},"trend":true}
- "worst customers in March" → {"metrics":[],"groupBy":["Customer"],"month":"Mar","lowest":true}
`

// ============================================================================
// HELPERS
// ============================================================================

func quotedValues(vals []string) []string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = fmt.Sprintf("\"%s\"", v)
	}
	return quoted
}
