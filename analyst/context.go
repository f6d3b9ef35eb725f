package analyst

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// CONTEXT ASSEMBLER — PivotResult → bounded prompt text
// ============================================================================
// Layout:
//
//	Data for '<question>' (values in Euros €):
//	<aligned table>
//
//	Profit formula: GrossProfit = Revenue - PriceDowns - PermanentDiscount - GroupCost - LTA
//
//	Previous conversation context:      (follow-ups only)
//	User: ...
//	Assistant: ...
//
// The table is cut to MaxRows and the whole text to MaxChars.
// ============================================================================

// ProfitFormula reminds the model how the cost columns relate.
const ProfitFormula = "Profit formula: GrossProfit = Revenue - PriceDowns - PermanentDiscount - GroupCost - LTA"

const (
	DefaultMaxRows      = 50
	DefaultMaxChars     = 12000
	DefaultHistoryTurns = 4
)

// ContextAssembler renders the data context handed to the LLM.
type ContextAssembler struct {
	MaxRows      int // table rows kept, <= 0 = unlimited
	MaxChars     int // hard cap on the whole text, <= 0 = unlimited
	HistoryTurns int // turns appended to follow-ups
}

// DefaultContextAssembler returns the standard budget.
func DefaultContextAssembler() ContextAssembler {
	return ContextAssembler{
		MaxRows:      DefaultMaxRows,
		MaxChars:     DefaultMaxChars,
		HistoryTurns: DefaultHistoryTurns,
	}
}

// Assemble builds the context text for one question.
func (a ContextAssembler) Assemble(text string, p engine.PivotResult, turns []engine.ConversationTurn, followUp bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Data for '%s' (values in Euros €):\n", text)
	b.WriteString(a.renderTable(p))
	b.WriteString("\n\n")
	b.WriteString(ProfitFormula)

	if followUp && len(turns) > 0 {
		b.WriteString("\n\nPrevious conversation context:\n")
		b.WriteString(formatTurns(lastTurns(turns, a.HistoryTurns)))
	}

	return truncateText(b.String(), a.MaxChars)
}

func (a ContextAssembler) renderTable(p engine.PivotResult) string {
	if len(p.Rows) == 0 {
		return "(no matching rows)"
	}

	table := engine.BuildPivotTable(p, "")
	rows := table.Rows
	total := len(rows)
	if a.MaxRows > 0 && total > a.MaxRows {
		rows = rows[:a.MaxRows]
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	labels := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		labels[i] = c.Label
	}
	fmt.Fprintln(w, strings.Join(labels, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()

	out := strings.TrimRight(b.String(), "\n")
	if len(rows) < total {
		out += fmt.Sprintf("\n(showing %d of %d rows)", len(rows), total)
	}
	return out
}

func lastTurns(turns []engine.ConversationTurn, n int) []engine.ConversationTurn {
	if n > 0 && len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

func formatTurns(turns []engine.ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		prefix := "User: "
		if t.Role == engine.RoleAssistant {
			prefix = "Assistant: "
		}
		lines = append(lines, prefix+t.Content)
	}
	return strings.Join(lines, "\n")
}

// truncateText cuts s to at most max bytes on a rune boundary.
func truncateText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
