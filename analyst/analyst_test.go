package analyst

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/pulse/assistant"
	"github.com/spektr-org/pulse/engine"
)

// ============================================================================
// ANALYST TESTS
// ============================================================================

func factView(rows ...engine.FactRow) engine.RecordView {
	return engine.NewFactView(rows, engine.FullCapabilities())
}

func costRows() engine.RecordView {
	return factView(
		engine.FactRow{Year: 2024, Month: "Jan", Business: "B", PriceDowns: 10, PermanentDiscount: 10, GroupCost: 10, LTA: 10},
		engine.FactRow{Year: 2024, Month: "Jan", Business: "A", PriceDowns: 100, PermanentDiscount: 50, GroupCost: 25, LTA: 25},
		engine.FactRow{Year: 2023, Month: "Jan", Business: "C", PriceDowns: 999, PermanentDiscount: 999, GroupCost: 999, LTA: 999},
	)
}

func TestAnalyzeCostDriversByBusiness(t *testing.T) {
	a, err := New().Analyze(context.Background(), "cost drivers by business in 2024", costRows(), nil, engine.Presets{})
	require.NoError(t, err)

	p := a.Pivot
	require.Len(t, p.Rows, 2)
	assert.Equal(t, []string{"A"}, p.Rows[0].Group)
	assert.Equal(t, 200.0, p.Rows[0].TotalCost)
	assert.Equal(t, []string{"B"}, p.Rows[1].Group)
	assert.Equal(t, 40.0, p.Rows[1].TotalCost)
	assert.Equal(t, 2, a.FilteredRowCount)
	assert.NotEmpty(t, a.ID)

	assert.Contains(t, a.ContextText, "Data for 'cost drivers by business in 2024' (values in Euros €):")
	assert.Contains(t, a.ContextText, "TotalCost")
	assert.Contains(t, a.ContextText, ProfitFormula)
	assert.True(t, strings.HasPrefix(a.Summary, "Top cost drivers by Business in 2024:"))
	assert.Contains(t, a.Summary, "Business: A, Total: €200")
}

func TestAnalyzeTrendGrowth(t *testing.T) {
	view := factView(
		engine.FactRow{Year: 2023, Month: "Jan", Business: "A", Revenue: 1000},
		engine.FactRow{Year: 2024, Month: "Jan", Business: "A", Revenue: 1500},
		engine.FactRow{Year: 2025, Month: "Jan", Business: "A", Revenue: 1800},
	)
	a, err := New().Analyze(context.Background(), "gsales trend", view, nil, engine.Presets{})
	require.NoError(t, err)

	p := a.Pivot
	require.True(t, p.HasGrowth)
	require.Len(t, p.Rows, 3)
	want := map[string]float64{"2023": 0, "2024": 50.0, "2025": 20.0}
	for _, r := range p.Rows {
		assert.Equal(t, want[r.Group[0]], r.Growth[engine.Revenue], "year %s", r.Group[0])
	}
	assert.Equal(t, "2023", p.Rows[0].Group[0])
	assert.Empty(t, a.Summary)
}

func TestAnalyzeGrowthWithSingleYear(t *testing.T) {
	view := factView(
		engine.FactRow{Year: 2023, Month: "Jan", Business: "A", Revenue: 700},
		engine.FactRow{Year: 2023, Month: "Feb", Business: "A", Revenue: 300},
	)
	a, err := New().Analyze(context.Background(), "gsales trend", view, nil, engine.Presets{})
	require.NoError(t, err)
	require.Len(t, a.Pivot.Rows, 1)
	assert.Equal(t, 0.0, a.Pivot.Rows[0].Growth[engine.Revenue])
	assert.Equal(t, int64(1000), a.Pivot.Rows[0].Values[engine.Revenue])
}

func TestAnalyzeMarginWithoutRevenue(t *testing.T) {
	view := factView(
		engine.FactRow{Year: 2024, Month: "Jan", Business: "A", Revenue: 0, GrossProfit: -50},
		engine.FactRow{Year: 2024, Month: "Jan", Business: "B", Revenue: 400, GrossProfit: 100},
	)
	a, err := New().Analyze(context.Background(), "sales and profit by business", view, nil, engine.Presets{})
	require.NoError(t, err)

	require.True(t, a.Pivot.HasProfitMargin)
	require.Len(t, a.Pivot.Rows, 2)
	assert.Equal(t, []string{"B"}, a.Pivot.Rows[0].Group)
	assert.Equal(t, 25.0, a.Pivot.Rows[0].ProfitMarginPct)
	assert.Equal(t, 0.0, a.Pivot.Rows[1].ProfitMarginPct)
}

func TestAnalyzeEmptyResultIsNotAnError(t *testing.T) {
	a, err := New().Analyze(context.Background(), "sales in march 2025", costRows(), nil, engine.Presets{})
	require.NoError(t, err)
	assert.Zero(t, a.FilteredRowCount)
	assert.Empty(t, a.Pivot.Rows)
	assert.Contains(t, a.ContextText, "(no matching rows)")
}

func TestAnalyzeWithoutView(t *testing.T) {
	_, err := New().Analyze(context.Background(), "sales", nil, nil, engine.Presets{})
	assert.ErrorIs(t, err, ErrNoData)
}

type failingTranslator struct{}

func (failingTranslator) Interpret(context.Context, string) (engine.ParsedQuery, error) {
	return engine.ParsedQuery{}, errors.New("boom")
}

func TestAnalyzeTranslatorError(t *testing.T) {
	_, err := New(WithTranslator(failingTranslator{})).Analyze(context.Background(), "sales", costRows(), nil, engine.Presets{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestAnalyzeAppliesPresets(t *testing.T) {
	a, err := New().Analyze(context.Background(), "cost drivers by business", costRows(), nil,
		engine.Presets{Year: 2024, Business: "B"})
	require.NoError(t, err)

	require.Len(t, a.Pivot.Rows, 1)
	assert.Equal(t, []string{"B"}, a.Pivot.Rows[0].Group)
	assert.Equal(t, 2024, a.Query.Year)
}

func TestAnalyzeFollowUpCarriesHistory(t *testing.T) {
	turns := []engine.ConversationTurn{
		{Role: engine.RoleUser, Content: "show me brand performance"},
		{Role: engine.RoleAssistant, Content: "Brand X leads with €2.1M."},
	}
	a, err := New().Analyze(context.Background(), "what about last year", costRows(), turns, engine.Presets{})
	require.NoError(t, err)

	assert.True(t, a.FollowUp)
	assert.Contains(t, a.ContextText, "Previous conversation context:\nUser: show me brand performance\nAssistant: Brand X leads with €2.1M.")
}

func TestAnalyzeRankingTruncates(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	build := func(values []int) engine.RecordView {
		rows := make([]engine.FactRow, len(values))
		for i, v := range values {
			rows[i] = engine.FactRow{
				Year:       2024,
				Month:      "Jan",
				Business:   fmt.Sprintf("B%02d", i),
				Revenue:    float64(v),
				PriceDowns: float64(v),
			}
		}
		return factView(rows...)
	}

	properties.Property("ranking keeps at most three groups", prop.ForAll(
		func(values []int) bool {
			a, err := New().Analyze(context.Background(), "sales by business", build(values), nil, engine.Presets{})
			if err != nil {
				return false
			}
			want := len(values)
			if want > engine.DefaultRankingLimit {
				want = engine.DefaultRankingLimit
			}
			return len(a.Pivot.Rows) == want
		},
		gen.SliceOf(gen.IntRange(1, 10000)),
	))

	properties.Property("cost drivers keep every group", prop.ForAll(
		func(values []int) bool {
			a, err := New().Analyze(context.Background(), "cost drivers by business", build(values), nil, engine.Presets{})
			return err == nil && len(a.Pivot.Rows) == len(values)
		},
		gen.SliceOf(gen.IntRange(1, 10000)),
	))

	properties.Property("untruncated shares add up to 100", prop.ForAll(
		func(values []int) bool {
			if len(values) == 0 {
				return true
			}
			a, err := New().Analyze(context.Background(), "cost drivers and sales by business", build(values), nil, engine.Presets{})
			if err != nil || !a.Pivot.HasPercentOfTotal {
				return false
			}
			var sum float64
			for _, r := range a.Pivot.Rows {
				sum += r.PercentOfTotal
			}
			return math.Abs(sum-100) <= 0.05*float64(len(values))+1e-9
		},
		gen.SliceOf(gen.IntRange(1, 10000)),
	))

	properties.TestingRun(t)
}

func TestAnswerRequest(t *testing.T) {
	an := New(WithHistoryTurns(2))
	turns := []engine.ConversationTurn{
		{Role: engine.RoleUser, Content: "one"},
		{Role: engine.RoleAssistant, Content: "two"},
		{Role: engine.RoleUser, Content: "three"},
	}
	req := an.AnswerRequest("why?", Analysis{ContextText: "CTX"}, turns)

	assert.Equal(t, assistant.SystemPrompt, req.SystemPrompt)
	assert.Equal(t, turns[1:], req.History)
	assert.Equal(t, "Based on the following data, answer: why?\n\nCTX", req.UserPrompt)
}
