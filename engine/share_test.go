package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareOfFilteredRevenue(t *testing.T) {
	comp := Execute(byBusiness(Revenue), sampleView(), WithRankingLimit(0))
	p := comp.Pivot

	require.True(t, p.HasPercentOfTotal)
	// the row without a business still counts towards the total
	assert.Equal(t, 46.2, p.Rows[0].PercentOfTotal)
	assert.Equal(t, 38.5, p.Rows[1].PercentOfTotal)
}

func TestShareForTrendsIsPerYear(t *testing.T) {
	q := byBusiness(Revenue)
	q.IsTrend = true
	p := Execute(q, sampleView()).Pivot

	shares := map[string]float64{}
	for _, r := range p.Rows {
		shares[r.Group[0]+"/"+r.Group[1]] = r.PercentOfTotal
	}
	assert.Equal(t, map[string]float64{
		"2023/A": 33.3,
		"2023/B": 66.7,
		"2024/A": 50.0,
		"2024/B": 33.3,
	}, shares)
}

func TestShareNeedsRevenueAndGrouping(t *testing.T) {
	p := Execute(ParsedQuery{Metrics: []Metric{Revenue}}, sampleView()).Pivot
	assert.False(t, p.HasPercentOfTotal)

	p = Execute(byBusiness(Units), sampleView()).Pivot
	assert.False(t, p.HasPercentOfTotal)
}

func TestShareWithoutPositiveTotal(t *testing.T) {
	view := NewFactView([]FactRow{
		{Year: 2024, Month: "Jan", Business: "A", Revenue: 100},
		{Year: 2024, Month: "Jan", Business: "B", Revenue: -100},
	}, FullCapabilities())
	p := Execute(byBusiness(Revenue), view).Pivot

	for _, r := range p.Rows {
		assert.Equal(t, 0.0, r.PercentOfTotal)
	}
}

func TestShareTotalIncludesRowsWithoutKey(t *testing.T) {
	view := NewFactView([]FactRow{
		{Year: 2024, Month: "Jan", Business: "A", Revenue: 100},
		{Year: 2024, Month: "Jan", Business: "B", Revenue: 100},
		{Year: 2024, Month: "Jan", Revenue: 200},
	}, FullCapabilities())
	p := Execute(byBusiness(Revenue), view).Pivot

	require.Len(t, p.Rows, 2)
	sum := 0.0
	for _, r := range p.Rows {
		assert.Equal(t, 25.0, r.PercentOfTotal)
		sum += r.PercentOfTotal
	}
	assert.Equal(t, 50.0, sum)
}
