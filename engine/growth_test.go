package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthByYear(t *testing.T) {
	view := NewFactView([]FactRow{
		{Year: 2023, Month: "Jan", Revenue: 1000},
		{Year: 2024, Month: "Jan", Revenue: 1500},
		{Year: 2025, Month: "Jan", Revenue: 1800},
	}, FullCapabilities())

	comp := Execute(ParsedQuery{Metrics: []Metric{Revenue}, IsTrend: true}, view)
	p := comp.Pivot

	require.True(t, p.HasGrowth)
	require.Len(t, p.Rows, 3)
	assert.Equal(t, 0.0, p.Rows[0].Growth[Revenue])
	assert.Equal(t, 50.0, p.Rows[1].Growth[Revenue])
	assert.Equal(t, 20.0, p.Rows[2].Growth[Revenue])
	assert.Contains(t, p.Columns(), "Revenue Growth %")
}

func TestGrowthStaysWithinGroup(t *testing.T) {
	q := byBusiness(Revenue)
	q.IsTrend = true
	p := Execute(q, sampleView()).Pivot

	growth := map[string]float64{}
	for _, r := range p.Rows {
		growth[r.Group[0]+"/"+r.Group[1]] = r.Growth[Revenue]
	}
	assert.Equal(t, map[string]float64{
		"2023/A": 0,
		"2023/B": 0,
		"2024/A": 50.0,
		"2024/B": -50.0,
	}, growth)
}

func TestGrowthSkipsGapsAndZeroBase(t *testing.T) {
	view := NewFactView([]FactRow{
		{Year: 2022, Month: "Jan", Revenue: 0, Units: 10},
		{Year: 2023, Month: "Jan", Revenue: 500, Units: 15},
		{Year: 2025, Month: "Jan", Revenue: 900, Units: 30},
	}, FullCapabilities())

	p := Execute(ParsedQuery{Metrics: []Metric{Revenue, Units}, IsTrend: true}, view).Pivot

	require.Len(t, p.Rows, 3)
	assert.Equal(t, 0.0, p.Rows[1].Growth[Revenue])
	assert.Equal(t, 50.0, p.Rows[1].Growth[Units])
	assert.Equal(t, 0.0, p.Rows[2].Growth[Revenue])
}

func TestGrowthLeavesNonYearPivots(t *testing.T) {
	p, _ := Aggregate(sampleView(), byBusiness(Revenue))
	out := WithGrowth(p)
	assert.False(t, out.HasGrowth)
	assert.Nil(t, out.Rows[0].Growth)
}

func TestGrowthDoesNotMutateInput(t *testing.T) {
	q := byBusiness(Revenue)
	q.IsTrend = true
	p, _ := Aggregate(sampleView(), q)

	_ = WithGrowth(p)
	assert.False(t, p.HasGrowth)
	assert.Nil(t, p.Rows[0].Growth)
}
