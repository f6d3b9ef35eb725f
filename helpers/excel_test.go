package helpers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/pulse/engine"
)

// workbook builds an in-memory .xlsx with the given rows on its first sheet.
func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cellRef, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseExcel(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Year", "Month", "Business", "Channel", "gSales", "fGP"},
		{2024, "March", "Snacks", "Retail", 1500, 400},
		{2024, "Apr", "Drinks", "Online", 800.5, 120},
	})

	facts, sch, err := ParseExcel(buf, "")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", sch.DiscoveredFrom)
	require.Len(t, facts, 2)

	assert.Equal(t, 2024, facts[0].Year)
	assert.Equal(t, "Mar", facts[0].Month)
	assert.Equal(t, "Retail", facts[0].Channel)
	assert.InDelta(t, 1500, facts[0].Revenue, 1e-9)
	assert.InDelta(t, 800.5, facts[1].Revenue, 1e-9)
	assert.InDelta(t, 120, facts[1].GrossProfit, 1e-9)

	assert.True(t, sch.Capabilities().HasMetric(engine.GrossProfit))
	assert.False(t, sch.Capabilities().HasMetric(engine.Units))
}

func TestParseExcelMissingSheet(t *testing.T) {
	buf := workbook(t, [][]interface{}{{"Year", "gSales"}, {2024, 1}})
	_, _, err := ParseExcel(buf, "Nope")
	assert.Error(t, err)
}

func TestParseExcelNotAWorkbook(t *testing.T) {
	_, _, err := ParseExcel(bytes.NewBufferString("Year,gSales\n2024,1\n"), "")
	assert.Error(t, err)
}
