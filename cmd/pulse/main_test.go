package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

const salesCSV = `Year,Month_Name,Business,gSales,fGP,Cases
2024,January,Snacks,1200,300,120
2024,Feb,Drinks,800,200,80
2023,January,Snacks,500,100,50
`

// runCLI executes the root command in an empty directory with no model keys.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"PPLX_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "PULSE_LLM_API_KEY", "PULSE_LLM_PROVIDER", "PULSE_DATA_SOURCE"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func factsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facts.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o644))
	return path
}

func TestAskJSON(t *testing.T) {
	out, err := runCLI(t, "ask", "--file", factsFile(t), "--format", "json", "which business had the most gSales in 2024")
	require.NoError(t, err)

	var got askOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "which business had the most gSales in 2024", got.Question)
	assert.Empty(t, got.Answer)
	assert.Equal(t, 2, got.FilteredRowCount)
	assert.Equal(t, []string{"Business", "Revenue", "PercentOfTotal"}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Snacks", got.Rows[0]["Business"])
	assert.Contains(t, got.Summary, "Top business in 2024: Snacks - €1.2k (60.0%)")
}

func TestAskCSV(t *testing.T) {
	out, err := runCLI(t, "ask", "--file", factsFile(t), "--format", "csv", "gsales by business in 2024")
	require.NoError(t, err)
	assert.Equal(t, "Business,Revenue,PercentOfTotal\nSnacks,1200,60\nDrinks,800,40\n", out)
}

func TestAskContextOnlyText(t *testing.T) {
	out, err := runCLI(t, "ask", "--file", factsFile(t), "--context-only", "--year", "2023", "profit", "by", "business")
	require.NoError(t, err)
	assert.Contains(t, out, "Data for 'profit by business' (values in Euros €):")
	assert.Contains(t, out, "Profit formula:")
	assert.Contains(t, out, "Snacks")
	assert.NotContains(t, out, "Drinks")
}

func TestAskWritesOutFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "answer.csv")
	out, err := runCLI(t, "ask", "--file", factsFile(t), "--format", "csv", "--out", dest, "cases by business")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Business,Units")
}

func TestAskErrors(t *testing.T) {
	_, err := runCLI(t, "ask", "--file", factsFile(t), "--format", "xml", "sales")
	assert.ErrorContains(t, err, `unknown format "xml"`)

	_, err = runCLI(t, "ask", "--file", factsFile(t))
	assert.Error(t, err)

	_, err = runCLI(t, "ask", "--file", filepath.Join(t.TempDir(), "missing.csv"), "sales")
	assert.Error(t, err)

	_, err = runCLI(t, "ask", "--file", "facts.parquet", "sales")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestDiscover(t *testing.T) {
	path := factsFile(t)

	out, err := runCLI(t, "discover", "--file", path, "--format", "json")
	require.NoError(t, err)
	var sch schema.Config
	require.NoError(t, json.Unmarshal([]byte(out), &sch))
	assert.Equal(t, "facts", sch.Name)
	assert.Equal(t, []engine.Dimension{engine.Year, engine.Month, engine.Business}, sch.DimensionKeys())
	assert.Equal(t, []engine.Metric{engine.Revenue, engine.GrossProfit, engine.Units}, sch.MeasureKeys())

	out, err = runCLI(t, "discover", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "facts: 3 rows, 3 dimensions, 3 measures")
	assert.Contains(t, out, "Month_Name")
}

func TestOverview(t *testing.T) {
	path := factsFile(t)

	out, err := runCLI(t, "overview", "--file", path, "--years", "2024", "--format", "json")
	require.NoError(t, err)
	var ov engine.Overview
	require.NoError(t, json.Unmarshal([]byte(out), &ov))
	assert.Equal(t, 2024, ov.LatestYear)
	assert.InDelta(t, 2000, ov.TotalRevenue, 1e-9)
	assert.Len(t, ov.BusinessPerformance, 2)

	out, err = runCLI(t, "overview", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Revenue €2.5k | Gross profit €600 | Units 250")
	assert.Contains(t, out, "Monthly 2024")

	_, err = runCLI(t, "overview", "--file", path, "--businesses", "Nope")
	assert.ErrorContains(t, err, "no data for the selected filters")
}

func TestFmtNum(t *testing.T) {
	assert.Equal(t, "1200", fmtNum(1200))
	assert.Equal(t, "-3", fmtNum(-3))
	assert.Equal(t, "66.67", fmtNum(66.666))
	assert.Equal(t, "", cell(nil))
	assert.Equal(t, "42", cell(int64(42)))
	assert.Equal(t, "true", cell(true))
}
