package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/pulse/engine"
)

const factsCSV = `Year,Month_Name,Business,gSales,fGP,Price Downs,Perm. Disc.
2024,January,Snacks,"1,200.50",300,10,5
2024,Feb,Drinks,800,(20),4,2
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileSourceCSV(t *testing.T) {
	src, err := NewFileSource(writeFile(t, "sales_2024.csv", []byte(factsCSV)), "")
	require.NoError(t, err)

	rows, sch, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "sales_2024", sch.Name)
	assert.Equal(t, "Jan", rows[0].Month)
	assert.InDelta(t, 1200.5, rows[0].Revenue, 1e-9)
	assert.InDelta(t, -20, rows[1].GrossProfit, 1e-9)
	assert.InDelta(t, 5, rows[0].PermanentDiscount, 1e-9)
	assert.True(t, sch.Capabilities().HasMetric(engine.PriceDowns))
}

func TestFileSourceXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Year", "Month", "Brand", "Cases"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{2025, "Jun", "Zest", 42}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	src, err := NewFileSource(writeFile(t, "facts.xlsx", buf.Bytes()), "")
	require.NoError(t, err)
	rows, sch, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "Zest", rows[0].Brand)
	assert.InDelta(t, 42, rows[0].Units, 1e-9)
	assert.Equal(t, "xlsx", sch.DiscoveredFrom)
}

func TestFileSourceErrors(t *testing.T) {
	_, err := NewFileSource("facts.json", "")
	assert.Error(t, err)

	src, err := NewFileSource(filepath.Join(t.TempDir(), "missing.csv"), "")
	require.NoError(t, err)
	_, _, err = src.Load(context.Background())
	assert.Error(t, err)

	src, err = NewFileSource(writeFile(t, "junk.csv", []byte("foo,bar\n1,2\n")), "")
	require.NoError(t, err)
	_, _, err = src.Load(context.Background())
	assert.Error(t, err)
}

func TestFormatFromName(t *testing.T) {
	f, err := FormatFromName("a/b/Facts.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = FormatFromName("facts.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = FormatFromName("facts")
	assert.Error(t, err)
}

func TestOpenSettings(t *testing.T) {
	src, closeFn, err := Open(context.Background(), Settings{Path: writeFile(t, "f.csv", []byte(factsCSV))})
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.IsType(t, &FileSource{}, src)
	assert.NoError(t, closeFn())

	_, _, err = Open(context.Background(), Settings{Kind: "ftp"})
	assert.Error(t, err)

	src, closeFn, err = Open(context.Background(), Settings{Kind: KindFile})
	assert.Error(t, err)
	assert.Nil(t, src)
	assert.NotNil(t, closeFn)

	_, _, err = Open(context.Background(), Settings{Kind: KindSQL})
	assert.Error(t, err)
}
