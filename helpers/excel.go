package helpers

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// ParseExcel reads one worksheet of an .xlsx workbook into FactRows.
// An empty sheet name selects the first worksheet. The first row is the header.
func ParseExcel(r io.Reader, sheet string) ([]engine.FactRow, *schema.Config, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	sch, err := schema.Discover(rows[0], rows[1:])
	if err != nil {
		return nil, nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	sch.DiscoveredFrom = "xlsx"

	return RowsToFacts(rows[1:], *sch), sch, nil
}
