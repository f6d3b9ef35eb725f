package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/schema"
)

// ============================================================================
// OUTPUT — json, pretty, text and Sheets-ready CSV
// ============================================================================

// openOutput returns stdout, or a created file when path is set.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v any, format string) error {
	var (
		out []byte
		err error
	)
	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// writePivotCSV writes one header row and one row per group with raw numbers.
func writePivotCSV(w io.Writer, p engine.PivotResult) error {
	cw := csv.NewWriter(w)
	cols := p.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, rec := range p.Records() {
		row := make([]string, len(cols))
		for i, col := range cols {
			row[i] = cell(rec[col])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return fmtNum(x)
	default:
		return fmt.Sprint(x)
	}
}

// writeText prints the model answer, or without one the summary and the
// data context.
func writeText(w io.Writer, answer, summary, contextText string) error {
	var parts []string
	switch {
	case answer != "":
		parts = append(parts, answer)
	default:
		if summary != "" {
			parts = append(parts, summary)
		}
		parts = append(parts, contextText)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, "\n\n"))
	return err
}

func writeSchemaText(w io.Writer, sch *schema.Config, rows int) error {
	fmt.Fprintf(w, "%s: %d rows, %d dimensions, %d measures\n\n", sch.Name, rows, len(sch.Dimensions), len(sch.Measures))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tKEY\tCOLUMN\tSAMPLES")
	for _, d := range sch.Dimensions {
		fmt.Fprintf(tw, "dimension\t%s\t%s\t%s\n", d.Key, d.SourceColumn, strings.Join(d.SampleValues, ", "))
	}
	for _, m := range sch.Measures {
		kind := "measure"
		if m.IsCostDriver {
			kind = "cost driver"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", kind, m.Key, m.SourceColumn)
	}
	for _, s := range sch.SkippedColumns {
		fmt.Fprintf(tw, "skipped\t\t%s\t%s\n", s.Column, s.Reason)
	}
	return tw.Flush()
}

func writeOverviewText(w io.Writer, ov engine.Overview) error {
	fmt.Fprintf(w, "Revenue %s | Gross profit %s | Units %s\n",
		engine.FormatEuro(ov.TotalRevenue),
		engine.FormatEuro(ov.TotalGrossProfit),
		engine.FormatInt(engine.WholeUnits(ov.TotalUnits)))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	section := func(title string, dim engine.Dimension, rows []engine.BreakdownRow) {
		fmt.Fprintf(tw, "\n%s\t\t\t\t\n", title)
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", r.Keys[dim],
				engine.FormatEuro(r.Values[engine.Revenue]),
				engine.FormatEuro(r.Values[engine.GrossProfit]),
				engine.FormatInt(engine.WholeUnits(r.Values[engine.Units])))
		}
	}
	section("By year", engine.Year, ov.YearlyPerformance)
	section("By business", engine.Business, ov.BusinessPerformance)
	section(fmt.Sprintf("Monthly %d", ov.LatestYear), engine.Month, ov.MonthlyTrend)
	return tw.Flush()
}

// fmtNum prints whole numbers without decimals, everything else with two.
func fmtNum(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
