package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/pulse/config"
	"github.com/spektr-org/pulse/engine"
	"github.com/spektr-org/pulse/server"
	"github.com/spektr-org/pulse/store"
)

// ============================================================================
// PULSE CLI — Ask the sales fact table questions
// ============================================================================
//   pulse serve                                   HTTP API with scheduled reloads
//   pulse ask "top business by gSales in 2024"    one question, answer + pivot
//   pulse discover --file facts.xlsx              normalized columns
//   pulse overview --years 2024 --format pretty   executive KPIs
// ============================================================================

const version = "1.0.0"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fatalf("%v", err)
	}
}

// cli carries the persistent flags shared by every command.
type cli struct {
	configPath string
	verbose    bool
	file       string
	sheet      string
}

// loadConfig reads the config file and environment, then applies the
// command line data overrides.
func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.file != "" {
		cfg.Data.Source = store.KindFile
		cfg.Data.Path = c.file
	}
	if c.sheet != "" {
		cfg.Data.Sheet = c.sheet
	}
	if c.verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "pulse",
		Short:         "Pulse - answers business questions from the sales fact table",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Debug logging")
	root.PersistentFlags().StringVar(&c.file, "file", "", "CSV or Excel fact file (overrides the configured source)")
	root.PersistentFlags().StringVar(&c.sheet, "sheet", "", "Excel sheet name")

	root.AddCommand(
		newServeCmd(c),
		newAskCmd(c),
		newDiscoverCmd(c),
		newOverviewCmd(c),
	)
	return root
}

// ============================================================================
// SERVE
// ============================================================================

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := setup(ctx, cfg, setupOptions{llm: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			if spec := cfg.Data.RefreshSchedule; spec != "" {
				refresher, err := store.NewRefresher(rt.cache, spec, cfg.Server.RequestTimeout, rt.logger)
				if err != nil {
					return err
				}
				refresher.Start(ctx)
			}

			srv := server.New(rt.cache, rt.analyst(),
				server.WithGateway(rt.gateway),
				server.WithLogger(rt.logger),
				server.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
				server.WithAllowOrigins(cfg.Server.AllowOrigins...),
				server.WithRequestTimeout(cfg.Server.RequestTimeout),
				server.WithVersion(version),
			)
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// ============================================================================
// ASK
// ============================================================================

type askFlags struct {
	format      string
	out         string
	contextOnly bool
	year        int
	month       string
	business    string
}

// askOutput is the json/pretty shape of an answer.
type askOutput struct {
	Question         string             `json:"question"`
	Answer           string             `json:"answer,omitempty"`
	Summary          string             `json:"summary,omitempty"`
	Context          string             `json:"context"`
	Query            engine.ParsedQuery `json:"query"`
	Columns          []string           `json:"columns"`
	Rows             []map[string]any   `json:"rows"`
	FilteredRowCount int                `json:"filteredRowCount"`
}

func newAskCmd(c *cli) *cobra.Command {
	f := &askFlags{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question",
		Example: `  pulse ask --file sales.csv "top business by gSales in 2024"
  pulse ask --file sales.xlsx --format csv --out drivers.csv "cost drivers by business"
  pulse ask --context-only "fGP trend by brand"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(f.format, "json", "pretty", "text", "csv") {
				return fmt.Errorf("unknown format %q: use json, pretty, text or csv", f.format)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")

			rt, err := setup(cmd.Context(), cfg, setupOptions{llm: !f.contextOnly, requireData: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			w, closeOut, err := openOutput(cmd.OutOrStdout(), f.out)
			if err != nil {
				return err
			}
			defer closeOut()

			return runAsk(cmd.Context(), rt, question, f, w)
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "Output format: json, pretty, text, csv")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write output to file instead of stdout")
	cmd.Flags().BoolVar(&f.contextOnly, "context-only", false, "Skip the model and print the assembled data context")
	cmd.Flags().IntVar(&f.year, "year", 0, "Preset year filter")
	cmd.Flags().StringVar(&f.month, "month", "", "Preset month filter")
	cmd.Flags().StringVar(&f.business, "business", "", "Preset business filter")
	return cmd
}

func runAsk(ctx context.Context, rt *runtime, question string, f *askFlags, w io.Writer) error {
	snap, err := rt.cache.Snapshot()
	if err != nil {
		return err
	}

	an := rt.analyst()
	presets := engine.Presets{Year: f.year, Month: f.month, Business: f.business}
	analysis, err := an.Analyze(ctx, question, snap.View(), nil, presets)
	if err != nil {
		return err
	}

	answer := ""
	if rt.gateway != nil && !f.contextOnly {
		answer, err = rt.gateway.Complete(ctx, an.AnswerRequest(question, analysis, nil))
		if err != nil {
			return fmt.Errorf("failed to get answer: %w", err)
		}
	}
	rt.logger.Debug("💬 Pulse CLI: answered", zap.String("id", analysis.ID), zap.Bool("llm", answer != ""))

	switch f.format {
	case "csv":
		return writePivotCSV(w, analysis.Pivot)
	case "text":
		return writeText(w, answer, analysis.Summary, analysis.ContextText)
	default:
		return writeJSON(w, askOutput{
			Question:         question,
			Answer:           answer,
			Summary:          analysis.Summary,
			Context:          analysis.ContextText,
			Query:            analysis.Query,
			Columns:          analysis.Pivot.Columns(),
			Rows:             analysis.Pivot.Records(),
			FilteredRowCount: analysis.FilteredRowCount,
		}, f.format)
	}
}

// ============================================================================
// DISCOVER & OVERVIEW
// ============================================================================

func newDiscoverCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Load the fact source and print the normalized columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !validFormat(format, "json", "pretty", "text") {
				return fmt.Errorf("unknown format %q: use json, pretty or text", format)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			rt, err := setup(cmd.Context(), cfg, setupOptions{requireData: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.cache.Snapshot()
			if err != nil {
				return err
			}
			if snap.Schema == nil {
				return fmt.Errorf("source %s did not report a schema", snap.Source)
			}
			if format == "text" {
				return writeSchemaText(cmd.OutOrStdout(), snap.Schema, len(snap.Rows))
			}
			return writeJSON(cmd.OutOrStdout(), snap.Schema, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: json, pretty, text")
	return cmd
}

func newOverviewCmd(c *cli) *cobra.Command {
	var (
		format                              string
		years, months, businesses, channels []string
	)
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Print executive KPIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !validFormat(format, "json", "pretty", "text") {
				return fmt.Errorf("unknown format %q: use json, pretty or text", format)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			rt, err := setup(cmd.Context(), cfg, setupOptions{requireData: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.cache.Snapshot()
			if err != nil {
				return err
			}
			filters := engine.Filters{Dimensions: map[engine.Dimension][]string{
				engine.Year:     years,
				engine.Month:    months,
				engine.Business: businesses,
				engine.Channel:  channels,
			}}
			ov, ok := engine.ExecutiveOverview(snap.View(), filters)
			if !ok {
				return fmt.Errorf("no data for the selected filters")
			}
			if format == "text" {
				return writeOverviewText(cmd.OutOrStdout(), ov)
			}
			return writeJSON(cmd.OutOrStdout(), ov, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: json, pretty, text")
	cmd.Flags().StringSliceVar(&years, "years", nil, "Years to include (comma separated)")
	cmd.Flags().StringSliceVar(&months, "months", nil, "Months to include")
	cmd.Flags().StringSliceVar(&businesses, "businesses", nil, "Businesses to include")
	cmd.Flags().StringSliceVar(&channels, "channels", nil, "Channels to include")
	return cmd
}

func validFormat(format string, allowed ...string) bool {
	for _, a := range allowed {
		if format == a {
			return true
		}
	}
	return false
}
