// aq-report - Air-quality report generator
//
// Loads the PRSA hourly dataset, derives the scatter, seasonal, correlation
// and monthly views, and prints them with their commentary. Optionally writes
// the report as JSON, an XLSX workbook, and PNG charts.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/aq-report ./cmd/aq-report

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/common"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/render"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/report"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

var (
	cli common.CLI

	source      string
	outDir      string
	previewRows int
	timeout     time.Duration
	jsonOut     bool
	xlsxOut     bool
	pngOut      bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:   "aq-report [source]",
	Short: "Air-quality analysis report",
	Long: `Loads an hourly air-quality table (URL or path; .csv, .csv.gz, .csv.zst
or .parquet) and reports:
  1. Dataset preview
  2. WSPM vs PM2.5 scatter with its Pearson coefficient
  3. Average PM10 by season
  4. Correlation matrix of WSPM, PM2.5, PM10, TEMP, PRES, DEWP, RAIN
  5. Monthly average PM10`,
	Args:              cobra.MaximumNArgs(1),
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: cli.Setup,
	PersistentPostRun: cli.Sync,
	RunE:              run,
}

func init() {
	cli.Bind(rootCmd)
	f := rootCmd.Flags()
	f.StringVar(&source, "source", "", "Dataset location (default: $AQ_SOURCE or the published PRSA CSV)")
	f.StringVarP(&outDir, "out", "o", "", "Output directory for --json, --xlsx and --png")
	f.IntVar(&previewRows, "preview", 0, "Preview table rows")
	f.DurationVar(&timeout, "timeout", 0, "Fetch timeout for remote sources")
	f.BoolVar(&jsonOut, "json", false, "Write report.json")
	f.BoolVar(&xlsxOut, "xlsx", false, "Write the XLSX workbook")
	f.BoolVar(&pngOut, "png", false, "Write PNG charts")
	f.BoolVarP(&quiet, "quiet", "q", false, "Do not print the text report")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := cli.Config
	logger := cli.Logger

	if len(args) == 1 {
		cfg.Source = args[0]
	}
	if source != "" {
		cfg.Source = source
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if previewRows > 0 {
		cfg.PreviewRows = previewRows
	}
	if timeout > 0 {
		cfg.FetchTimeout = timeout
	}

	ctx, cancel := common.SignalContext()
	defer cancel()

	stats := common.NewStats()
	ds, err := airquality.LoadDataset(ctx, cfg.Source,
		airquality.WithTimeout(cfg.FetchTimeout),
		airquality.WithLogger(logger),
		airquality.WithStats(stats),
	)
	if err != nil {
		return err
	}

	r, err := report.Build(ds, report.WithPreviewRows(cfg.PreviewRows))
	if err != nil {
		return errors.Wrap(err, "build report")
	}
	logger.Info("report built", zap.String("summary", report.Summary(r)))

	if !quiet {
		if err := report.WriteText(cmd.OutOrStdout(), r); err != nil {
			return errors.Wrap(err, "write text")
		}
	}

	if !(jsonOut || xlsxOut || pngOut) {
		return nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	if jsonOut {
		path := filepath.Join(cfg.OutputDir, "report.json")
		if err := writeJSON(path, r); err != nil {
			return err
		}
		logger.Info("json written", zap.String("path", path))
	}
	if xlsxOut {
		path := cfg.WorkbookPath()
		if err := render.SaveWorkbook(path, r); err != nil {
			return err
		}
		logger.Info("workbook written", zap.String("path", path))
	}
	if pngOut {
		paths, err := render.WriteCharts(cfg.ChartDir(), r, logger)
		if err != nil {
			return err
		}
		logger.Info("charts written", zap.Strings("paths", paths))
	}
	return nil
}

func writeJSON(path string, r *report.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "write report.json")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aq-report: %v\n", err)
		os.Exit(1)
	}
}
