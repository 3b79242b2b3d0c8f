// aq-parquet - Convert the air-quality CSV to Parquet
//
// Loads any supported source (URL, .csv, .csv.gz, .csv.zst) and writes the
// cleaned records as a Parquet file. Missing values become Parquet nulls, so
// the output round-trips through the loader unchanged.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/aq-parquet ./cmd/aq-parquet

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/common"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

var (
	cli common.CLI

	outPath string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:               "aq-parquet [source]",
	Short:             "Convert the air-quality dataset to Parquet",
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
	f.StringVarP(&outPath, "out", "o", "", "Output file (default: <output_dir>/airquality.parquet)")
	f.DurationVar(&timeout, "timeout", 0, "Fetch timeout for remote sources")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := cli.Config
	logger := cli.Logger

	if len(args) == 1 {
		cfg.Source = args[0]
	}
	if timeout > 0 {
		cfg.FetchTimeout = timeout
	}
	if outPath == "" {
		outPath = filepath.Join(cfg.OutputDir, "airquality.parquet")
	}

	out := cmd.OutOrStdout()
	common.Banner(out, fmt.Sprintf("AQ Parquet v%s", Version),
		"Source", cfg.Source,
		"Output", outPath,
		"Batch", fmt.Sprintf("%d rows per write", airquality.ParquetBatchSize),
	)

	ctx, cancel := common.SignalContext()
	defer cancel()

	start := time.Now()
	stats := common.NewStats()
	ds, err := airquality.LoadDataset(ctx, cfg.Source,
		airquality.WithTimeout(cfg.FetchTimeout),
		airquality.WithLogger(logger),
		airquality.WithStats(stats),
	)
	if err != nil {
		return err
	}

	n, size, err := writeFile(outPath, ds)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	logger.Info("parquet written",
		zap.String("path", outPath),
		zap.Int("rows", n),
		zap.Int64("bytes", size),
		zap.Duration("elapsed", elapsed),
	)

	common.Banner(out, "Conversion Summary",
		"Rows", fmt.Sprintf("%d", n),
		"Malformed", fmt.Sprintf("%d", stats.GetMalformed()),
		"Missing", fmt.Sprintf("%d values", stats.GetMissing()),
		"Size", fmt.Sprintf("%.2f MB", float64(size)/1024/1024),
		"Elapsed", elapsed.Round(time.Millisecond).String(),
	)
	return nil
}

// writeFile writes ds to a temp file beside path and renames it into place.
func writeFile(path string, ds *airquality.Dataset) (int, int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, 0, errors.Wrap(err, "create output dir")
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, 0, errors.Wrap(err, "create file failed")
	}

	n, err := airquality.WriteParquet(f, ds)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, 0, errors.Wrap(err, "write parquet")
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return 0, 0, errors.Wrap(err, "stat output")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, 0, errors.Wrap(err, "rename failed")
	}
	return n, info.Size(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aq-parquet: %v\n", err)
		os.Exit(1)
	}
}
