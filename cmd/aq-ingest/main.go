// aq-ingest - Air-quality ingestion into ClickHouse
//
// Loads the hourly dataset, inserts every observation over the ch-go native
// protocol, then stores the seasonal, monthly and correlation views of the
// report under the same run ID.
//
// Tables (database from $CLICKHOUSE_DATABASE, default airquality):
//   - observations     hourly rows, NaN for missing values
//   - seasonal_means   mean per (field, season)
//   - monthly_means    mean per (field, YYYY-MM)
//   - correlations     full Pearson matrix
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/aq-ingest ./cmd/aq-ingest

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/common"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/report"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/store"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

var (
	cli common.CLI

	chHost    string
	chDB      string
	batchSize int
	timeout   time.Duration
	truncate  bool
	skipViews bool
)

var rootCmd = &cobra.Command{
	Use:               "aq-ingest [source]",
	Short:             "Ingest the air-quality dataset into ClickHouse",
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
	f.StringVar(&chHost, "ch-host", "", "ClickHouse host:port (default: $CLICKHOUSE_HOST:$CLICKHOUSE_PORT)")
	f.StringVar(&chDB, "ch-db", "", "ClickHouse database (default: $CLICKHOUSE_DATABASE)")
	f.IntVar(&batchSize, "batch", store.DefaultBatchSize, "Observations per native block")
	f.DurationVar(&timeout, "timeout", 0, "Fetch timeout for remote sources")
	f.BoolVar(&truncate, "truncate", false, "Truncate observations before insert")
	f.BoolVar(&skipViews, "skip-views", false, "Insert observations only")
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
	opts := store.OptionsFromConfig(cfg, logger)
	if chHost != "" {
		opts.Addr = chHost
	}
	if chDB != "" {
		opts.Database = chDB
	}
	opts.BatchSize = batchSize

	out := cmd.OutOrStdout()
	common.Banner(out, fmt.Sprintf("AQ Ingest v%s", Version),
		"Source", cfg.Source,
		"ClickHouse", opts.Addr,
		"Database", opts.Database,
		"Batch", fmt.Sprintf("%d rows", opts.BatchSize),
		"Truncate", fmt.Sprintf("%v", truncate),
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

	st, err := store.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	if truncate {
		logger.Info("truncating observations")
		if err := st.Truncate(ctx); err != nil {
			return err
		}
	}

	ingest := store.NewRun(cfg.Source)
	logger = logger.With(zap.String("run_id", ingest.ID.String()))

	sent, err := st.InsertObservations(ctx, ingest, ds)
	if err != nil {
		return errors.Wrapf(err, "after %d rows", sent)
	}
	logger.Info("observations inserted", zap.Int("rows", sent))

	derived := 0
	if !skipViews {
		r, err := report.Build(ds)
		if err != nil {
			return errors.Wrap(err, "build report")
		}
		rows, err := st.InsertReport(ctx, ingest, r)
		if err != nil {
			return err
		}
		derived = rows.Len()
		logger.Info("derived views inserted",
			zap.Int("seasonal", len(rows.Seasonal)),
			zap.Int("monthly", len(rows.Monthly)),
			zap.Int("correlations", len(rows.Correlations)),
		)
	}

	elapsed := time.Since(start)
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(sent) / elapsed.Seconds()
	}

	common.Banner(out, "Ingest Summary",
		"Run ID", ingest.ID.String(),
		"Rows", fmt.Sprintf("%d", sent),
		"Malformed", fmt.Sprintf("%d", stats.GetMalformed()),
		"Derived", fmt.Sprintf("%d rows", derived),
		"Elapsed", elapsed.Round(time.Millisecond).String(),
		"Rate", fmt.Sprintf("%.0f rows/sec", rate),
	)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aq-ingest: %v\n", err)
		os.Exit(1)
	}
}
