// aq-download - Downloader for the PRSA air-quality CSV
//
// Fetches the published dataset to local disk so later runs can work offline.
// The body is optionally recompressed to .csv.gz (parallel gzip) or .csv.zst;
// the loader reads all three forms.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/aq-download ./cmd/aq-download

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/common"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// DefaultFileName is the local name of the downloaded dataset, before any
// compression suffix.
const DefaultFileName = "PRSA_Aotizhongxin_20130301-20170228.csv"

var (
	cli common.CLI

	url      string
	destDir  string
	compress string
	timeout  time.Duration
	force    bool
)

var rootCmd = &cobra.Command{
	Use:               "aq-download",
	Short:             "Download the PRSA air-quality CSV",
	Args:              cobra.NoArgs,
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
	f.StringVar(&url, "url", "", "Source URL (default: $AQ_SOURCE or the published PRSA CSV)")
	f.StringVar(&destDir, "dest", "", "Destination directory (default: $AQ_OUTPUT_DIR)")
	f.StringVar(&compress, "compress", "none", "Recompress as gz, zst or none")
	f.DurationVar(&timeout, "timeout", 0, "HTTP timeout (default: $AQ_FETCH_TIMEOUT)")
	f.BoolVar(&force, "force", false, "Download even if the file already exists")
}

// Result describes one completed download.
type Result struct {
	Path     string
	BytesIn  int64 // Bytes received over HTTP
	BytesOut int64 // Bytes written to disk
	Skipped  bool
	Elapsed  time.Duration
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := cli.Config
	logger := cli.Logger

	if url == "" {
		url = cfg.Source
	}
	if destDir == "" {
		destDir = cfg.OutputDir
	}
	if timeout == 0 {
		timeout = cfg.FetchTimeout
	}

	name, err := destName(DefaultFileName, compress)
	if err != nil {
		return err
	}
	destPath := filepath.Join(destDir, name)

	out := cmd.OutOrStdout()
	common.Banner(out, fmt.Sprintf("AQ Download v%s", Version),
		"Source", url,
		"Destination", destPath,
		"Compress", compress,
		"Timeout", timeout.String(),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrap(err, "create destination")
	}

	ctx, cancel := common.SignalContext()
	defer cancel()

	res, err := downloadFile(ctx, http.DefaultClient, url, destPath, compress, timeout, force)
	if err != nil {
		return err
	}
	if res.Skipped {
		logger.Info("file exists, skipped", zap.String("path", destPath))
		return nil
	}

	logger.Info("download complete",
		zap.String("path", res.Path),
		zap.Int64("bytes_in", res.BytesIn),
		zap.Int64("bytes_out", res.BytesOut),
		zap.Duration("elapsed", res.Elapsed),
	)

	common.Banner(out, "Download Summary",
		"Received", fmt.Sprintf("%.2f MB", float64(res.BytesIn)/1024/1024),
		"Written", fmt.Sprintf("%.2f MB", float64(res.BytesOut)/1024/1024),
		"Elapsed", res.Elapsed.Round(time.Millisecond).String(),
	)
	return nil
}

// destName appends the suffix for the chosen compression.
func destName(base, compress string) (string, error) {
	switch compress {
	case "", "none":
		return base, nil
	case "gz", "gzip":
		return base + ".gz", nil
	case "zst", "zstd":
		return base + ".zst", nil
	}
	return "", errors.Errorf("unknown compression %q (want gz, zst or none)", compress)
}

func downloadFile(ctx context.Context, client *http.Client, url, destPath, compress string, timeout time.Duration, force bool) (*Result, error) {
	// Check if file already exists
	if !force {
		if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
			return &Result{Path: destPath, Skipped: true}, nil
		}
	}

	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP GET failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Create temp file
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "create file failed")
	}

	counter := &countingWriter{w: f}
	n, err := copyCompressed(counter, resp.Body, compress)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, errors.Wrap(err, "download failed")
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return nil, errors.Wrap(err, "rename failed")
	}

	return &Result{
		Path:     destPath,
		BytesIn:  n,
		BytesOut: counter.n,
		Elapsed:  time.Since(start),
	}, nil
}

// copyCompressed copies src to dst through the chosen encoder and returns
// the number of uncompressed bytes read.
func copyCompressed(dst io.Writer, src io.Reader, compress string) (int64, error) {
	var enc io.WriteCloser
	switch compress {
	case "", "none":
		return io.Copy(dst, src)
	case "gz", "gzip":
		enc = pgzip.NewWriter(dst)
	case "zst", "zstd":
		zw, err := zstd.NewWriter(dst)
		if err != nil {
			return 0, errors.Wrap(err, "zstd writer")
		}
		enc = zw
	default:
		return 0, errors.Errorf("unknown compression %q", compress)
	}

	n, err := io.Copy(enc, src)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	return n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aq-download: %v\n", err)
		os.Exit(1)
	}
}
