package airquality

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/common"
)

// =============================================================================
// Options
// =============================================================================

const (
	// Error throttling: don't spam logs with parse errors
	MaxErrorsToLog = 10

	// DefaultFetchTimeout bounds a remote fetch, body included.
	DefaultFetchTimeout = 60 * time.Second
)

// Format identifies how a source is encoded.
type Format int

const (
	FormatAuto    Format = iota // Detect from the path extension
	FormatCSV                   // Plain comma-separated text
	FormatCSVGzip               // .csv.gz
	FormatCSVZstd               // .csv.zst
	FormatParquet               // .parquet
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatCSVGzip:
		return "csv.gz"
	case FormatCSVZstd:
		return "csv.zst"
	case FormatParquet:
		return "parquet"
	}
	return "auto"
}

// DetectFormat picks a format from the source path, ignoring any URL query.
// Unknown extensions are read as plain CSV.
func DetectFormat(source string) Format {
	p := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".gz", ".gzip":
		return FormatCSVGzip
	case ".zst", ".zstd":
		return FormatCSVZstd
	case ".parquet", ".pq":
		return FormatParquet
	}
	return FormatCSV
}

// LoadOption configures LoadDataset.
type LoadOption func(*loadConfig)

type loadConfig struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
	stats   *common.Stats
	format  Format
}

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) LoadOption {
	return func(cfg *loadConfig) { cfg.client = c }
}

// WithTimeout bounds a remote fetch. Zero or negative disables the bound.
func WithTimeout(d time.Duration) LoadOption {
	return func(cfg *loadConfig) { cfg.timeout = d }
}

// WithLogger sets the logger for parse diagnostics.
func WithLogger(l *zap.Logger) LoadOption {
	return func(cfg *loadConfig) { cfg.logger = l }
}

// WithStats collects row/byte counters during the load.
func WithStats(s *common.Stats) LoadOption {
	return func(cfg *loadConfig) { cfg.stats = s }
}

// WithFormat overrides extension-based format detection.
func WithFormat(f Format) LoadOption {
	return func(cfg *loadConfig) { cfg.format = f }
}

func applyLoadOptions(opts []LoadOption) *loadConfig {
	cfg := &loadConfig{
		client:  http.DefaultClient,
		timeout: DefaultFetchTimeout,
		logger:  zap.NewNop(),
		stats:   common.NewStats(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// =============================================================================
// LoadDataset
// =============================================================================

// LoadDataset reads the table at source, a local path or an http(s) URL.
//
// Fetch or open failures (timeouts included) return a *SourceError; a header
// without every RequiredColumns entry returns a *SchemaError. Unparseable
// numeric cells become missing values; only entirely malformed rows are dropped.
func LoadDataset(ctx context.Context, source string, opts ...LoadOption) (*Dataset, error) {
	cfg := applyLoadOptions(opts)

	format := cfg.format
	if format == FormatAuto {
		format = DetectFormat(source)
	}

	if cfg.timeout > 0 && isRemote(source) {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	body, err := openSource(ctx, source, cfg.client)
	if err != nil {
		return nil, &SourceError{Source: source, Err: err}
	}
	defer body.Close()

	counted := &countingReader{r: body, stats: cfg.stats}
	cfg.logger.Debug("loading dataset", zap.String("source", source), zap.Stringer("format", format))

	var ds *Dataset
	switch format {
	case FormatParquet:
		data, err := io.ReadAll(counted)
		if err != nil {
			return nil, &SourceError{Source: source, Err: err}
		}
		ds, err = ReadParquet(bytes.NewReader(data), int64(len(data)), source)
		if err != nil {
			return nil, err
		}
		cfg.stats.AddRows(uint64(ds.Len()))

	case FormatCSVGzip:
		gz, err := pgzip.NewReader(counted)
		if err != nil {
			return nil, &SourceError{Source: source, Err: errors.Wrap(err, "gzip")}
		}
		defer gz.Close()
		ds, err = parseCSV(gz, source, cfg)
		if err != nil {
			return nil, err
		}

	case FormatCSVZstd:
		zr, err := zstd.NewReader(counted)
		if err != nil {
			return nil, &SourceError{Source: source, Err: errors.Wrap(err, "zstd")}
		}
		defer zr.Close()
		ds, err = parseCSV(zr, source, cfg)
		if err != nil {
			return nil, err
		}

	default:
		ds, err = parseCSV(counted, source, cfg)
		if err != nil {
			return nil, err
		}
	}

	cfg.stats.Report(cfg.logger)
	return ds, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func openSource(ctx context.Context, source string, client *http.Client) (io.ReadCloser, error) {
	if !isRemote(source) {
		return os.Open(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP GET failed")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return resp.Body, nil
}

type countingReader struct {
	r     io.Reader
	stats *common.Stats
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.stats.AddBytes(uint64(n))
	return n, err
}

// =============================================================================
// CSV Parsing
// =============================================================================

// ParseCSV decodes a header-led CSV stream into a Dataset. Only the logger
// and stats options apply.
func ParseCSV(r io.Reader, source string, opts ...LoadOption) (*Dataset, error) {
	return parseCSV(r, source, applyLoadOptions(opts))
}

func parseCSV(r io.Reader, source string, cfg *loadConfig) (*Dataset, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	csvReader.ReuseRecord = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, &SchemaError{Source: source, Missing: append([]string{}, RequiredColumns...)}
	}
	if err != nil {
		return nil, &SourceError{Source: source, Err: errors.Wrap(err, "read header")}
	}

	cols := newColumnIndex(header)
	if missing := cols.missing(); len(missing) > 0 {
		return nil, &SchemaError{Source: source, Missing: missing}
	}

	ds := &Dataset{Source: source, Header: cols.names}
	errorCount := 0
	line := 1

	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, &SourceError{Source: source, Err: errors.Wrap(err, "read rows")}
			}
			cfg.stats.AddRows(1)
			cfg.stats.AddMalformed(1)
			errorCount++
			if errorCount <= MaxErrorsToLog {
				cfg.logger.Warn("CSV read error", zap.Int("line", line), zap.Error(err))
			}
			continue
		}

		cfg.stats.AddRows(1)
		rec, missing, ok := cols.parse(row)
		if !ok {
			cfg.stats.AddMalformed(1)
			errorCount++
			if errorCount <= MaxErrorsToLog {
				cfg.logger.Warn("malformed row dropped", zap.Int("line", line))
			}
			continue
		}
		cfg.stats.AddMissing(uint64(missing))
		ds.Records = append(ds.Records, rec)
	}

	if errorCount > MaxErrorsToLog {
		cfg.logger.Warn("parse errors suppressed", zap.Int("suppressed", errorCount-MaxErrorsToLog))
	}
	return ds, nil
}

// columnIndex maps header positions onto Record fields.
type columnIndex struct {
	names   []string
	numeric map[Field]int
	ints    map[string]int
	text    map[string]int
}

func newColumnIndex(header []string) *columnIndex {
	c := &columnIndex{
		names:   make([]string, len(header)),
		numeric: make(map[Field]int),
		ints:    make(map[string]int),
		text:    make(map[string]int),
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		c.names[i] = h

		switch {
		case IsNumeric(Field(h)):
			c.numeric[Field(h)] = i
		case h == ColumnNo || h == ColumnYear || h == ColumnMonth || h == ColumnDay || h == ColumnHour:
			c.ints[h] = i
		case h == ColumnSeason || h == ColumnWD || h == ColumnStation:
			c.text[h] = i
		}
	}
	return c
}

func (c *columnIndex) missing() []string {
	var out []string
	for _, req := range RequiredColumns {
		found := false
		for _, n := range c.names {
			if n == req {
				found = true
				break
			}
		}
		if !found {
			out = append(out, req)
		}
	}
	return out
}

// parse fills a Record from one row. It returns the number of missing
// numeric cells and false when no cell at all could be used.
func (c *columnIndex) parse(row []string) (Record, int, bool) {
	rec := newRecord()
	parsed, missing := 0, 0

	for f, i := range c.numeric {
		v, ok := parseMeasure(cell(row, i))
		if !ok {
			missing++
			continue
		}
		*rec.ptr(f) = v
		parsed++
	}

	for name, i := range c.ints {
		v, ok := parseInt(cell(row, i))
		if !ok {
			continue
		}
		parsed++
		switch name {
		case ColumnNo:
			rec.No = v
		case ColumnYear:
			rec.Year = v
		case ColumnMonth:
			if v >= 1 && v <= 12 {
				rec.Month = v
			}
		case ColumnDay:
			rec.Day = v
		case ColumnHour:
			rec.Hour = v
		}
	}

	for name, i := range c.text {
		s := strings.TrimSpace(cell(row, i))
		if s == "" {
			continue
		}
		switch name {
		case ColumnSeason:
			// Free text columns alone do not make a row; a known season does.
			if season, ok := ParseSeason(s); ok {
				rec.Season = season
				parsed++
			}
		case ColumnWD:
			rec.WD = s
		case ColumnStation:
			rec.Station = s
		}
	}

	return rec, missing, parsed > 0
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// =============================================================================
// Numeric Parsing Helpers
// =============================================================================

// parseMeasure accepts any finite float; empty, NA and garbage are missing.
func parseMeasure(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}

// parseInt accepts "2013" as well as "2013.0", which pandas writes for
// integer columns that once held NaN.
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
