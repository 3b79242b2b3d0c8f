package common

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats holds atomic counters for load telemetry
type Stats struct {
	TotalRowsRead  uint64 // Data rows seen by the CSV reader (header excluded)
	TotalBytesRead uint64 // Bytes read from the source before decompression
	MalformedRows  uint64 // Rows dropped as entirely malformed
	MissingValues  uint64 // Numeric cells that were empty or unparseable

	start time.Time
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// AddRows atomically increments the rows read counter
func (s *Stats) AddRows(count uint64) {
	atomic.AddUint64(&s.TotalRowsRead, count)
}

// AddBytes atomically increments the bytes read counter
func (s *Stats) AddBytes(count uint64) {
	atomic.AddUint64(&s.TotalBytesRead, count)
}

// AddMalformed atomically increments the dropped rows counter
func (s *Stats) AddMalformed(count uint64) {
	atomic.AddUint64(&s.MalformedRows, count)
}

// AddMissing atomically increments the missing cells counter
func (s *Stats) AddMissing(count uint64) {
	atomic.AddUint64(&s.MissingValues, count)
}

// GetTotalRows atomically reads the rows read counter
func (s *Stats) GetTotalRows() uint64 {
	return atomic.LoadUint64(&s.TotalRowsRead)
}

// GetTotalBytes atomically reads the bytes read counter
func (s *Stats) GetTotalBytes() uint64 {
	return atomic.LoadUint64(&s.TotalBytesRead)
}

// GetMalformed atomically reads the dropped rows counter
func (s *Stats) GetMalformed() uint64 {
	return atomic.LoadUint64(&s.MalformedRows)
}

// GetMissing atomically reads the missing cells counter
func (s *Stats) GetMissing() uint64 {
	return atomic.LoadUint64(&s.MissingValues)
}

// Report logs a one-line summary of the counters.
func (s *Stats) Report(logger *zap.Logger) {
	elapsed := time.Since(s.start)
	bytes := s.GetTotalBytes()

	mibPerSec := 0.0
	if elapsed.Seconds() > 0 {
		mibPerSec = (float64(bytes) / (1024 * 1024)) / elapsed.Seconds()
	}

	logger.Info("load complete",
		zap.Uint64("rows", s.GetTotalRows()),
		zap.Uint64("bytes", bytes),
		zap.Uint64("malformed_rows", s.GetMalformed()),
		zap.Uint64("missing_values", s.GetMissing()),
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
		zap.Float64("mib_per_sec", mibPerSec),
	)
}
