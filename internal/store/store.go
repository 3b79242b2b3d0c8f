package store

import (
	"context"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/common"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/report"
)

// Options configures Open.
type Options struct {
	Addr      string // host:port, native protocol
	Database  string
	Username  string
	Password  string
	BatchSize int // observations per native block; 0 means DefaultBatchSize
	Logger    *zap.Logger
}

// OptionsFromConfig maps the shared config onto store options.
func OptionsFromConfig(cfg *common.Config, logger *zap.Logger) Options {
	return Options{
		Addr:     cfg.ClickHouseAddr(),
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	}
}

// Store holds one native ch-go client for bulk observation inserts and one
// clickhouse-go connection for DDL and the derived-view batches.
type Store struct {
	native    *ch.Client
	conn      driver.Conn
	database  string
	batchSize int
	logger    *zap.Logger
}

// Open dials both connections and pings the server. Tables are addressed as
// database.table, so the database itself need not exist yet.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	opts.Logger.Info("connecting to clickhouse", zap.String("addr", opts.Addr))
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 300,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:     10 * time.Second,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, errors.Wrap(err, "clickhouse open")
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "clickhouse ping")
	}

	native, err := ch.Dial(ctx, ch.Options{
		Address:     opts.Addr,
		User:        opts.Username,
		Password:    opts.Password,
		Compression: ch.CompressionLZ4,
	})
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "clickhouse native dial")
	}

	return &Store{
		native:    native,
		conn:      conn,
		database:  opts.Database,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}, nil
}

// Close releases both connections.
func (s *Store) Close() error {
	nerr := s.native.Close()
	cerr := s.conn.Close()
	if nerr != nil {
		return errors.Wrap(nerr, "close native")
	}
	if cerr != nil {
		return errors.Wrap(cerr, "close conn")
	}
	return nil
}

// EnsureSchema creates the database and tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range SchemaDDL(s.database) {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	s.logger.Info("schema ready", zap.String("database", s.database), zap.Int("version", SchemaVersion))
	return nil
}

// Truncate empties the observations table.
func (s *Store) Truncate(ctx context.Context) error {
	fqn := TableFQN(s.database, TableObservations)
	if err := s.conn.Exec(ctx, "TRUNCATE TABLE "+fqn); err != nil {
		return errors.Wrapf(err, "truncate %s", fqn)
	}
	return nil
}

// InsertObservations streams every record of ds in blocks of BatchSize.
// It returns the number of rows sent.
func (s *Store) InsertObservations(ctx context.Context, run Run, ds *airquality.Dataset) (int, error) {
	fqn := TableFQN(s.database, TableObservations)
	batch := NewObservationBatch()
	sent := 0

	for i := range ds.Records {
		batch.AddRecord(run.ID, &ds.Records[i])
		if batch.Len() >= s.batchSize {
			if err := flushBatch(ctx, s.native, fqn, batch); err != nil {
				return sent, errors.Wrap(err, "insert observations")
			}
			sent += batch.Len()
			s.logger.Debug("block sent", zap.Int("rows", batch.Len()), zap.Int("total", sent))
			batch.Reset()
		}
	}
	if err := flushBatch(ctx, s.native, fqn, batch); err != nil {
		return sent, errors.Wrap(err, "insert observations")
	}
	sent += batch.Len()
	return sent, nil
}

// InsertReport writes the seasonal, monthly and correlation rows of r.
func (s *Store) InsertReport(ctx context.Context, run Run, r *report.Report) (DerivedRows, error) {
	rows := RowsFromReport(r)

	err := s.sendBatch(ctx, TableSeasonal, len(rows.Seasonal), func(b driver.Batch, i int) error {
		row := rows.Seasonal[i]
		return b.Append(run.ID, run.CreatedAt, run.Source, row.Field, row.Season, row.Mean, row.Count)
	})
	if err != nil {
		return rows, err
	}

	err = s.sendBatch(ctx, TableMonthly, len(rows.Monthly), func(b driver.Batch, i int) error {
		row := rows.Monthly[i]
		return b.Append(run.ID, run.CreatedAt, run.Source, row.Field, row.YearMonth, row.Mean, row.Count)
	})
	if err != nil {
		return rows, err
	}

	err = s.sendBatch(ctx, TableCorrelations, len(rows.Correlations), func(b driver.Batch, i int) error {
		row := rows.Correlations[i]
		return b.Append(run.ID, run.CreatedAt, run.Source, row.FieldA, row.FieldB, row.Coefficient)
	})
	return rows, err
}

func (s *Store) sendBatch(ctx context.Context, table string, n int, appendRow func(driver.Batch, int) error) error {
	if n == 0 {
		return nil
	}
	fqn := TableFQN(s.database, table)
	b, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+fqn)
	if err != nil {
		return errors.Wrapf(err, "prepare %s", fqn)
	}
	for i := 0; i < n; i++ {
		if err := appendRow(b, i); err != nil {
			_ = b.Abort()
			return errors.Wrapf(err, "append %s row %d", fqn, i)
		}
	}
	if err := b.Send(); err != nil {
		return errors.Wrapf(err, "send %s", fqn)
	}
	s.logger.Info("rows inserted", zap.String("table", fqn), zap.Int("rows", n))
	return nil
}
