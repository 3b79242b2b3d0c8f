// Package store writes observations and derived report views into ClickHouse.
//
// Raw observations go over the native columnar protocol (ch-go) in fixed-size
// blocks. The derived views are small and go through clickhouse-go batches.
// Every row written by one ingest carries the same run ID.
package store

import (
	"fmt"
)

// SchemaVersion is the current airquality schema version.
const SchemaVersion = 1

// Table names inside the configured database.
const (
	TableObservations = "observations"
	TableSeasonal     = "seasonal_means"
	TableMonthly      = "monthly_means"
	TableCorrelations = "correlations"
)

// Missing measurements in observations are stored as NaN; derived views use
// Nullable columns so an undefined statistic reads back as NULL.
const (
	observationsDDL = `CREATE TABLE IF NOT EXISTS %s.observations (
    run_id   UUID,
    no       Int32,
    year     UInt16,
    month    UInt8,
    day      UInt8,
    hour     UInt8,
    pm25     Float64,
    pm10     Float64,
    so2      Float64,
    no2      Float64,
    co       Float64,
    o3       Float64,
    temp     Float64,
    pres     Float64,
    dewp     Float64,
    rain     Float64,
    wspm     Float64,
    wd       LowCardinality(String),
    station  LowCardinality(String),
    season   LowCardinality(String)
) ENGINE = MergeTree
ORDER BY (station, year, month, day, hour)`

	seasonalDDL = `CREATE TABLE IF NOT EXISTS %s.seasonal_means (
    run_id      UUID,
    created_at  DateTime,
    source      String,
    field       LowCardinality(String),
    season      LowCardinality(String),
    mean        Nullable(Float64),
    count       UInt64
) ENGINE = MergeTree
ORDER BY (run_id, field, season)`

	monthlyDDL = `CREATE TABLE IF NOT EXISTS %s.monthly_means (
    run_id      UUID,
    created_at  DateTime,
    source      String,
    field       LowCardinality(String),
    year_month  String,
    mean        Nullable(Float64),
    count       UInt64
) ENGINE = MergeTree
ORDER BY (run_id, field, year_month)`

	correlationsDDL = `CREATE TABLE IF NOT EXISTS %s.correlations (
    run_id       UUID,
    created_at   DateTime,
    source       String,
    field_a      LowCardinality(String),
    field_b      LowCardinality(String),
    coefficient  Nullable(Float64)
) ENGINE = MergeTree
ORDER BY (run_id, field_a, field_b)`
)

// SchemaDDL returns the statements that create database and tables, in order.
func SchemaDDL(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(observationsDDL, database),
		fmt.Sprintf(seasonalDDL, database),
		fmt.Sprintf(monthlyDDL, database),
		fmt.Sprintf(correlationsDDL, database),
	}
}

// TableFQN qualifies a table with its database.
func TableFQN(database, table string) string {
	return fmt.Sprintf("%s.%s", database, table)
}
