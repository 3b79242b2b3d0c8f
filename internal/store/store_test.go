package store

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/common"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/report"
)

func sampleDataset() *airquality.Dataset {
	nan := math.NaN()
	mk := func(no, year, month int, season airquality.Season, wspm, pm25, pm10 float64) airquality.Record {
		return airquality.Record{
			No: no, Year: year, Month: month, Day: 1, Hour: no % 24,
			WSPM: wspm, PM25: pm25, PM10: pm10,
			SO2: nan, NO2: nan, CO: nan, O3: nan,
			TEMP: float64(month), PRES: 1010, DEWP: -float64(no), RAIN: 0,
			WD: "NW", Station: "Aotizhongxin", Season: season,
		}
	}
	return airquality.NewDataset("sample.csv", []airquality.Record{
		mk(1, 2013, 3, airquality.Spring, 1, 10, 200),
		mk(2, 2013, 3, airquality.Spring, 2, 8, nan),
		mk(3, 2013, 7, airquality.Summer, 3, 4, 50),
	})
}

func TestObservationBatch(t *testing.T) {
	ds := sampleDataset()
	run := NewRun(ds.Source)

	b := NewObservationBatch()
	for i := range ds.Records {
		b.AddRecord(run.ID, &ds.Records[i])
	}
	require.Equal(t, 3, b.Len())

	input := b.Input()
	require.Len(t, input, len(observationColumns))
	for i, col := range input {
		assert.Equal(t, observationColumns[i], col.Name)
		assert.Equal(t, 3, col.Data.Rows(), col.Name)
	}

	assert.Equal(t, run.ID, b.RunID.Row(0))
	assert.Equal(t, uint16(2013), b.Year.Row(0))
	assert.Equal(t, uint8(7), b.Month.Row(2))
	assert.Equal(t, 200.0, b.PM10.Row(0))
	assert.True(t, math.IsNaN(b.PM10.Row(1)), "missing stays NaN")
	assert.Equal(t, "Spring", b.Season.Row(1))
	assert.Equal(t, "Aotizhongxin", b.Station.Row(2))

	b.Reset()
	assert.Zero(t, b.Len())
	for _, col := range b.Input() {
		assert.Zero(t, col.Data.Rows(), col.Name)
	}
}

func TestObservationBatch_Clamp(t *testing.T) {
	b := NewObservationBatch()
	rec := airquality.Record{Year: -1, Month: 300, Day: 0, Hour: 23}
	b.AddRecord(uuid.Nil, &rec)

	assert.Equal(t, uint16(0), b.Year.Row(0))
	assert.Equal(t, uint8(255), b.Month.Row(0))
	assert.Equal(t, uint8(23), b.Hour.Row(0))
}

func TestInsertQuery(t *testing.T) {
	q := InsertQuery(TableFQN("airquality", TableObservations))
	assert.True(t, strings.HasPrefix(q, "INSERT INTO airquality.observations (run_id, no, year,"))
	assert.True(t, strings.HasSuffix(q, "station, season) VALUES"))
}

func TestSchemaDDL(t *testing.T) {
	ddl := SchemaDDL("aq_test")
	require.Len(t, ddl, 5)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS aq_test", ddl[0])

	for i, table := range []string{TableObservations, TableSeasonal, TableMonthly, TableCorrelations} {
		assert.Contains(t, ddl[i+1], "CREATE TABLE IF NOT EXISTS aq_test."+table+" (")
		assert.Contains(t, ddl[i+1], "ENGINE = MergeTree")
	}
	for _, col := range observationColumns {
		assert.Contains(t, ddl[1], "\n    "+col+" ", col)
	}
	assert.Contains(t, ddl[2], "mean        Nullable(Float64)")
}

func TestRowsFromReport(t *testing.T) {
	r, err := report.Build(sampleDataset())
	require.NoError(t, err)

	rows := RowsFromReport(r)

	spring, summer := 200.0, 50.0
	want := []SeasonalRow{
		{Field: "PM10", Season: "Winter", Mean: nil, Count: 0},
		{Field: "PM10", Season: "Spring", Mean: &spring, Count: 1},
		{Field: "PM10", Season: "Summer", Mean: &summer, Count: 1},
		{Field: "PM10", Season: "Fall", Mean: nil, Count: 0},
	}
	if diff := cmp.Diff(want, rows.Seasonal); diff != "" {
		t.Errorf("seasonal rows mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, rows.Monthly, 2)
	assert.Equal(t, "2013-03", rows.Monthly[0].YearMonth)
	assert.Equal(t, 200.0, *rows.Monthly[0].Mean)
	assert.Equal(t, uint64(1), rows.Monthly[0].Count)

	n := len(airquality.CorrelationFields)
	require.Len(t, rows.Correlations, n*n)
	assert.Equal(t, "WSPM", rows.Correlations[0].FieldA)
	assert.Equal(t, "WSPM", rows.Correlations[0].FieldB)
	assert.Equal(t, 1.0, *rows.Correlations[0].Coefficient)

	for _, c := range rows.Correlations {
		if c.FieldA == "RAIN" && c.FieldB == "WSPM" {
			assert.Nil(t, c.Coefficient, "zero variance is NULL")
		}
	}
	assert.Equal(t, 4+2+n*n, rows.Len())
}

func TestNewRun(t *testing.T) {
	a, b := NewRun("x"), NewRun("x")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "x", a.Source)
	assert.Zero(t, a.CreatedAt.Nanosecond())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.ClickHouseHost = "ch.local"
	cfg.ClickHousePort = 9440
	cfg.ClickHouseDatabase = "aq"

	opts := OptionsFromConfig(cfg, nil)
	assert.Equal(t, "ch.local:9440", opts.Addr)
	assert.Equal(t, "aq", opts.Database)
	assert.Zero(t, opts.BatchSize)
}
