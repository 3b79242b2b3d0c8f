package airquality

import (
	"io"
	"math"

	"github.com/go-faster/errors"
	"github.com/parquet-go/parquet-go"
)

// ParquetBatchSize is the number of rows moved per Read/Write call.
const ParquetBatchSize = 4096

// ParquetRecord matches the parquet schema written by WriteParquet. Optional
// measurements are nil when missing.
type ParquetRecord struct {
	No      int32    `parquet:"no"`
	Year    int32    `parquet:"year"`
	Month   int32    `parquet:"month"`
	Day     int32    `parquet:"day"`
	Hour    int32    `parquet:"hour"`
	PM25    *float64 `parquet:"pm25,optional"`
	PM10    *float64 `parquet:"pm10,optional"`
	SO2     *float64 `parquet:"so2,optional"`
	NO2     *float64 `parquet:"no2,optional"`
	CO      *float64 `parquet:"co,optional"`
	O3      *float64 `parquet:"o3,optional"`
	TEMP    *float64 `parquet:"temp,optional"`
	PRES    *float64 `parquet:"pres,optional"`
	DEWP    *float64 `parquet:"dewp,optional"`
	RAIN    *float64 `parquet:"rain,optional"`
	WSPM    *float64 `parquet:"wspm,optional"`
	WD      string   `parquet:"wd"`
	Station string   `parquet:"station"`
	Season  string   `parquet:"season"`
}

// parquetColumns maps source header names onto parquet column names.
var parquetColumns = map[string]string{
	string(FieldPM25): "pm25",
	string(FieldPM10): "pm10",
	string(FieldSO2):  "so2",
	string(FieldNO2):  "no2",
	string(FieldCO):   "co",
	string(FieldO3):   "o3",
	string(FieldTEMP): "temp",
	string(FieldPRES): "pres",
	string(FieldDEWP): "dewp",
	string(FieldRAIN): "rain",
	string(FieldWSPM): "wspm",
	ColumnNo:          "no",
	ColumnYear:        "year",
	ColumnMonth:       "month",
	ColumnDay:         "day",
	ColumnHour:        "hour",
	ColumnSeason:      "season",
	ColumnWD:          "wd",
	ColumnStation:     "station",
}

// headerOrder is the column order used for Dataset.Header on parquet input.
var headerOrder = []string{
	ColumnNo, ColumnYear, ColumnMonth, ColumnDay, ColumnHour,
	string(FieldPM25), string(FieldPM10), string(FieldSO2), string(FieldNO2), string(FieldCO), string(FieldO3),
	string(FieldTEMP), string(FieldPRES), string(FieldDEWP), string(FieldRAIN),
	ColumnWD, string(FieldWSPM), ColumnStation, ColumnSeason,
}

// ReadParquet decodes a parquet file written by WriteParquet (or any file
// with the same column names).
func ReadParquet(r io.ReaderAt, size int64, source string) (*Dataset, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, &SourceError{Source: source, Err: errors.Wrap(err, "parquet open")}
	}

	schema := pf.Schema()
	var missing []string
	for _, req := range RequiredColumns {
		if _, ok := schema.Lookup(parquetColumns[req]); !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Source: source, Missing: missing}
	}

	ds := &Dataset{Source: source}
	for _, h := range headerOrder {
		if _, ok := schema.Lookup(parquetColumns[h]); ok {
			ds.Header = append(ds.Header, h)
		}
	}

	reader := parquet.NewGenericReader[ParquetRecord](pf)
	defer reader.Close()

	rows := make([]ParquetRecord, ParquetBatchSize)
	for {
		n, err := reader.Read(rows)
		for i := 0; i < n; i++ {
			ds.Records = append(ds.Records, rows[i].toRecord())
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SourceError{Source: source, Err: errors.Wrap(err, "parquet read")}
		}
		if n == 0 {
			break
		}
	}
	return ds, nil
}

// WriteParquet encodes every record of ds. It returns the number of rows written.
func WriteParquet(w io.Writer, ds *Dataset) (int, error) {
	writer := parquet.NewGenericWriter[ParquetRecord](w)

	total := 0
	batch := make([]ParquetRecord, 0, ParquetBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := writer.Write(batch)
		total += n
		batch = batch[:0]
		return err
	}

	recs := ds.rows()
	for i := range recs {
		batch = append(batch, toParquet(&recs[i]))
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return total, errors.Wrap(err, "parquet write")
			}
		}
	}
	if err := flush(); err != nil {
		return total, errors.Wrap(err, "parquet write")
	}
	if err := writer.Close(); err != nil {
		return total, errors.Wrap(err, "parquet close")
	}
	return total, nil
}

func toParquet(r *Record) ParquetRecord {
	return ParquetRecord{
		No:      int32(r.No),
		Year:    int32(r.Year),
		Month:   int32(r.Month),
		Day:     int32(r.Day),
		Hour:    int32(r.Hour),
		PM25:    optional(r.PM25),
		PM10:    optional(r.PM10),
		SO2:     optional(r.SO2),
		NO2:     optional(r.NO2),
		CO:      optional(r.CO),
		O3:      optional(r.O3),
		TEMP:    optional(r.TEMP),
		PRES:    optional(r.PRES),
		DEWP:    optional(r.DEWP),
		RAIN:    optional(r.RAIN),
		WSPM:    optional(r.WSPM),
		WD:      r.WD,
		Station: r.Station,
		Season:  string(r.Season),
	}
}

func (p ParquetRecord) toRecord() Record {
	season, _ := ParseSeason(p.Season)
	return Record{
		No:      int(p.No),
		Year:    int(p.Year),
		Month:   int(p.Month),
		Day:     int(p.Day),
		Hour:    int(p.Hour),
		PM25:    orNaN(p.PM25),
		PM10:    orNaN(p.PM10),
		SO2:     orNaN(p.SO2),
		NO2:     orNaN(p.NO2),
		CO:      orNaN(p.CO),
		O3:      orNaN(p.O3),
		TEMP:    orNaN(p.TEMP),
		PRES:    orNaN(p.PRES),
		DEWP:    orNaN(p.DEWP),
		RAIN:    orNaN(p.RAIN),
		WSPM:    orNaN(p.WSPM),
		WD:      p.WD,
		Station: p.Station,
		Season:  season,
	}
}

func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
