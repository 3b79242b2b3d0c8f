// Package airquality loads hourly PRSA air-quality observations and derives
// the descriptive views shown in the report: scatter pairs, seasonal means,
// a pairwise Pearson correlation matrix, and a monthly time series.
//
// Every derivation is a pure function of a *Dataset. Nothing here keeps
// package-level state; callers pass the dataset explicitly.
package airquality

import (
	"math"
	"strings"
)

// =============================================================================
// Fields
// =============================================================================

// Field names a numeric column of the source table, spelled as in the CSV header.
type Field string

const (
	FieldPM25 Field = "PM2.5"
	FieldPM10 Field = "PM10"
	FieldSO2  Field = "SO2"
	FieldNO2  Field = "NO2"
	FieldCO   Field = "CO"
	FieldO3   Field = "O3"
	FieldTEMP Field = "TEMP"
	FieldPRES Field = "PRES"
	FieldDEWP Field = "DEWP"
	FieldRAIN Field = "RAIN"
	FieldWSPM Field = "WSPM"
)

// Non-numeric and timestamp columns.
const (
	ColumnNo      = "No"
	ColumnYear    = "year"
	ColumnMonth   = "month"
	ColumnDay     = "day"
	ColumnHour    = "hour"
	ColumnSeason  = "season"
	ColumnWD      = "wd"
	ColumnStation = "station"
)

// NumericFields lists every numeric measurement column in table order.
var NumericFields = []Field{
	FieldPM25, FieldPM10, FieldSO2, FieldNO2, FieldCO, FieldO3,
	FieldTEMP, FieldPRES, FieldDEWP, FieldRAIN, FieldWSPM,
}

// CorrelationFields is the meteorological set used by the heatmap view.
var CorrelationFields = []Field{
	FieldWSPM, FieldPM25, FieldPM10, FieldTEMP, FieldPRES, FieldDEWP, FieldRAIN,
}

// RequiredColumns must all be present in the source header.
var RequiredColumns = []string{
	string(FieldWSPM), string(FieldPM25), string(FieldPM10),
	string(FieldTEMP), string(FieldPRES), string(FieldDEWP), string(FieldRAIN),
	ColumnSeason, ColumnYear, ColumnMonth,
}

// IsNumeric reports whether f is a known numeric field.
func IsNumeric(f Field) bool {
	for _, n := range NumericFields {
		if n == f {
			return true
		}
	}
	return false
}

// =============================================================================
// Seasons
// =============================================================================

// Season is one of the four meteorological categories assigned per record.
type Season string

const (
	Winter Season = "Winter"
	Spring Season = "Spring"
	Summer Season = "Summer"
	Fall   Season = "Fall"
)

// Seasons is the fixed display order.
var Seasons = []Season{Winter, Spring, Summer, Fall}

// ParseSeason normalises a season label. "autumn" is accepted as Fall.
func ParseSeason(s string) (Season, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "winter":
		return Winter, true
	case "spring":
		return Spring, true
	case "summer":
		return Summer, true
	case "fall", "autumn":
		return Fall, true
	}
	return "", false
}

// =============================================================================
// Record
// =============================================================================

// Record is one hourly observation. Missing numeric values are NaN; a missing
// year or month is 0. Records are never modified after loading.
type Record struct {
	No    int `ch:"no"`
	Year  int `ch:"year"`
	Month int `ch:"month"`
	Day   int `ch:"day"`
	Hour  int `ch:"hour"`

	PM25 float64 `ch:"pm25"`
	PM10 float64 `ch:"pm10"`
	SO2  float64 `ch:"so2"`
	NO2  float64 `ch:"no2"`
	CO   float64 `ch:"co"`
	O3   float64 `ch:"o3"`

	TEMP float64 `ch:"temp"`
	PRES float64 `ch:"pres"`
	DEWP float64 `ch:"dewp"`
	RAIN float64 `ch:"rain"`
	WSPM float64 `ch:"wspm"`

	WD      string `ch:"wd"`      // Wind direction (N, NNE, ...)
	Station string `ch:"station"` // Monitoring station name
	Season  Season `ch:"season"`  // Empty when the label was not recognised
}

// Value returns the value of a numeric field and whether it is present.
func (r *Record) Value(f Field) (float64, bool) {
	p := r.ptr(f)
	if p == nil || math.IsNaN(*p) {
		return math.NaN(), false
	}
	return *p, true
}

// ptr maps a field onto its storage; used by the loader to fill a Record.
func (r *Record) ptr(f Field) *float64 {
	switch f {
	case FieldPM25:
		return &r.PM25
	case FieldPM10:
		return &r.PM10
	case FieldSO2:
		return &r.SO2
	case FieldNO2:
		return &r.NO2
	case FieldCO:
		return &r.CO
	case FieldO3:
		return &r.O3
	case FieldTEMP:
		return &r.TEMP
	case FieldPRES:
		return &r.PRES
	case FieldDEWP:
		return &r.DEWP
	case FieldRAIN:
		return &r.RAIN
	case FieldWSPM:
		return &r.WSPM
	}
	return nil
}

// YearMonth returns the YYYY-MM grouping key, or "" when year or month is missing.
func (r *Record) YearMonth() string {
	if r.Year <= 0 || r.Month < 1 || r.Month > 12 {
		return ""
	}
	return yearMonthKey(r.Year, r.Month)
}

// newRecord returns a Record with every numeric field missing.
func newRecord() Record {
	nan := math.NaN()
	return Record{
		PM25: nan, PM10: nan, SO2: nan, NO2: nan, CO: nan, O3: nan,
		TEMP: nan, PRES: nan, DEWP: nan, RAIN: nan, WSPM: nan,
	}
}

// =============================================================================
// Dataset
// =============================================================================

// Dataset is the loaded table in file order. It is read-only input to every
// derivation.
type Dataset struct {
	Source  string   // Where the data came from
	Header  []string // Column names as they appeared in the source
	Records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

func (d *Dataset) rows() []Record {
	if d == nil {
		return nil
	}
	return d.Records
}

// HasColumn reports whether the source header contained name.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	for _, h := range d.Header {
		if h == name {
			return true
		}
	}
	return false
}

// NewDataset wraps already-built records, e.g. for tests or in-memory sources.
func NewDataset(source string, records []Record) *Dataset {
	header := append([]string{}, RequiredColumns...)
	return &Dataset{Source: source, Header: header, Records: records}
}
