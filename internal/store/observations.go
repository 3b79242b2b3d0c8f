package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
)

// DefaultBatchSize is the number of observations per native insert block.
const DefaultBatchSize = 50000

// observationColumns is the insert column order; it matches Input().
var observationColumns = []string{
	"run_id", "no", "year", "month", "day", "hour",
	"pm25", "pm10", "so2", "no2", "co", "o3",
	"temp", "pres", "dewp", "rain", "wspm",
	"wd", "station", "season",
}

// ObservationBatch holds column data for native insert.
type ObservationBatch struct {
	RunID *proto.ColUUID
	No    *proto.ColInt32
	Year  *proto.ColUInt16
	Month *proto.ColUInt8
	Day   *proto.ColUInt8
	Hour  *proto.ColUInt8

	PM25 *proto.ColFloat64
	PM10 *proto.ColFloat64
	SO2  *proto.ColFloat64
	NO2  *proto.ColFloat64
	CO   *proto.ColFloat64
	O3   *proto.ColFloat64
	TEMP *proto.ColFloat64
	PRES *proto.ColFloat64
	DEWP *proto.ColFloat64
	RAIN *proto.ColFloat64
	WSPM *proto.ColFloat64

	WD      *proto.ColStr
	Station *proto.ColStr
	Season  *proto.ColStr
}

func NewObservationBatch() *ObservationBatch {
	return &ObservationBatch{
		RunID:   new(proto.ColUUID),
		No:      new(proto.ColInt32),
		Year:    new(proto.ColUInt16),
		Month:   new(proto.ColUInt8),
		Day:     new(proto.ColUInt8),
		Hour:    new(proto.ColUInt8),
		PM25:    new(proto.ColFloat64),
		PM10:    new(proto.ColFloat64),
		SO2:     new(proto.ColFloat64),
		NO2:     new(proto.ColFloat64),
		CO:      new(proto.ColFloat64),
		O3:      new(proto.ColFloat64),
		TEMP:    new(proto.ColFloat64),
		PRES:    new(proto.ColFloat64),
		DEWP:    new(proto.ColFloat64),
		RAIN:    new(proto.ColFloat64),
		WSPM:    new(proto.ColFloat64),
		WD:      new(proto.ColStr),
		Station: new(proto.ColStr),
		Season:  new(proto.ColStr),
	}
}

func (b *ObservationBatch) Reset() {
	b.RunID.Reset()
	b.No.Reset()
	b.Year.Reset()
	b.Month.Reset()
	b.Day.Reset()
	b.Hour.Reset()
	b.PM25.Reset()
	b.PM10.Reset()
	b.SO2.Reset()
	b.NO2.Reset()
	b.CO.Reset()
	b.O3.Reset()
	b.TEMP.Reset()
	b.PRES.Reset()
	b.DEWP.Reset()
	b.RAIN.Reset()
	b.WSPM.Reset()
	b.WD.Reset()
	b.Station.Reset()
	b.Season.Reset()
}

func (b *ObservationBatch) Len() int {
	return b.RunID.Rows()
}

func (b *ObservationBatch) Input() proto.Input {
	return proto.Input{
		{Name: "run_id", Data: b.RunID},
		{Name: "no", Data: b.No},
		{Name: "year", Data: b.Year},
		{Name: "month", Data: b.Month},
		{Name: "day", Data: b.Day},
		{Name: "hour", Data: b.Hour},
		{Name: "pm25", Data: b.PM25},
		{Name: "pm10", Data: b.PM10},
		{Name: "so2", Data: b.SO2},
		{Name: "no2", Data: b.NO2},
		{Name: "co", Data: b.CO},
		{Name: "o3", Data: b.O3},
		{Name: "temp", Data: b.TEMP},
		{Name: "pres", Data: b.PRES},
		{Name: "dewp", Data: b.DEWP},
		{Name: "rain", Data: b.RAIN},
		{Name: "wspm", Data: b.WSPM},
		{Name: "wd", Data: b.WD},
		{Name: "station", Data: b.Station},
		{Name: "season", Data: b.Season},
	}
}

// AddRecord appends one observation. Missing measurements stay NaN.
func (b *ObservationBatch) AddRecord(runID uuid.UUID, r *airquality.Record) {
	b.RunID.Append(runID)
	b.No.Append(int32(r.No))
	b.Year.Append(clampUint16(r.Year))
	b.Month.Append(clampUint8(r.Month))
	b.Day.Append(clampUint8(r.Day))
	b.Hour.Append(clampUint8(r.Hour))
	b.PM25.Append(r.PM25)
	b.PM10.Append(r.PM10)
	b.SO2.Append(r.SO2)
	b.NO2.Append(r.NO2)
	b.CO.Append(r.CO)
	b.O3.Append(r.O3)
	b.TEMP.Append(r.TEMP)
	b.PRES.Append(r.PRES)
	b.DEWP.Append(r.DEWP)
	b.RAIN.Append(r.RAIN)
	b.WSPM.Append(r.WSPM)
	b.WD.Append(r.WD)
	b.Station.Append(r.Station)
	b.Season.Append(string(r.Season))
}

// InsertQuery is the native INSERT body for this batch layout.
func InsertQuery(tableFQN string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES", tableFQN, strings.Join(observationColumns, ", "))
}

func flushBatch(ctx context.Context, conn *ch.Client, tableFQN string, batch *ObservationBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	return conn.Do(ctx, ch.Query{
		Body:  InsertQuery(tableFQN),
		Input: batch.Input(),
	})
}

func clampUint8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}
