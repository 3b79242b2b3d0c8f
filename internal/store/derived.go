package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/report"
)

// Run identifies one ingest. Every derived row repeats it.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Source    string
}

// NewRun starts a run with a fresh random ID.
func NewRun(source string) Run {
	return Run{ID: uuid.New(), CreatedAt: time.Now().UTC().Truncate(time.Second), Source: source}
}

// SeasonalRow is one row of seasonal_means.
type SeasonalRow struct {
	Field  string
	Season string
	Mean   *float64 // nil when undefined
	Count  uint64
}

// MonthlyRow is one row of monthly_means.
type MonthlyRow struct {
	Field     string
	YearMonth string
	Mean      *float64
	Count     uint64
}

// CorrelationRow is one cell of the correlation matrix.
type CorrelationRow struct {
	FieldA      string
	FieldB      string
	Coefficient *float64
}

// DerivedRows holds the rows written for one report.
type DerivedRows struct {
	Seasonal     []SeasonalRow
	Monthly      []MonthlyRow
	Correlations []CorrelationRow
}

// Len is the total row count.
func (d DerivedRows) Len() int {
	return len(d.Seasonal) + len(d.Monthly) + len(d.Correlations)
}

// RowsFromReport flattens the seasonal, monthly and correlation views of r.
// The full matrix is written, both triangles and the diagonal.
func RowsFromReport(r *report.Report) DerivedRows {
	var out DerivedRows
	for i := range r.Views {
		v := &r.Views[i]
		switch {
		case v.Seasonal != nil:
			for _, m := range v.Seasonal.Means {
				out.Seasonal = append(out.Seasonal, SeasonalRow{
					Field:  string(v.Seasonal.Field),
					Season: string(m.Season),
					Mean:   nullable(m.Mean),
					Count:  uint64(m.Count),
				})
			}
		case v.Monthly != nil:
			for _, p := range v.Monthly.Points {
				out.Monthly = append(out.Monthly, MonthlyRow{
					Field:     string(v.Monthly.Field),
					YearMonth: p.Key,
					Mean:      nullable(p.Mean),
					Count:     uint64(p.Count),
				})
			}
		case v.Heatmap != nil:
			m := v.Heatmap
			for ai, a := range m.Fields {
				for bi, b := range m.Fields {
					out.Correlations = append(out.Correlations, CorrelationRow{
						FieldA:      string(a),
						FieldB:      string(b),
						Coefficient: nullable(m.Cells[ai][bi]),
					})
				}
			}
		}
	}
	return out
}

func nullable(s airquality.Stat) *float64 {
	if !s.Defined {
		return nil
	}
	v := s.Value
	return &v
}
