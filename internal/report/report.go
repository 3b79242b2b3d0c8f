// Package report assembles the air-quality views into a render-ready Report.
//
// Build is pure: it reads a *airquality.Dataset and returns plain values that
// the text writer, the PNG and XLSX renderers, and the ClickHouse sink consume.
// Nothing in here draws, prints or stores.
package report

import (
	"strconv"

	"github.com/go-faster/errors"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
)

// DefaultPreviewRows is the size of the dataset preview table.
const DefaultPreviewRows = 5

// ============================================================================
// VIEW TYPES
// ============================================================================

// Kind says how a presentation layer should draw a View.
type Kind string

const (
	KindTable   Kind = "table"
	KindScatter Kind = "scatter"
	KindBar     Kind = "bar"
	KindHeatmap Kind = "heatmap"
	KindLine    Kind = "line"
)

// View IDs, stable across runs. Renderers key file and sheet names off these.
const (
	ViewPreview     = "preview"
	ViewScatter     = "scatter_wspm_pm25"
	ViewSeasonal    = "seasonal_pm10"
	ViewCorrelation = "correlation"
	ViewMonthly     = "monthly_pm10"
)

// View is one display unit. Exactly one payload field is set, matching Kind.
type View struct {
	ID         string   `json:"id"`
	Kind       Kind     `json:"kind"`
	Title      string   `json:"title"`
	XAxis      string   `json:"xAxis,omitempty"`
	YAxis      string   `json:"yAxis,omitempty"`
	Commentary []string `json:"commentary"`

	// Note is set when the view could not be fully computed.
	Note string `json:"note,omitempty"`

	Table    *Table                        `json:"table,omitempty"`
	Scatter  *Scatter                      `json:"scatter,omitempty"`
	Seasonal *airquality.SeasonalSummary   `json:"seasonal,omitempty"`
	Heatmap  *airquality.CorrelationMatrix `json:"heatmap,omitempty"`
	Monthly  *airquality.MonthlySeries     `json:"monthly,omitempty"`
}

// Table is a header plus pre-formatted string rows.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Scatter holds the raw pairs and their Pearson coefficient.
type Scatter struct {
	X           airquality.Field   `json:"x"`
	Y           airquality.Field   `json:"y"`
	Points      []airquality.Point `json:"points"`
	Coefficient airquality.Stat    `json:"coefficient"`
}

// Report is the full dashboard in display order.
type Report struct {
	Title      string   `json:"title"`
	Source     string   `json:"source"`
	Records    int      `json:"records"`
	Questions  []string `json:"questions"`
	Views      []View   `json:"views"`
	Conclusion []string `json:"conclusion"`
}

// View returns the view with the given ID.
func (r *Report) View(id string) (*View, bool) {
	for i := range r.Views {
		if r.Views[i].ID == id {
			return &r.Views[i], true
		}
	}
	return nil, false
}

// ============================================================================
// OPTIONS
// ============================================================================

// Option configures Build.
type Option func(*config)

type config struct {
	previewRows int
	title       string
}

// WithPreviewRows sets the number of leading records in the preview table.
func WithPreviewRows(n int) Option {
	return func(c *config) {
		c.previewRows = n
	}
}

// WithTitle overrides the report title.
func WithTitle(title string) Option {
	return func(c *config) {
		c.title = title
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		previewRows: DefaultPreviewRows,
		title:       Title,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ============================================================================
// BUILD
// ============================================================================

// Build derives every view from ds. Statistics that cannot be computed are
// marked undefined on their view; they never fail the report.
func Build(ds *airquality.Dataset, opts ...Option) (*Report, error) {
	cfg := applyOptions(opts)

	r := &Report{
		Title:      cfg.title,
		Records:    ds.Len(),
		Questions:  append([]string{}, Questions...),
		Conclusion: append([]string{}, Conclusion...),
	}
	if ds != nil {
		r.Source = ds.Source
	}

	r.Views = append(r.Views, previewView(ds, cfg.previewRows))

	scatter, err := scatterView(ds)
	if err != nil {
		return nil, err
	}
	r.Views = append(r.Views, scatter)

	seasonal, err := airquality.ComputeSeasonalMeans(ds, airquality.FieldPM10)
	if err != nil {
		return nil, errors.Wrap(err, "seasonal means")
	}
	r.Views = append(r.Views, View{
		ID:         ViewSeasonal,
		Kind:       KindBar,
		Title:      "Average PM10 Concentration Levels by Season",
		XAxis:      "Season",
		YAxis:      "Average PM10 Concentration",
		Commentary: append([]string{}, SeasonalCommentary...),
		Note:       undefinedNote(seasonalUndefined(seasonal)),
		Seasonal:   &seasonal,
	})

	matrix, err := airquality.ComputeCorrelationMatrix(ds, airquality.CorrelationFields)
	if err != nil {
		return nil, errors.Wrap(err, "correlation matrix")
	}
	r.Views = append(r.Views, View{
		ID:         ViewCorrelation,
		Kind:       KindHeatmap,
		Title:      "Correlation Heatmap of Meteorological Variables",
		Commentary: append([]string{}, CorrelationCommentary...),
		Note:       undefinedNote(matrixUndefined(matrix)),
		Heatmap:    &matrix,
	})

	monthly, err := airquality.ComputeMonthlySeries(ds, airquality.FieldPM10)
	if err != nil {
		return nil, errors.Wrap(err, "monthly series")
	}
	r.Views = append(r.Views, View{
		ID:         ViewMonthly,
		Kind:       KindLine,
		Title:      "Monthly Average PM10 Levels Over Time",
		XAxis:      "Year-Month",
		YAxis:      "Average PM10 Levels",
		Commentary: append([]string{}, MonthlyCommentary...),
		Note:       undefinedNote(monthlyUndefined(monthly)),
		Monthly:    &monthly,
	})

	return r, nil
}

func previewView(ds *airquality.Dataset, n int) View {
	cols := previewColumns(ds)
	t := &Table{Columns: cols, Rows: [][]string{}}
	for _, rec := range airquality.Preview(ds, n) {
		t.Rows = append(t.Rows, previewRow(&rec, cols))
	}
	return View{
		ID:         ViewPreview,
		Kind:       KindTable,
		Title:      "Dataset Preview",
		Commentary: append([]string{}, DatasetInsight...),
		Table:      t,
	}
}

func scatterView(ds *airquality.Dataset) (View, error) {
	x, y := airquality.FieldWSPM, airquality.FieldPM25
	v := View{
		ID:         ViewScatter,
		Kind:       KindScatter,
		Title:      "Scatter Plot of PM2.5 vs Wind Speed (WSPM)",
		XAxis:      "Wind Speed (WSPM)",
		YAxis:      "PM2.5 Concentration",
		Commentary: append([]string{}, ScatterCommentary...),
	}

	coef, err := airquality.ComputeCorrelation(ds, x, y)
	switch {
	case errors.Is(err, airquality.ErrInsufficientData):
		v.Note = "correlation not computable: fewer than two complete pairs"
	case err != nil:
		return View{}, errors.Wrap(err, "scatter correlation")
	case !coef.Defined:
		v.Note = "correlation not computable: zero variance"
	}

	v.Scatter = &Scatter{
		X:           x,
		Y:           y,
		Points:      airquality.ScatterPairs(ds, x, y),
		Coefficient: coef,
	}
	return v, nil
}

// previewColumns keeps the source header order when known.
func previewColumns(ds *airquality.Dataset) []string {
	if ds != nil && len(ds.Header) > 0 {
		return append([]string{}, ds.Header...)
	}
	return append([]string{}, airquality.RequiredColumns...)
}

func previewRow(rec *airquality.Record, cols []string) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		row[i] = cellText(rec, c)
	}
	return row
}

// cellText formats one column of a record. Missing values print as "NaN",
// the way a dataframe preview shows them.
func cellText(rec *airquality.Record, col string) string {
	switch col {
	case airquality.ColumnNo:
		return strconv.Itoa(rec.No)
	case airquality.ColumnYear:
		return intText(rec.Year)
	case airquality.ColumnMonth:
		return intText(rec.Month)
	case airquality.ColumnDay:
		return intText(rec.Day)
	case airquality.ColumnHour:
		return strconv.Itoa(rec.Hour)
	case airquality.ColumnSeason:
		return string(rec.Season)
	case airquality.ColumnWD:
		return rec.WD
	case airquality.ColumnStation:
		return rec.Station
	}
	if v, ok := rec.Value(airquality.Field(col)); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "NaN"
}

func intText(v int) string {
	if v == 0 {
		return "NaN"
	}
	return strconv.Itoa(v)
}

// ============================================================================
// UNDEFINED MARKERS
// ============================================================================

func undefinedNote(n, total int) string {
	if n == 0 {
		return ""
	}
	if n == total {
		return "not computable: no usable values"
	}
	return strconv.Itoa(n) + " of " + strconv.Itoa(total) + " values not computable"
}

func seasonalUndefined(s airquality.SeasonalSummary) (int, int) {
	n := 0
	for _, m := range s.Means {
		if !m.Mean.Defined {
			n++
		}
	}
	return n, len(s.Means)
}

func matrixUndefined(m airquality.CorrelationMatrix) (int, int) {
	n, total := 0, 0
	for i := range m.Cells {
		for j := i; j < len(m.Cells[i]); j++ {
			total++
			if !m.Cells[i][j].Defined {
				n++
			}
		}
	}
	return n, total
}

func monthlyUndefined(s airquality.MonthlySeries) (int, int) {
	n := 0
	for _, p := range s.Points {
		if !p.Mean.Defined {
			n++
		}
	}
	return n, len(s.Points)
}
