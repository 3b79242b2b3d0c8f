// Package render draws report views as PNG charts and writes the whole
// report into an XLSX workbook.
package render

import (
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/report"
)

// ErrNoData means a view has nothing plottable (every value undefined, or no points).
var ErrNoData = errors.New("no plottable data")

const (
	chartWidth  = 1024
	chartHeight = 640

	// Monthly x-axis gets a label every this many points.
	monthlyTickStep = 6
)

var (
	barColor   = drawing.ColorFromHex("87CEEB") // skyblue
	pointColor = drawing.ColorFromHex("1F77B4")
)

// ChartFile returns the PNG file name for a view.
func ChartFile(viewID string) string {
	return viewID + ".png"
}

// WriteCharts renders every chartable view of r into dir and returns the
// paths written. Views without plottable data are skipped and logged.
func WriteCharts(dir string, r *report.Report, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create chart dir")
	}

	var written []string
	for i := range r.Views {
		v := &r.Views[i]
		render := chartFunc(v.Kind)
		if render == nil {
			continue
		}

		path := filepath.Join(dir, ChartFile(v.ID))
		err := writeFile(path, func(w io.Writer) error { return render(w, v) })
		if errors.Is(err, ErrNoData) {
			logger.Warn("chart skipped", zap.String("view", v.ID), zap.Error(err))
			continue
		}
		if err != nil {
			return written, errors.Wrapf(err, "render %s", v.ID)
		}
		written = append(written, path)
	}
	return written, nil
}

func chartFunc(k report.Kind) func(io.Writer, *report.View) error {
	switch k {
	case report.KindScatter:
		return RenderScatter
	case report.KindBar:
		return RenderSeasonal
	case report.KindLine:
		return RenderMonthly
	}
	return nil
}

// writeFile renders into a temp file and renames it into place, so a failed
// render never leaves a truncated PNG behind.
func writeFile(path string, fn func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "create")
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "close")
	}
	return os.Rename(tmp, path)
}

// =============================================================================
// Scatter
// =============================================================================

// RenderScatter draws the raw (x, y) pairs as dots.
func RenderScatter(w io.Writer, v *report.View) error {
	s := v.Scatter
	if s == nil || len(s.Points) == 0 {
		return ErrNoData
	}

	xs := make([]float64, len(s.Points))
	ys := make([]float64, len(s.Points))
	for i, p := range s.Points {
		xs[i], ys[i] = p.X, p.Y
	}

	title := v.Title
	if s.Coefficient.Defined {
		title += " (r = " + s.Coefficient.String() + ")"
	}

	graph := chart.Chart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.XAxis{Name: v.XAxis, Range: paddedRange(xs)},
		YAxis:      chart.YAxis{Name: v.YAxis, Range: paddedRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: string(s.Y),
				Style: chart.Style{
					StrokeColor: drawing.ColorTransparent,
					DotWidth:    2,
					DotColor:    pointColor.WithAlpha(128),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// =============================================================================
// Seasonal bar
// =============================================================================

// RenderSeasonal draws one bar per season with a defined mean. Undefined
// seasons are left out rather than drawn as zero.
func RenderSeasonal(w io.Writer, v *report.View) error {
	s := v.Seasonal
	if s == nil {
		return ErrNoData
	}

	var bars []chart.Value
	top := 0.0
	for _, m := range s.Means {
		if !m.Mean.Defined {
			continue
		}
		bars = append(bars, chart.Value{
			Label: string(m.Season),
			Value: m.Mean.Value,
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
		top = math.Max(top, m.Mean.Value)
	}
	if len(bars) == 0 {
		return ErrNoData
	}
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:      v.Title,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   120,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis: chart.YAxis{
			Name:  v.YAxis,
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

// =============================================================================
// Monthly line
// =============================================================================

// RenderMonthly draws the monthly means as a line with dot markers. Months
// with an undefined mean are skipped; x positions keep the key order.
func RenderMonthly(w io.Writer, v *report.View) error {
	s := v.Monthly
	if s == nil {
		return ErrNoData
	}

	xs, ys, ticks := monthlyPoints(s)
	if len(xs) == 0 {
		return ErrNoData
	}

	graph := chart.Chart{
		Title:      v.Title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:  v.XAxis,
			Range: monthlyRange(len(s.Points)),
			Ticks: ticks,
		},
		YAxis: chart.YAxis{Name: v.YAxis, Range: paddedRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: string(s.Field),
				Style: chart.Style{
					StrokeColor: pointColor,
					StrokeWidth: 2,
					DotWidth:    3,
					DotColor:    pointColor,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// monthlyPoints maps each defined month to its key position. Undefined
// months leave a gap; tick labels still cover every key.
func monthlyPoints(s *airquality.MonthlySeries) (xs, ys []float64, ticks []chart.Tick) {
	for i, p := range s.Points {
		if i%monthlyTickStep == 0 || i == len(s.Points)-1 {
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: p.Key})
		}
		if !p.Mean.Defined {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, p.Mean.Value)
	}
	return xs, ys, ticks
}

// monthlyRange spans n key positions with half a slot either side, so a
// single month still has a non-zero x range.
func monthlyRange(n int) *chart.ContinuousRange {
	return &chart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5}
}

// paddedRange returns an axis range around values with 5% headroom, widened
// to a unit interval when every value is the same.
func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if hi == lo {
		return &chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
