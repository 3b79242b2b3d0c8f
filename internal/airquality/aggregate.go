package airquality

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-faster/errors"
)

// =============================================================================
// Result types
// =============================================================================

// Point is one (x, y) pair for a scatter view.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SeasonMean is the mean of a field over one season.
type SeasonMean struct {
	Season Season `json:"season"`
	Mean   Stat   `json:"mean"`
	Count  int    `json:"count"` // Non-missing values that went into Mean
}

// SeasonalSummary holds exactly one entry per season in Seasons order.
type SeasonalSummary struct {
	Field Field        `json:"field"`
	Means []SeasonMean `json:"means"`
}

// Get returns the mean for a season, Undefined if the season is unknown.
func (s SeasonalSummary) Get(season Season) Stat {
	for _, m := range s.Means {
		if m.Season == season {
			return m.Mean
		}
	}
	return Undefined()
}

// CorrelationMatrix is a symmetric matrix of Pearson coefficients indexed by Fields.
type CorrelationMatrix struct {
	Fields []Field  `json:"fields"`
	Cells  [][]Stat `json:"cells"`
}

// At returns the coefficient for (a, b). ok is false when either field is not in the matrix.
func (m CorrelationMatrix) At(a, b Field) (Stat, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return Undefined(), false
	}
	return m.Cells[i][j], true
}

func (m CorrelationMatrix) index(f Field) int {
	for i, g := range m.Fields {
		if g == f {
			return i
		}
	}
	return -1
}

// MonthlyPoint is the mean of a field for one YYYY-MM key.
type MonthlyPoint struct {
	Key   string `json:"key"`
	Mean  Stat   `json:"mean"`
	Count int    `json:"count"`
}

// MonthlySeries is ordered ascending by Key.
type MonthlySeries struct {
	Field  Field          `json:"field"`
	Points []MonthlyPoint `json:"points"`
}

// =============================================================================
// Correlation
// =============================================================================

// ComputeCorrelation returns the Pearson coefficient of x and y using
// pairwise deletion: only records where both values are present count.
//
// Fewer than two complete pairs is ErrInsufficientData. Zero variance in
// either field yields Undefined with a nil error.
func ComputeCorrelation(ds *Dataset, x, y Field) (Stat, error) {
	if !IsNumeric(x) {
		return Undefined(), unknownField(x)
	}
	if !IsNumeric(y) {
		return Undefined(), unknownField(y)
	}

	pairs := ScatterPairs(ds, x, y)
	if len(pairs) < 2 {
		return Undefined(), errors.Wrapf(ErrInsufficientData, "correlation %s/%s: %d complete pair(s)",
			x, y, len(pairs))
	}
	return pearson(pairs), nil
}

// pearson uses the two-pass formulation: means first, then centred sums.
// A constant side is Undefined even when its mean is not exact in binary.
func pearson(pairs []Point) Stat {
	constX, constY := true, true
	for _, p := range pairs[1:] {
		constX = constX && p.X == pairs[0].X
		constY = constY && p.Y == pairs[0].Y
	}
	if constX || constY {
		return Undefined()
	}

	n := float64(len(pairs))
	var sumX, sumY float64
	for _, p := range pairs {
		sumX += p.X
		sumY += p.Y
	}
	meanX, meanY := sumX/n, sumY/n

	var sxy, sxx, syy float64
	for _, p := range pairs {
		dx, dy := p.X-meanX, p.Y-meanY
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return Undefined()
	}

	r := sxy / math.Sqrt(sxx*syy)
	// Rounding can push |r| a hair past 1.
	return Defined(math.Max(-1, math.Min(1, r)))
}

// ComputeCorrelationMatrix correlates every unordered pair of fields.
// Self-pairs are 1.0 when the field has any value, else Undefined. Pairs
// without enough data are Undefined; they do not fail the matrix.
func ComputeCorrelationMatrix(ds *Dataset, fields []Field) (CorrelationMatrix, error) {
	for _, f := range fields {
		if !IsNumeric(f) {
			return CorrelationMatrix{}, unknownField(f)
		}
	}

	n := len(fields)
	m := CorrelationMatrix{
		Fields: append([]Field{}, fields...),
		Cells:  make([][]Stat, n),
	}
	for i := range m.Cells {
		m.Cells[i] = make([]Stat, n)
	}

	for i := 0; i < n; i++ {
		if countPresent(ds, fields[i]) > 0 {
			m.Cells[i][i] = Defined(1)
		} else {
			m.Cells[i][i] = Undefined()
		}

		for j := i + 1; j < n; j++ {
			r, err := ComputeCorrelation(ds, fields[i], fields[j])
			if err != nil {
				r = Undefined()
			}
			m.Cells[i][j] = r
			m.Cells[j][i] = r
		}
	}
	return m, nil
}

// =============================================================================
// Means
// =============================================================================

// Mean averages the non-missing values of field over the whole dataset.
func Mean(ds *Dataset, field Field) (Stat, error) {
	if !IsNumeric(field) {
		return Undefined(), unknownField(field)
	}
	var acc meanAcc
	recs := ds.rows()
	for i := range recs {
		if v, ok := recs[i].Value(field); ok {
			acc.add(v)
		}
	}
	return acc.stat(), nil
}

// ComputeSeasonalMeans groups by season and averages field, skipping missing
// values. The result always has four entries in Seasons order; a season with
// no values is Undefined.
func ComputeSeasonalMeans(ds *Dataset, field Field) (SeasonalSummary, error) {
	if !IsNumeric(field) {
		return SeasonalSummary{}, unknownField(field)
	}

	acc := make(map[Season]*meanAcc, len(Seasons))
	for _, s := range Seasons {
		acc[s] = &meanAcc{}
	}
	recs := ds.rows()
	for i := range recs {
		r := &recs[i]
		a, ok := acc[r.Season]
		if !ok {
			continue
		}
		if v, ok := r.Value(field); ok {
			a.add(v)
		}
	}

	out := SeasonalSummary{Field: field, Means: make([]SeasonMean, 0, len(Seasons))}
	for _, s := range Seasons {
		out.Means = append(out.Means, SeasonMean{
			Season: s,
			Mean:   acc[s].stat(),
			Count:  acc[s].n,
		})
	}
	return out, nil
}

// ComputeMonthlySeries groups by YYYY-MM and averages field, skipping missing
// values. Records with no year or month are left out. Keys are sorted
// ascending; the zero-padded month makes lexicographic order chronological.
func ComputeMonthlySeries(ds *Dataset, field Field) (MonthlySeries, error) {
	if !IsNumeric(field) {
		return MonthlySeries{}, unknownField(field)
	}

	acc := make(map[string]*meanAcc)
	recs := ds.rows()
	for i := range recs {
		r := &recs[i]
		key := r.YearMonth()
		if key == "" {
			continue
		}
		a, ok := acc[key]
		if !ok {
			a = &meanAcc{}
			acc[key] = a
		}
		if v, ok := r.Value(field); ok {
			a.add(v)
		}
	}

	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := MonthlySeries{Field: field, Points: make([]MonthlyPoint, 0, len(keys))}
	for _, k := range keys {
		out.Points = append(out.Points, MonthlyPoint{Key: k, Mean: acc[k].stat(), Count: acc[k].n})
	}
	return out, nil
}

// =============================================================================
// Raw views
// =============================================================================

// ScatterPairs returns (x, y) for every record where both are present, in file order.
func ScatterPairs(ds *Dataset, x, y Field) []Point {
	pairs := make([]Point, 0, ds.Len())
	recs := ds.rows()
	for i := range recs {
		r := &recs[i]
		xv, ok := r.Value(x)
		if !ok {
			continue
		}
		yv, ok := r.Value(y)
		if !ok {
			continue
		}
		pairs = append(pairs, Point{X: xv, Y: yv})
	}
	return pairs
}

// Preview returns up to n leading records. The slice is a copy.
func Preview(ds *Dataset, n int) []Record {
	if n <= 0 {
		return nil
	}
	if n > ds.Len() {
		n = ds.Len()
	}
	return append([]Record{}, ds.rows()[:n]...)
}

// =============================================================================
// Helpers
// =============================================================================

type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v float64) {
	a.sum += v
	a.n++
}

func (a *meanAcc) stat() Stat {
	if a.n == 0 {
		return Undefined()
	}
	return Defined(a.sum / float64(a.n))
}

func countPresent(ds *Dataset, f Field) int {
	n := 0
	recs := ds.rows()
	for i := range recs {
		if _, ok := recs[i].Value(f); ok {
			n++
		}
	}
	return n
}

func yearMonthKey(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}
