package airquality

import (
	"math"
	"sort"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rec builds a record with the given numeric values; everything else missing.
func rec(year, month int, season Season, values map[Field]float64) Record {
	r := newRecord()
	r.Year, r.Month, r.Season = year, month, season
	for f, v := range values {
		*r.ptr(f) = v
	}
	return r
}

func TestComputeCorrelation(t *testing.T) {
	t.Run("two points perfect negative", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 1, FieldPM25: 10}),
			rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 2, FieldPM25: 8}),
		})

		r, err := ComputeCorrelation(ds, FieldWSPM, FieldPM25)
		require.NoError(t, err)
		require.True(t, r.Defined)
		assert.Equal(t, -1.0, r.Value)
	})

	t.Run("pairwise deletion", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2013, 3, Spring, map[Field]float64{FieldTEMP: 1, FieldDEWP: 2}),
			rec(2013, 3, Spring, map[Field]float64{FieldTEMP: 2, FieldDEWP: 4}),
			rec(2013, 3, Spring, map[Field]float64{FieldTEMP: 3}),  // DEWP missing
			rec(2013, 3, Spring, map[Field]float64{FieldDEWP: 99}), // TEMP missing
			rec(2013, 3, Spring, map[Field]float64{FieldTEMP: 4, FieldDEWP: 8}),
		})

		r, err := ComputeCorrelation(ds, FieldTEMP, FieldDEWP)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, r.Value, 1e-12)
	})

	t.Run("matches textbook value", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4, 5}
		ys := []float64{2, 4, 5, 4, 5}
		var records []Record
		for i := range xs {
			records = append(records, rec(2014, 1, Winter, map[Field]float64{FieldWSPM: xs[i], FieldPM10: ys[i]}))
		}

		r, err := ComputeCorrelation(NewDataset("mem", records), FieldWSPM, FieldPM10)
		require.NoError(t, err)
		assert.InDelta(t, 0.7745966692, r.Value, 1e-9)
	})

	t.Run("zero variance is undefined", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2013, 3, Spring, map[Field]float64{FieldRAIN: 0, FieldPM25: 10}),
			rec(2013, 3, Spring, map[Field]float64{FieldRAIN: 0, FieldPM25: 20}),
			rec(2013, 3, Spring, map[Field]float64{FieldRAIN: 0, FieldPM25: 30}),
		})

		r, err := ComputeCorrelation(ds, FieldRAIN, FieldPM25)
		require.NoError(t, err)
		assert.False(t, r.Defined)
		assert.True(t, math.IsNaN(r.Float()))
	})

	t.Run("inexact constant is zero variance", func(t *testing.T) {
		pm25 := []float64{10, 25, 12, 40, 7, 33, 18}
		for _, c := range []float64{0.1, 2.3, 1013.2} {
			var recs []Record
			for _, v := range pm25 {
				recs = append(recs, rec(2013, 3, Spring, map[Field]float64{FieldPRES: c, FieldPM25: v}))
			}
			ds := NewDataset("mem", recs)

			r, err := ComputeCorrelation(ds, FieldPRES, FieldPM25)
			require.NoError(t, err)
			assert.False(t, r.Defined, "PRES=%v", c)

			r, err = ComputeCorrelation(ds, FieldPM25, FieldPRES)
			require.NoError(t, err)
			assert.False(t, r.Defined, "PRES=%v", c)

			m, err := ComputeCorrelationMatrix(ds, []Field{FieldPRES, FieldPM25})
			require.NoError(t, err)
			cellAB, _ := m.At(FieldPRES, FieldPM25)
			assert.False(t, cellAB.Defined)
			diag, _ := m.At(FieldPRES, FieldPRES)
			assert.True(t, diag.Defined)
		}
	})

	t.Run("fewer than two pairs", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 1, FieldPM25: 10}),
			rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 2}),
		})

		_, err := ComputeCorrelation(ds, FieldWSPM, FieldPM25)
		assert.True(t, errors.Is(err, ErrInsufficientData))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ComputeCorrelation(NewDataset("mem", nil), "season", FieldPM25)
		assert.True(t, errors.Is(err, ErrUnknownField))
	})
}

func TestComputeCorrelationMatrix(t *testing.T) {
	records := []Record{
		rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 1, FieldPM25: 80, FieldPM10: 100, FieldTEMP: 10, FieldPRES: 1010, FieldDEWP: -5, FieldRAIN: 0}),
		rec(2013, 4, Spring, map[Field]float64{FieldWSPM: 3, FieldPM25: 40, FieldPM10: 70, FieldTEMP: 15, FieldPRES: 1008, FieldDEWP: 0, FieldRAIN: 0}),
		rec(2013, 7, Summer, map[Field]float64{FieldWSPM: 2, FieldPM25: 50, FieldPM10: 60, FieldTEMP: 30, FieldPRES: 1000, FieldDEWP: 20, FieldRAIN: 0}),
		rec(2013, 12, Winter, map[Field]float64{FieldWSPM: 5, FieldPM25: 10, FieldPM10: 30, FieldTEMP: -2, FieldPRES: 1030, FieldDEWP: -20, FieldRAIN: 0}),
		rec(2014, 1, Winter, map[Field]float64{FieldWSPM: 4, FieldPM25: 200, FieldPM10: 240, FieldTEMP: -4}),
	}
	ds := NewDataset("mem", records)

	m, err := ComputeCorrelationMatrix(ds, CorrelationFields)
	require.NoError(t, err)
	require.Len(t, m.Cells, len(CorrelationFields))

	t.Run("symmetric", func(t *testing.T) {
		for _, a := range CorrelationFields {
			for _, b := range CorrelationFields {
				ab, ok := m.At(a, b)
				require.True(t, ok)
				ba, _ := m.At(b, a)
				assert.Equal(t, ab.Defined, ba.Defined, "%s/%s", a, b)
				if ab.Defined {
					assert.Equal(t, ab.Value, ba.Value, "%s/%s", a, b)
				}
			}
		}
	})

	t.Run("diagonal", func(t *testing.T) {
		for _, f := range CorrelationFields {
			s, _ := m.At(f, f)
			assert.Equal(t, Defined(1), s, "%s", f)
		}
	})

	t.Run("zero variance pair is undefined", func(t *testing.T) {
		s, _ := m.At(FieldRAIN, FieldTEMP)
		assert.False(t, s.Defined)
	})

	t.Run("coefficients bounded", func(t *testing.T) {
		for i := range m.Cells {
			for _, s := range m.Cells[i] {
				if s.Defined {
					assert.LessOrEqual(t, math.Abs(s.Value), 1.0)
				}
			}
		}
	})

	t.Run("matches single pair", func(t *testing.T) {
		want, err := ComputeCorrelation(ds, FieldWSPM, FieldPM25)
		require.NoError(t, err)
		got, _ := m.At(FieldPM25, FieldWSPM)
		assert.Equal(t, want, got)
	})

	t.Run("all-missing field", func(t *testing.T) {
		m, err := ComputeCorrelationMatrix(ds, []Field{FieldSO2, FieldPM25})
		require.NoError(t, err)
		s, _ := m.At(FieldSO2, FieldSO2)
		assert.False(t, s.Defined)
		s, _ = m.At(FieldSO2, FieldPM25)
		assert.False(t, s.Defined)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ComputeCorrelationMatrix(ds, []Field{FieldPM25, "wd"})
		assert.True(t, errors.Is(err, ErrUnknownField))
	})

	t.Run("lookup outside matrix", func(t *testing.T) {
		_, ok := m.At(FieldCO, FieldPM25)
		assert.False(t, ok)
	})
}

func TestComputeSeasonalMeans(t *testing.T) {
	t.Run("one record per season", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2013, 4, Spring, map[Field]float64{FieldPM10: 200}),
			rec(2013, 10, Fall, map[Field]float64{FieldPM10: 150}),
			rec(2013, 7, Summer, map[Field]float64{FieldPM10: 50}),
			rec(2013, 12, Winter, map[Field]float64{FieldPM10: 100}),
		})

		s, err := ComputeSeasonalMeans(ds, FieldPM10)
		require.NoError(t, err)
		require.Len(t, s.Means, 4)

		got := make(map[Season]float64)
		var order []Season
		for _, m := range s.Means {
			order = append(order, m.Season)
			got[m.Season] = m.Mean.Value
		}
		assert.Equal(t, Seasons, order)
		assert.Equal(t, map[Season]float64{Winter: 100, Spring: 200, Summer: 50, Fall: 150}, got)
	})

	t.Run("missing values skipped", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2013, 12, Winter, map[Field]float64{FieldPM10: 100}),
			rec(2013, 12, Winter, map[Field]float64{FieldPM10: 300}),
			rec(2013, 12, Winter, nil),
		})

		s, err := ComputeSeasonalMeans(ds, FieldPM10)
		require.NoError(t, err)
		assert.Equal(t, Defined(200), s.Get(Winter))
		assert.Equal(t, 2, s.Means[0].Count)
	})

	t.Run("absent season undefined", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2013, 7, Summer, map[Field]float64{FieldPM10: 80}),
			rec(2013, 7, "", map[Field]float64{FieldPM10: 1000}), // unrecognised label
		})

		s, err := ComputeSeasonalMeans(ds, FieldPM10)
		require.NoError(t, err)
		require.Len(t, s.Means, 4)
		assert.Equal(t, Defined(80), s.Get(Summer))
		for _, season := range []Season{Winter, Spring, Fall} {
			assert.False(t, s.Get(season).Defined, "%s", season)
		}
	})

	t.Run("empty dataset", func(t *testing.T) {
		s, err := ComputeSeasonalMeans(NewDataset("mem", nil), FieldPM10)
		require.NoError(t, err)
		assert.Len(t, s.Means, 4)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ComputeSeasonalMeans(NewDataset("mem", nil), "PM1")
		assert.True(t, errors.Is(err, ErrUnknownField))
	})
}

func TestComputeMonthlySeries(t *testing.T) {
	t.Run("sorted by key", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(2017, 2, Winter, map[Field]float64{FieldPM10: 40}),
			rec(2013, 3, Spring, map[Field]float64{FieldPM10: 10}),
			rec(2013, 10, Fall, map[Field]float64{FieldPM10: 30}),
			rec(2013, 3, Spring, map[Field]float64{FieldPM10: 20}),
			rec(2014, 1, Winter, nil),
		})

		s, err := ComputeMonthlySeries(ds, FieldPM10)
		require.NoError(t, err)

		var keys []string
		for _, p := range s.Points {
			keys = append(keys, p.Key)
		}
		assert.Equal(t, []string{"2013-03", "2013-10", "2014-01", "2017-02"}, keys)
		assert.True(t, sort.StringsAreSorted(keys))
		assert.Equal(t, Defined(15), s.Points[0].Mean)
		assert.False(t, s.Points[2].Mean.Defined)
	})

	t.Run("full span", func(t *testing.T) {
		var records []Record
		for y, m := 2013, 3; y < 2017 || m <= 2; {
			records = append(records, rec(y, m, "", map[Field]float64{FieldPM10: float64(m)}))
			if m++; m > 12 {
				y, m = y+1, 1
			}
		}

		s, err := ComputeMonthlySeries(NewDataset("mem", records), FieldPM10)
		require.NoError(t, err)
		require.Len(t, s.Points, 48)
		assert.Equal(t, "2013-03", s.Points[0].Key)
		assert.Equal(t, "2017-02", s.Points[len(s.Points)-1].Key)
	})

	t.Run("missing year or month excluded", func(t *testing.T) {
		ds := NewDataset("mem", []Record{
			rec(0, 5, Spring, map[Field]float64{FieldPM10: 1}),
			rec(2015, 0, Spring, map[Field]float64{FieldPM10: 1}),
			rec(2015, 5, Spring, map[Field]float64{FieldPM10: 7}),
		})

		s, err := ComputeMonthlySeries(ds, FieldPM10)
		require.NoError(t, err)
		require.Len(t, s.Points, 1)
		assert.Equal(t, "2015-05", s.Points[0].Key)
	})
}

func TestMean_MissingSkipIdempotent(t *testing.T) {
	full := NewDataset("mem", []Record{
		rec(2013, 3, Spring, map[Field]float64{FieldPM10: 10, FieldSO2: 1}),
		rec(2013, 3, Spring, map[Field]float64{FieldPM10: 20}),
		rec(2013, 4, Spring, map[Field]float64{FieldPM10: 33, FieldSO2: 5}),
		rec(2013, 12, Winter, map[Field]float64{FieldPM10: 7}),
	})

	// PM10 has no gaps, so dropping its missing values is a no-op.
	var kept []Record
	for _, r := range full.Records {
		if _, ok := r.Value(FieldPM10); ok {
			kept = append(kept, r)
		}
	}
	dropped := NewDataset("mem", kept)

	before, err := Mean(full, FieldPM10)
	require.NoError(t, err)
	after, err := Mean(dropped, FieldPM10)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.InDelta(t, 17.5, before.Value, 1e-12)

	seasonalBefore, _ := ComputeSeasonalMeans(full, FieldPM10)
	seasonalAfter, _ := ComputeSeasonalMeans(dropped, FieldPM10)
	for _, season := range []Season{Spring, Winter} {
		assert.Equal(t, seasonalBefore.Get(season), seasonalAfter.Get(season))
	}

	monthlyBefore, _ := ComputeMonthlySeries(full, FieldPM10)
	monthlyAfter, _ := ComputeMonthlySeries(dropped, FieldPM10)
	assert.Equal(t, monthlyBefore, monthlyAfter)

	so2, err := Mean(full, FieldSO2)
	require.NoError(t, err)
	assert.Equal(t, Defined(3), so2)

	empty, err := Mean(NewDataset("mem", nil), FieldPM10)
	require.NoError(t, err)
	assert.False(t, empty.Defined)
}

func TestScatterPairsAndPreview(t *testing.T) {
	ds := NewDataset("mem", []Record{
		rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 1, FieldPM25: 10}),
		rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 2}),
		rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 3, FieldPM25: 30}),
	})

	assert.Equal(t, []Point{{X: 1, Y: 10}, {X: 3, Y: 30}}, ScatterPairs(ds, FieldWSPM, FieldPM25))

	head := Preview(ds, 2)
	require.Len(t, head, 2)
	head[0].Year = 1999
	assert.Equal(t, 2013, ds.Records[0].Year, "preview must not alias the dataset")

	assert.Len(t, Preview(ds, 10), 3)
	assert.Nil(t, Preview(ds, 0))
	assert.Nil(t, Preview(nil, 5))
}

func TestDerivationsDoNotMutate(t *testing.T) {
	ds := NewDataset("mem", []Record{
		rec(2013, 12, Winter, map[Field]float64{FieldWSPM: 1, FieldPM25: 10, FieldPM10: 20}),
		rec(2013, 3, Spring, map[Field]float64{FieldWSPM: 2, FieldPM25: 8, FieldPM10: 30}),
	})
	snapshot := append([]Record{}, ds.Records...)

	_, _ = ComputeCorrelationMatrix(ds, CorrelationFields)
	_, _ = ComputeSeasonalMeans(ds, FieldPM10)
	_, _ = ComputeMonthlySeries(ds, FieldPM10)

	require.Len(t, ds.Records, len(snapshot))
	for i := range snapshot {
		assert.Equal(t, snapshot[i].YearMonth(), ds.Records[i].YearMonth())
		assert.Equal(t, snapshot[i].PM10, ds.Records[i].PM10)
	}
}

func TestParseSeason(t *testing.T) {
	for in, want := range map[string]Season{
		"Winter": Winter, " spring ": Spring, "SUMMER": Summer, "Fall": Fall, "autumn": Fall,
	} {
		got, ok := ParseSeason(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSeason("monsoon")
	assert.False(t, ok)
}
