package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
)

// WriteText renders r for a terminal. Styling is applied only when w is a
// colour-capable terminal, so output to files and pipes is plain text.
func WriteText(w io.Writer, r *Report) error {
	renderer := lipgloss.NewRenderer(w)
	tw := &textWriter{
		w:       w,
		title:   renderer.NewStyle().Bold(true).Underline(true),
		header:  renderer.NewStyle().Bold(true),
		note:    renderer.NewStyle().Italic(true),
		cellPad: renderer.NewStyle().Padding(0, 1),
	}

	tw.line(tw.title.Render(r.Title))
	tw.linef("Source: %s (%d records)", r.Source, r.Records)
	tw.blank()

	tw.line(tw.header.Render("Questions"))
	for i, q := range r.Questions {
		tw.linef("%d. %s", i+1, q)
	}

	for i := range r.Views {
		tw.blank()
		tw.view(&r.Views[i])
	}

	tw.blank()
	tw.line(tw.header.Render("Conclusion"))
	tw.bullets(r.Conclusion)
	return tw.err
}

type textWriter struct {
	w   io.Writer
	err error

	title   lipgloss.Style
	header  lipgloss.Style
	note    lipgloss.Style
	cellPad lipgloss.Style
}

func (t *textWriter) line(s string) {
	if t.err != nil {
		return
	}
	_, t.err = io.WriteString(t.w, s+"\n")
}

func (t *textWriter) linef(format string, args ...any) {
	t.line(fmt.Sprintf(format, args...))
}

func (t *textWriter) blank() { t.line("") }

func (t *textWriter) bullets(items []string) {
	for _, s := range items {
		t.line("  - " + s)
	}
}

func (t *textWriter) table(headers []string, rows [][]string) {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return t.cellPad }).
		Headers(headers...).
		Rows(rows...)
	t.line(tbl.String())
}

func (t *textWriter) view(v *View) {
	t.line(t.header.Render(v.Title))
	if v.Note != "" {
		t.line(t.note.Render("(" + v.Note + ")"))
	}

	switch v.Kind {
	case KindTable:
		if v.Table != nil {
			t.table(v.Table.Columns, v.Table.Rows)
		}
	case KindScatter:
		if s := v.Scatter; s != nil {
			t.linef("%d complete %s/%s pairs, Pearson r = %s", len(s.Points), s.X, s.Y, s.Coefficient)
		}
	case KindBar:
		if s := v.Seasonal; s != nil {
			rows := make([][]string, 0, len(s.Means))
			for _, m := range s.Means {
				rows = append(rows, []string{string(m.Season), m.Mean.String(), fmt.Sprint(m.Count)})
			}
			t.table([]string{"Season", "Mean " + string(s.Field), "N"}, rows)
		}
	case KindHeatmap:
		if m := v.Heatmap; m != nil {
			t.table(heatmapHeaders(m), heatmapRows(m))
		}
	case KindLine:
		if s := v.Monthly; s != nil {
			rows := make([][]string, 0, len(s.Points))
			for _, p := range s.Points {
				rows = append(rows, []string{p.Key, p.Mean.String(), fmt.Sprint(p.Count)})
			}
			t.table([]string{"Month", "Mean " + string(s.Field), "N"}, rows)
		}
	}

	t.line("Insight:")
	t.bullets(v.Commentary)
}

func heatmapHeaders(m *airquality.CorrelationMatrix) []string {
	h := make([]string, 0, len(m.Fields)+1)
	h = append(h, "")
	for _, f := range m.Fields {
		h = append(h, string(f))
	}
	return h
}

func heatmapRows(m *airquality.CorrelationMatrix) [][]string {
	rows := make([][]string, len(m.Fields))
	for i, f := range m.Fields {
		row := make([]string, 0, len(m.Fields)+1)
		row = append(row, string(f))
		for _, c := range m.Cells[i] {
			row = append(row, c.String())
		}
		rows[i] = row
	}
	return rows
}

// Summary is a one-line digest of the headline numbers, used in log output.
func Summary(r *Report) string {
	var parts []string
	if v, ok := r.View(ViewScatter); ok && v.Scatter != nil {
		parts = append(parts, fmt.Sprintf("r(%s,%s)=%s", v.Scatter.X, v.Scatter.Y, v.Scatter.Coefficient))
	}
	if v, ok := r.View(ViewSeasonal); ok && v.Seasonal != nil {
		for _, m := range v.Seasonal.Means {
			parts = append(parts, fmt.Sprintf("%s=%s", m.Season, m.Mean))
		}
	}
	if v, ok := r.View(ViewMonthly); ok && v.Monthly != nil {
		parts = append(parts, fmt.Sprintf("months=%d", len(v.Monthly.Points)))
	}
	return strings.Join(parts, " ")
}
