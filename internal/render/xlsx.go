package render

import (
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/KI7MT/ki7mt-airquality-lab/internal/airquality"
	"github.com/KI7MT/ki7mt-airquality-lab/internal/report"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetPreview     = "Preview"
	SheetScatter     = "Scatter"
	SheetSeasonal    = "Seasonal"
	SheetCorrelation = "Correlation"
	SheetMonthly     = "Monthly"
)

// Heatmap colour scale, cool to warm.
const (
	heatLow  = "#3B4CC0"
	heatMid  = "#F7F7F7"
	heatHigh = "#B40426"
)

// SaveWorkbook writes the report workbook to path.
func SaveWorkbook(path string, r *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create workbook")
	}
	if err := WriteWorkbook(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteWorkbook writes one sheet per view plus a Summary sheet holding the
// questions and conclusion. Undefined statistics are written as "n/a".
func WriteWorkbook(w io.Writer, r *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetDocProps(&excelize.DocProperties{
		Title:   r.Title,
		Subject: "Air quality analysis",
		Creator: "ki7mt-airquality-lab",
	})

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return errors.Wrap(err, "rename default sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "bold style")
	}
	wb := &workbook{f: f, bold: bold}

	wb.summary(r)
	for i := range r.Views {
		v := &r.Views[i]
		switch v.Kind {
		case report.KindTable:
			wb.preview(v)
		case report.KindScatter:
			wb.scatter(v)
		case report.KindBar:
			wb.seasonal(v)
		case report.KindHeatmap:
			wb.correlation(v)
		case report.KindLine:
			wb.monthly(v)
		}
	}
	if wb.err != nil {
		return wb.err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

// workbook keeps the first error so sheet builders read straight through.
type workbook struct {
	f    *excelize.File
	bold int
	err  error
}

func (wb *workbook) fail(err error, msg string) {
	if err != nil && wb.err == nil {
		wb.err = errors.Wrap(err, msg)
	}
}

func (wb *workbook) newSheet(name string) {
	if wb.err != nil {
		return
	}
	_, err := wb.f.NewSheet(name)
	wb.fail(err, "new sheet "+name)
}

func (wb *workbook) row(sheet string, row int, values ...any) {
	if wb.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		wb.fail(err, "cell name")
		return
	}
	wb.fail(wb.f.SetSheetRow(sheet, cell, &values), "write "+sheet)
}

// header writes a bold header row.
func (wb *workbook) header(sheet string, row int, cols ...string) {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = c
	}
	wb.row(sheet, row, values...)
	if wb.err != nil || len(cols) == 0 {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(cols), row)
	wb.fail(wb.f.SetCellStyle(sheet, first, last, wb.bold), "header style")
}

func (wb *workbook) commentary(sheet string, row int, v *report.View) int {
	if v.Note != "" {
		wb.row(sheet, row, v.Note)
		row++
	}
	wb.header(sheet, row, "Insight")
	row++
	for _, c := range v.Commentary {
		wb.row(sheet, row, c)
		row++
	}
	return row
}

func statValue(s airquality.Stat) any {
	if !s.Defined {
		return s.String()
	}
	return s.Value
}

// =============================================================================
// Sheets
// =============================================================================

func (wb *workbook) summary(r *report.Report) {
	sheet := SheetSummary
	wb.header(sheet, 1, r.Title)
	wb.row(sheet, 2, "Source", r.Source)
	wb.row(sheet, 3, "Records", r.Records)

	row := 5
	wb.header(sheet, row, "Questions")
	row++
	for _, q := range r.Questions {
		wb.row(sheet, row, q)
		row++
	}
	row++
	wb.header(sheet, row, "Conclusion")
	row++
	for _, c := range r.Conclusion {
		wb.row(sheet, row, c)
		row++
	}
	if wb.err == nil {
		wb.fail(wb.f.SetColWidth(sheet, "A", "A", 100), "column width")
	}
}

func (wb *workbook) preview(v *report.View) {
	sheet := SheetPreview
	wb.newSheet(sheet)
	if v.Table == nil {
		return
	}
	wb.header(sheet, 1, v.Table.Columns...)
	for i, r := range v.Table.Rows {
		values := make([]any, len(r))
		for j, c := range r {
			values[j] = c
		}
		wb.row(sheet, i+2, values...)
	}
	wb.commentary(sheet, len(v.Table.Rows)+3, v)
}

// scatter streams the pairs; the sheet can hold tens of thousands of rows.
func (wb *workbook) scatter(v *report.View) {
	sheet := SheetScatter
	wb.newSheet(sheet)
	if wb.err != nil || v.Scatter == nil {
		return
	}
	s := v.Scatter

	sw, err := wb.f.NewStreamWriter(sheet)
	if err != nil {
		wb.fail(err, "scatter stream")
		return
	}

	write := func(row int, values ...any) {
		if wb.err != nil {
			return
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		wb.fail(sw.SetRow(cell, values), "write scatter")
	}

	write(1, "Pearson r", statValue(s.Coefficient))
	row := 2
	if v.Note != "" {
		write(row, v.Note)
		row++
	}
	row++
	write(row, string(s.X), string(s.Y))
	row++
	for _, p := range s.Points {
		write(row, p.X, p.Y)
		row++
	}
	if wb.err == nil {
		wb.fail(sw.Flush(), "flush scatter")
	}
}

func (wb *workbook) seasonal(v *report.View) {
	sheet := SheetSeasonal
	wb.newSheet(sheet)
	if v.Seasonal == nil {
		return
	}
	wb.header(sheet, 1, "Season", "Mean "+string(v.Seasonal.Field), "Count")
	for i, m := range v.Seasonal.Means {
		wb.row(sheet, i+2, string(m.Season), statValue(m.Mean), m.Count)
	}
	wb.commentary(sheet, len(v.Seasonal.Means)+3, v)
}

func (wb *workbook) correlation(v *report.View) {
	sheet := SheetCorrelation
	wb.newSheet(sheet)
	m := v.Heatmap
	if m == nil {
		return
	}

	cols := make([]string, 0, len(m.Fields)+1)
	cols = append(cols, "")
	for _, f := range m.Fields {
		cols = append(cols, string(f))
	}
	wb.header(sheet, 1, cols...)

	for i, f := range m.Fields {
		values := make([]any, 0, len(m.Fields)+1)
		values = append(values, string(f))
		for _, c := range m.Cells[i] {
			values = append(values, statValue(c))
		}
		wb.row(sheet, i+2, values...)
	}

	if n := len(m.Fields); n > 0 && wb.err == nil {
		first, _ := excelize.CoordinatesToCellName(2, 2)
		last, _ := excelize.CoordinatesToCellName(n+1, n+1)
		wb.fail(wb.f.SetConditionalFormat(sheet, first+":"+last, []excelize.ConditionalFormatOptions{{
			Type:     "3_color_scale",
			Criteria: "=",
			MinType:  "num",
			MidType:  "num",
			MaxType:  "num",
			MinValue: "-1",
			MidValue: "0",
			MaxValue: "1",
			MinColor: heatLow,
			MidColor: heatMid,
			MaxColor: heatHigh,
		}}), "heatmap colour scale")
	}
	wb.commentary(sheet, len(m.Fields)+3, v)
}

func (wb *workbook) monthly(v *report.View) {
	sheet := SheetMonthly
	wb.newSheet(sheet)
	if v.Monthly == nil {
		return
	}
	wb.header(sheet, 1, "Month", "Mean "+string(v.Monthly.Field), "Count")
	for i, p := range v.Monthly.Points {
		wb.row(sheet, i+2, p.Key, statValue(p.Mean), p.Count)
	}
	wb.commentary(sheet, len(v.Monthly.Points)+3, v)
}
