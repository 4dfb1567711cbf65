package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet is a rendered table ready to be written as a workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
	// Classes holds the css class of the marked cells of each row, keyed by
	// column index.
	Classes []map[int]string
}

func (s Sheet) class(row, col int) string {
	if row >= len(s.Classes) {
		return ""
	}
	return s.Classes[row][col]
}

// fill colors of the marked cells in workbooks
var classFills = map[string]string{
	ClassResult:    "#F4B084",
	ClassHighlight: "#D7327D",
}

func cellName(col, row int) string {
	// columns and rows are 1-based, both are always in range here
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// sheetValue keeps numbers numeric in the workbook.
func sheetValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// WriteXLSX writes s as the only sheet of a new workbook at path.
func WriteXLSX(path string, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := s.Name
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}

	base := excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}
	styles := map[string]int{}
	for class, color := range classFills {
		style := base
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
		id, err := f.NewStyle(&style)
		if err != nil {
			return err
		}
		styles[class] = id
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Size: 10, Bold: true},
		Alignment: base.Alignment,
	})
	if err != nil {
		return err
	}

	headerRow := make([]any, len(s.Header))
	for i, h := range s.Header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &headerRow); err != nil {
		return err
	}
	if len(s.Header) > 0 {
		if err := f.SetCellStyle(name, "A1", cellName(len(s.Header), 1), header); err != nil {
			return err
		}
	}

	for i, cells := range s.Rows {
		line := i + 2
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = sheetValue(c)
		}
		if err := f.SetSheetRow(name, cellName(1, line), &values); err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}
		if i >= len(s.Classes) {
			continue
		}
		for col, class := range s.Classes[i] {
			style, ok := styles[class]
			if !ok {
				continue
			}
			cell := cellName(col+1, line)
			if err := f.SetCellStyle(name, cell, cell, style); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}
