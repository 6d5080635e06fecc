package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the sheet as a single-worksheet workbook.
func WriteXLSX(w io.Writer, sheet Sheet) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	name := sheetName(sheet.Title)
	if err := file.SetSheetName(file.GetSheetName(0), name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E5E7EB"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for col, header := range sheet.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(name, cell, header); err != nil {
			return err
		}
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := file.SetColWidth(name, colName, colName, 14*sheet.weight(col)); err != nil {
			return err
		}
	}
	if len(sheet.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
		if err := file.SetCellStyle(name, "A1", last, bold); err != nil {
			return err
		}
	}

	for r, row := range sheet.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			var cellValue any = value
			if n, err := strconv.Atoi(value); err == nil && sheet.numeric(col) {
				cellValue = n
			}
			if err := file.SetCellValue(name, cell, cellValue); err != nil {
				return err
			}
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// sheetName trims a title to the 31 characters a worksheet name allows.
func sheetName(title string) string {
	if title == "" {
		return "Sheet1"
	}
	runes := []rune(title)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	return string(runes)
}
