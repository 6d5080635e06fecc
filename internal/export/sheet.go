// Package export turns record lists into spreadsheets, printable PDFs and
// compressed snapshots, and reads employee rosters back in.
package export

import (
	"strconv"

	"github.com/phillip-england/cafesuite/internal/domain"
)

// Sheet is a titled table. Weights size the columns relative to each other
// in the PDF and xlsx outputs; a missing weight counts as 1. Numeric lists
// the column indexes written as numbers in a workbook.
type Sheet struct {
	Title   string
	Headers []string
	Weights []float64
	Numeric []int
	Rows    [][]string
}

func (s Sheet) numeric(col int) bool {
	for _, n := range s.Numeric {
		if n == col {
			return true
		}
	}
	return false
}

func (s Sheet) weight(i int) float64 {
	if i < len(s.Weights) && s.Weights[i] > 0 {
		return s.Weights[i]
	}
	return 1
}

func CafeSheet(cafes []domain.Cafe) Sheet {
	sheet := Sheet{
		Title:   "Cafes",
		Headers: []string{"Name", "Description", "Employees", "Location", "Logo"},
		Weights: []float64{1, 2.4, 0.8, 1.1, 1.4},
		Numeric: []int{2},
	}
	for _, c := range cafes {
		sheet.Rows = append(sheet.Rows, []string{
			c.Name,
			c.Description,
			strconv.Itoa(c.Employees),
			c.Location,
			c.LogoURL,
		})
	}
	return sheet
}

func EmployeeSheet(employees []domain.Employee) Sheet {
	sheet := Sheet{
		Title:   "Employees",
		Headers: []string{"Employee ID", "Name", "Email", "Phone", "Gender", "Days Worked", "Cafe"},
		Weights: []float64{1, 1.1, 1.8, 0.9, 0.7, 0.8, 1.1},
		Numeric: []int{5},
	}
	for _, e := range employees {
		sheet.Rows = append(sheet.Rows, []string{
			e.ID,
			e.Name,
			e.EmailAddress,
			e.PhoneNumber,
			string(e.Gender),
			strconv.Itoa(e.DaysWorked),
			e.Cafe,
		})
	}
	return sheet
}
