package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/xuri/excelize/v2"
)

// RosterRow is one employee read from a roster. Cafe holds whatever the
// cafe column said (an id or a name); the caller resolves it.
type RosterRow struct {
	Line  int
	Input domain.EmployeeInput
	Cafe  string
}

// RowError reports a roster line that could not be imported.
type RowError struct {
	Line    int
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

var rosterHeaders = map[string]string{
	"name":          "name",
	"employee name": "name",
	"email":         "email_address",
	"email address": "email_address",
	"email_address": "email_address",
	"phone":         "phone_number",
	"phone number":  "phone_number",
	"phone_number":  "phone_number",
	"gender":        "gender",
	"cafe":          "cafe",
	"cafe_id":       "cafe",
	"start date":    "start_date",
	"start_date":    "start_date",
}

var requiredRosterColumns = []string{"name", "email_address", "phone_number", "gender"}

// ReadRoster reads a single-sheet .xlsx or .xls roster. Rows that fail the
// employee field rules come back as RowErrors; the rest are returned in
// file order. A file without the required header columns is an error.
func ReadRoster(r io.Reader, filename string) ([]RosterRow, []RowError, error) {
	rows, err := readRowsFromSpreadsheet(r, filename)
	if err != nil {
		return nil, nil, err
	}

	columns := map[string]int{}
	for idx, header := range rows[0] {
		if key, ok := rosterHeaders[normalizeHeader(header)]; ok {
			if _, seen := columns[key]; !seen {
				columns[key] = idx
			}
		}
	}
	var missing []string
	for _, key := range requiredRosterColumns {
		if _, ok := columns[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("roster is missing columns: %s", strings.Join(missing, ", "))
	}

	get := func(row []string, key string) string {
		idx, ok := columns[key]
		if !ok {
			return ""
		}
		return cellValue(row, idx)
	}

	var out []RosterRow
	var rowErrs []RowError
	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}
		input := domain.EmployeeInput{
			Name:         get(row, "name"),
			EmailAddress: get(row, "email_address"),
			PhoneNumber:  strings.ReplaceAll(get(row, "phone_number"), " ", ""),
			Gender:       normalizeGender(get(row, "gender")),
		}
		if raw := get(row, "start_date"); raw != "" {
			date, ok := normalizeDate(raw)
			if !ok {
				rowErrs = append(rowErrs, RowError{Line: line, Message: "Start date must be formatted YYYY-MM-DD"})
				continue
			}
			input.StartDate = date
		}
		if errs := input.Validate(); len(errs) > 0 {
			rowErrs = append(rowErrs, RowError{Line: line, Message: errs.Error()})
			continue
		}
		out = append(out, RosterRow{Line: line, Input: input, Cafe: get(row, "cafe")})
	}
	return out, rowErrs, nil
}

func readRowsFromSpreadsheet(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if workbook.NumSheets() == 0 {
			return nil, errors.New("no worksheet found")
		}
		if workbook.NumSheets() > 1 {
			return nil, errors.New("multiple worksheets found; please upload a file with a single sheet")
		}
		rows := workbook.ReadAllCells(100000)
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		return rows, nil
	case ".xlsx":
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, errors.New("no worksheet found")
		}
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported roster file %q: use .xlsx or .xls", filepath.Base(filename))
	}
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func normalizeGender(value string) domain.Gender {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "m", "male":
		return domain.GenderMale
	case "f", "female":
		return domain.GenderFemale
	}
	return domain.Gender(strings.TrimSpace(value))
}

// normalizeDate accepts ISO dates, day-first local formats and Excel date
// serials.
func normalizeDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return parsed.Format("2006-01-02"), true
			}
		}
		return "", false
	}
	for _, layout := range []string{
		"2006-01-02",
		"2006/01/02",
		"2/1/2006",
		"02/01/2006",
		"2-1-2006",
		"02-01-2006",
		"2 Jan 2006",
		"2 January 2006",
		"Jan 2, 2006",
		"January 2, 2006",
	} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("2006-01-02"), true
		}
	}
	return "", false
}
