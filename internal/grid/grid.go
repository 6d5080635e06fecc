// Package grid holds the list view presentation rules: column layout,
// sorting and paging. Nothing here mutates the rows it is given.
package grid

import (
	"math"
	"sort"
	"strings"

	"github.com/phillip-england/cafesuite/internal/domain"
)

const DefaultPageSize = 10

// Column is one grid column. Flex is the share of spare width the column
// takes; MinWidth and MaxWidth clamp the result in pixels (0 means no max).
type Column struct {
	Key      string
	Title    string
	Sortable bool
	Flex     float64
	MinWidth int
	MaxWidth int
}

var CafeColumns = []Column{
	{Key: "logo", Title: "Logo", Flex: 0.6, MinWidth: 64, MaxWidth: 96},
	{Key: "name", Title: "Name", Sortable: true, Flex: 1, MinWidth: 120},
	{Key: "description", Title: "Description", Flex: 2, MinWidth: 180},
	{Key: "employees", Title: "Employees", Sortable: true, Flex: 0.7, MinWidth: 96, MaxWidth: 140},
	{Key: "location", Title: "Location", Sortable: true, Flex: 1, MinWidth: 120},
	{Key: "actions", Title: "Actions", Flex: 0.8, MinWidth: 140, MaxWidth: 180},
}

var EmployeeColumns = []Column{
	{Key: "id", Title: "Employee ID", Sortable: true, Flex: 0.8, MinWidth: 110, MaxWidth: 140},
	{Key: "name", Title: "Name", Sortable: true, Flex: 1, MinWidth: 120},
	{Key: "email_address", Title: "Email", Flex: 1.5, MinWidth: 180},
	{Key: "phone_number", Title: "Phone", Flex: 0.8, MinWidth: 110, MaxWidth: 140},
	{Key: "gender", Title: "Gender", Flex: 0.4, MinWidth: 64, MaxWidth: 90},
	{Key: "days_worked", Title: "Days Worked", Sortable: true, Flex: 0.7, MinWidth: 100, MaxWidth: 140},
	{Key: "cafe", Title: "Cafe", Flex: 1, MinWidth: 120},
	{Key: "actions", Title: "Actions", Flex: 0.8, MinWidth: 140, MaxWidth: 180},
}

// Fit returns a width per column for a viewport of the given width. Columns
// share the width by flex and are clamped to their bounds; width freed or
// consumed by clamping is spread over the columns that are still free.
// app.js carries the same algorithm for live resizes.
func Fit(columns []Column, width int) []int {
	widths := make([]float64, len(columns))
	fixed := make([]bool, len(columns))
	remaining := float64(width)

	for pass := 0; pass <= len(columns); pass++ {
		flexTotal := 0.0
		for i, col := range columns {
			if !fixed[i] {
				flexTotal += col.Flex
			}
		}
		if flexTotal == 0 {
			break
		}
		clamped := false
		for i, col := range columns {
			if fixed[i] {
				continue
			}
			w := remaining * col.Flex / flexTotal
			switch {
			case w < float64(col.MinWidth):
				widths[i], fixed[i], clamped = float64(col.MinWidth), true, true
			case col.MaxWidth > 0 && w > float64(col.MaxWidth):
				widths[i], fixed[i], clamped = float64(col.MaxWidth), true, true
			default:
				widths[i] = w
			}
		}
		if !clamped {
			break
		}
		remaining = float64(width)
		for i := range columns {
			if fixed[i] {
				remaining -= widths[i]
			}
		}
		if remaining < 0 {
			remaining = 0
		}
	}

	out := make([]int, len(columns))
	for i := range widths {
		out[i] = int(math.Floor(widths[i]))
	}
	return out
}

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(raw string) Direction {
	if strings.EqualFold(strings.TrimSpace(raw), string(Desc)) {
		return Desc
	}
	return Asc
}

// SortState is the active sort of a list view. An empty Key keeps the
// server order.
type SortState struct {
	Key string
	Dir Direction
}

// Toggle returns the state a click on the column header should produce.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key && s.Dir == Asc {
		return SortState{Key: key, Dir: Desc}
	}
	return SortState{Key: key, Dir: Asc}
}

// Indicator is the arrow shown next to a sorted header.
func (s SortState) Indicator(key string) string {
	if s.Key != key {
		return ""
	}
	if s.Dir == Desc {
		return "▼"
	}
	return "▲"
}

// Less orders two rows ascending.
type Less[T any] func(a, b T) bool

// Sort returns a sorted copy of rows. Unknown keys return the copy in
// input order.
func Sort[T any](rows []T, orders map[string]Less[T], state SortState) []T {
	out := append([]T(nil), rows...)
	less, ok := orders[state.Key]
	if !ok {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if state.Dir == Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

var CafeOrders = map[string]Less[domain.Cafe]{
	"name":      func(a, b domain.Cafe) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
	"employees": func(a, b domain.Cafe) bool { return a.Employees < b.Employees },
	"location":  func(a, b domain.Cafe) bool { return strings.ToLower(a.Location) < strings.ToLower(b.Location) },
}

var EmployeeOrders = map[string]Less[domain.Employee]{
	"id":          func(a, b domain.Employee) bool { return a.ID < b.ID },
	"name":        func(a, b domain.Employee) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
	"days_worked": func(a, b domain.Employee) bool { return a.DaysWorked < b.DaysWorked },
}

// Page is one slice of a list.
type Page[T any] struct {
	Rows    []T
	Number  int
	Pages   int
	Size    int
	Total   int
	From    int
	To      int
	HasPrev bool
	HasNext bool
}

func (p Page[T]) Prev() int { return p.Number - 1 }
func (p Page[T]) Next() int { return p.Number + 1 }

// Paginate returns page number (1-based, clamped to the valid range) of
// rows. A non-positive size uses DefaultPageSize.
func Paginate[T any](rows []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(rows)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}
	start := (number - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	page := Page[T]{
		Rows:    rows[start:end],
		Number:  number,
		Pages:   pages,
		Size:    size,
		Total:   total,
		HasPrev: number > 1,
		HasNext: number < pages,
	}
	if total > 0 {
		page.From = start + 1
		page.To = end
	}
	return page
}
