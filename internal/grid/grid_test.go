package grid

import (
	"testing"

	"github.com/phillip-england/cafesuite/internal/domain"
)

func TestPaginateClampsAndSlices(t *testing.T) {
	rows := make([]int, 23)
	for i := range rows {
		rows[i] = i
	}
	page := Paginate(rows, 3, 0)
	if page.Size != DefaultPageSize || len(page.Rows) != 3 || page.Pages != 3 {
		t.Fatalf("unexpected last page %+v", page)
	}
	if page.From != 21 || page.To != 23 || page.HasNext || !page.HasPrev {
		t.Fatalf("unexpected bounds %+v", page)
	}
	if Paginate(rows, 99, 10).Number != 3 || Paginate(rows, -1, 10).Number != 1 {
		t.Fatalf("page number should clamp")
	}

	empty := Paginate([]int(nil), 1, 10)
	if empty.Pages != 1 || empty.From != 0 || len(empty.Rows) != 0 {
		t.Fatalf("unexpected empty page %+v", empty)
	}
}

func TestSortWorksOnCopy(t *testing.T) {
	cafes := []domain.Cafe{
		{ID: "a", Name: "Brew", Employees: 2},
		{ID: "b", Name: "acorn", Employees: 5},
		{ID: "c", Name: "Cuppa", Employees: 1},
	}
	sorted := Sort(cafes, CafeOrders, SortState{Key: "name", Dir: Asc})
	if sorted[0].ID != "b" || sorted[2].ID != "c" {
		t.Fatalf("expected case-insensitive name order, got %v", sorted)
	}
	if cafes[0].ID != "a" {
		t.Fatalf("input slice must not be reordered")
	}

	byCount := Sort(cafes, CafeOrders, SortState{Key: "employees", Dir: Desc})
	if byCount[0].Employees != 5 || byCount[2].Employees != 1 {
		t.Fatalf("unexpected employee order %v", byCount)
	}

	unchanged := Sort(cafes, CafeOrders, SortState{Key: "bogus"})
	if unchanged[0].ID != "a" {
		t.Fatalf("unknown key should keep input order")
	}
}

func TestSortStateToggle(t *testing.T) {
	state := SortState{}
	state = state.Toggle("name")
	if state.Dir != Asc {
		t.Fatalf("first click sorts ascending")
	}
	state = state.Toggle("name")
	if state.Dir != Desc || state.Indicator("name") != "▼" {
		t.Fatalf("second click sorts descending")
	}
	if state.Toggle("location").Dir != Asc {
		t.Fatalf("new column starts ascending")
	}
	if ParseDirection("DESC") != Desc || ParseDirection("x") != Asc {
		t.Fatalf("unexpected direction parsing")
	}
}

func TestFitRespectsBounds(t *testing.T) {
	widths := Fit(CafeColumns, 1200)
	total := 0
	for i, w := range widths {
		col := CafeColumns[i]
		if w < col.MinWidth || (col.MaxWidth > 0 && w > col.MaxWidth) {
			t.Fatalf("column %s width %d out of bounds", col.Key, w)
		}
		total += w
	}
	if total > 1200 || total < 1190 {
		t.Fatalf("expected widths to fill the viewport, got %d", total)
	}

	narrow := Fit(CafeColumns, 300)
	for i, w := range narrow {
		if w != CafeColumns[i].MinWidth {
			t.Fatalf("narrow viewport should pin column %s to its minimum, got %d", CafeColumns[i].Key, w)
		}
	}
}
