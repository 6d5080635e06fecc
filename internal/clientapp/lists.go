package clientapp

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/cafesuite/internal/cafeapi"
	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/phillip-england/cafesuite/internal/export"
	"github.com/phillip-england/cafesuite/internal/grid"
	"github.com/phillip-england/cafesuite/internal/imaging"
)

type columnView struct {
	Key       string
	Title     string
	Sortable  bool
	SortURL   string
	Indicator string
	Width     int
	Flex      float64
	MinWidth  int
	MaxWidth  int
}

type pagerView struct {
	Number  int
	Pages   int
	Total   int
	From    int
	To      int
	PrevURL string
	NextURL string
}

type cafeFilterView struct {
	ID       string
	Name     string
	ClearURL string
}

type deleteView struct {
	ID      string
	Label   string
	Message string
	Action  string
	Return  string
}

type previewView struct {
	Name     string
	ImageURL string
	CloseURL string
}

type cafeRowView struct {
	domain.Cafe
	ThumbURL     string
	PreviewURL   string
	EmployeesURL string
	EditURL      string
	DeleteURL    string
}

type employeeRowView struct {
	domain.Employee
	EditURL   string
	DeleteURL string
}

// listQuery is the state a list view keeps in its URL.
type listQuery struct {
	path   string
	values url.Values
}

func newListQuery(r *http.Request, keep ...string) listQuery {
	q := url.Values{}
	for _, key := range keep {
		if value := strings.TrimSpace(r.URL.Query().Get(key)); value != "" {
			q.Set(key, value)
		}
	}
	return listQuery{path: r.URL.Path, values: q}
}

// with returns the list URL with the given overrides; an empty value drops
// the key.
func (lq listQuery) with(pairs ...string) string {
	q := url.Values{}
	for key, values := range lq.values {
		q[key] = append([]string(nil), values...)
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			q.Del(pairs[i])
			continue
		}
		q.Set(pairs[i], pairs[i+1])
	}
	if len(q) == 0 {
		return lq.path
	}
	return lq.path + "?" + q.Encode()
}

func sortState[T any](r *http.Request, orders map[string]grid.Less[T]) grid.SortState {
	key := strings.TrimSpace(r.URL.Query().Get("sort"))
	if _, ok := orders[key]; !ok {
		return grid.SortState{}
	}
	return grid.SortState{Key: key, Dir: grid.ParseDirection(r.URL.Query().Get("dir"))}
}

func buildColumns(columns []grid.Column, state grid.SortState, lq listQuery, width int) []columnView {
	widths := grid.Fit(columns, width)
	out := make([]columnView, 0, len(columns))
	for i, col := range columns {
		view := columnView{
			Key:      col.Key,
			Title:    col.Title,
			Sortable: col.Sortable,
			Width:    widths[i],
			Flex:     col.Flex,
			MinWidth: col.MinWidth,
			MaxWidth: col.MaxWidth,
		}
		if col.Sortable {
			next := state.Toggle(col.Key)
			view.SortURL = lq.with("sort", next.Key, "dir", string(next.Dir), "page", "")
			view.Indicator = state.Indicator(col.Key)
		}
		out = append(out, view)
	}
	return out
}

func buildPager[T any](page grid.Page[T], lq listQuery) pagerView {
	view := pagerView{
		Number: page.Number,
		Pages:  page.Pages,
		Total:  page.Total,
		From:   page.From,
		To:     page.To,
	}
	if page.HasPrev {
		view.PrevURL = lq.with("page", strconv.Itoa(page.Prev()))
	}
	if page.HasNext {
		view.NextURL = lq.with("page", strconv.Itoa(page.Next()))
	}
	return view
}

func sumWidths(columns []columnView) int {
	total := 0
	for _, col := range columns {
		total += col.Width
	}
	return total
}

func (s *server) cafesPage(w http.ResponseWriter, r *http.Request) {
	data := newPage(r, "Cafés")
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	data.Location = location
	data.AddURL = "/cafes/add"

	lq := newListQuery(r, "location", "sort", "dir", "page")
	state := sortState(r, grid.CafeOrders)
	data.SortKey, data.SortDir = state.Key, string(state.Dir)

	cafes, err := s.cache.Cafes(r.Context(), location)
	if err != nil {
		s.log.Warn("list cafes failed", "location", location, "error", err)
		data.Loading = true
		if data.Error == "" {
			data.Error = cafeapi.Message(err, "Unable to load cafés. Please try again.")
		}
	}

	page := grid.Paginate(grid.Sort(cafes, grid.CafeOrders, state), parsePositiveInt(r.URL.Query().Get("page"), 1), grid.DefaultPageSize)
	data.Columns = buildColumns(grid.CafeColumns, state, lq, viewportWidth(r))
	data.GridWidth = sumWidths(data.Columns)
	data.Pager = buildPager(page, lq)
	data.ReturnQuery = lq.with()
	data.ExportXLSX = "/cafes/export.xlsx" + exportQuery(lq)
	data.ExportPDF = "/cafes/export.pdf" + exportQuery(lq)

	for _, cafe := range page.Rows {
		row := cafeRowView{
			Cafe:         cafe,
			EmployeesURL: "/employees?" + url.Values{"cafeId": {cafe.ID}, "cafeName": {cafe.Name}}.Encode(),
			EditURL:      "/cafes/edit/" + url.PathEscape(cafe.ID),
			DeleteURL:    lq.with("delete", cafe.ID),
		}
		if cafe.LogoURL != "" {
			row.ThumbURL = "/cafes/logo?" + url.Values{"path": {cafe.LogoURL}}.Encode()
			row.PreviewURL = lq.with("preview", cafe.ID)
		}
		data.CafeRows = append(data.CafeRows, row)
	}

	if id := strings.TrimSpace(r.URL.Query().Get("delete")); id != "" {
		if cafe, ok := findCafe(cafes, id); ok {
			data.Delete = &deleteView{
				ID:      cafe.ID,
				Label:   cafe.Name,
				Message: "Deleting this café also deletes every employee assigned to it.",
				Action:  "/cafes/delete",
				Return:  data.ReturnQuery,
			}
		}
	}
	if id := strings.TrimSpace(r.URL.Query().Get("preview")); id != "" {
		if cafe, ok := findCafe(cafes, id); ok && cafe.LogoURL != "" {
			data.Preview = &previewView{
				Name:     cafe.Name,
				ImageURL: "/" + strings.TrimLeft(cafe.LogoURL, "/"),
				CloseURL: data.ReturnQuery,
			}
		}
	}

	s.render(w, http.StatusOK, s.cafesTmpl, data)
}

func (s *server) employeesPage(w http.ResponseWriter, r *http.Request) {
	data := newPage(r, "Employees")
	cafeID := strings.TrimSpace(r.URL.Query().Get("cafeId"))

	lq := newListQuery(r, "cafeId", "sort", "dir", "page")
	state := sortState(r, grid.EmployeeOrders)

	if cafeID != "" {
		// The café name in the URL is only a hint; the cached café list wins.
		filter := &cafeFilterView{ID: cafeID, Name: strings.TrimSpace(r.URL.Query().Get("cafeName")), ClearURL: "/employees"}
		if cafe, ok, err := s.cache.Cafe(r.Context(), cafeID); err == nil && ok {
			filter.Name = cafe.Name
		}
		if filter.Name == "" {
			filter.Name = cafeID
		}
		data.FilterCafe = filter
		data.AddURL = "/employees/add?" + url.Values{"cafeId": {cafeID}}.Encode()
	} else {
		data.AddURL = "/employees/add"
	}

	employees, err := s.cache.Employees(r.Context(), cafeID)
	if err != nil {
		s.log.Warn("list employees failed", "cafe_id", cafeID, "error", err)
		data.Loading = true
		if data.Error == "" {
			data.Error = cafeapi.Message(err, "Unable to load employees. Please try again.")
		}
	}

	page := grid.Paginate(grid.Sort(employees, grid.EmployeeOrders, state), parsePositiveInt(r.URL.Query().Get("page"), 1), grid.DefaultPageSize)
	data.Columns = buildColumns(grid.EmployeeColumns, state, lq, viewportWidth(r))
	data.GridWidth = sumWidths(data.Columns)
	data.Pager = buildPager(page, lq)
	data.ReturnQuery = lq.with()
	data.ExportXLSX = "/employees/export.xlsx" + exportQuery(lq)
	data.ExportPDF = "/employees/export.pdf" + exportQuery(lq)

	for _, employee := range page.Rows {
		data.EmplRows = append(data.EmplRows, employeeRowView{
			Employee:  employee,
			EditURL:   "/employees/edit/" + url.PathEscape(employee.ID),
			DeleteURL: lq.with("delete", employee.ID),
		})
	}

	if id := strings.TrimSpace(r.URL.Query().Get("delete")); id != "" {
		if employee, ok := findEmployee(employees, id); ok {
			data.Delete = &deleteView{
				ID:      employee.ID,
				Label:   employee.Name,
				Message: "This employee will be removed permanently.",
				Action:  "/employees/delete",
				Return:  data.ReturnQuery,
			}
		}
	}

	s.render(w, http.StatusOK, s.emplTmpl, data)
}

func exportQuery(lq listQuery) string {
	q := url.Values{}
	for _, key := range []string{"location", "cafeId", "sort", "dir"} {
		if value := lq.values.Get(key); value != "" {
			q.Set(key, value)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func findCafe(cafes []domain.Cafe, id string) (domain.Cafe, bool) {
	for _, cafe := range cafes {
		if cafe.ID == id {
			return cafe, true
		}
	}
	return domain.Cafe{}, false
}

func findEmployee(employees []domain.Employee, id string) (domain.Employee, bool) {
	for _, employee := range employees {
		if employee.ID == id {
			return employee, true
		}
	}
	return domain.Employee{}, false
}

// deleteCafe runs the confirm dialog's answer. Only an explicit "yes"
// reaches the API; anything else returns to the list untouched.
func (s *server) deleteCafe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithNotice(w, r, "/cafes", "error", "Invalid request")
		return
	}
	back := localTarget(r.PostForm.Get("return"), "/cafes")
	if r.PostForm.Get("confirm") != "yes" {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	id := strings.TrimSpace(r.PostForm.Get("id"))
	if _, err := s.api.DeleteCafe(r.Context(), id); err != nil {
		s.log.Warn("delete cafe failed", "id", id, "error", err)
		redirectWithNotice(w, r, back, "error", cafeapi.Message(err, "Unable to delete café"))
		return
	}
	s.cache.Invalidate(domain.KindCafe, domain.KindEmployee)
	s.log.Info("cafe deleted", "id", id)
	redirectWithNotice(w, r, back, "success", "Café deleted")
}

func (s *server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithNotice(w, r, "/employees", "error", "Invalid request")
		return
	}
	back := localTarget(r.PostForm.Get("return"), "/employees")
	if r.PostForm.Get("confirm") != "yes" {
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	id := strings.TrimSpace(r.PostForm.Get("id"))
	if _, err := s.api.DeleteEmployee(r.Context(), id); err != nil {
		s.log.Warn("delete employee failed", "id", id, "error", err)
		redirectWithNotice(w, r, back, "error", cafeapi.Message(err, "Unable to delete employee"))
		return
	}
	s.cache.Invalidate(domain.KindEmployee, domain.KindCafe)
	s.log.Info("employee deleted", "id", id)
	redirectWithNotice(w, r, back, "success", "Employee deleted")
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

func (s *server) exportCafes(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		cafes, err := s.cache.Cafes(r.Context(), location)
		if err != nil {
			s.log.Warn("export cafes failed", "error", err)
			redirectWithNotice(w, r, "/cafes", "error", cafeapi.Message(err, "Unable to export cafés"))
			return
		}
		state := sortState(r, grid.CafeOrders)
		s.writeSheet(w, r, format, "cafes", export.CafeSheet(grid.Sort(cafes, grid.CafeOrders, state)))
	}
}

func (s *server) exportEmployees(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cafeID := strings.TrimSpace(r.URL.Query().Get("cafeId"))
		employees, err := s.cache.Employees(r.Context(), cafeID)
		if err != nil {
			s.log.Warn("export employees failed", "error", err)
			redirectWithNotice(w, r, "/employees", "error", cafeapi.Message(err, "Unable to export employees"))
			return
		}
		state := sortState(r, grid.EmployeeOrders)
		s.writeSheet(w, r, format, "employees", export.EmployeeSheet(grid.Sort(employees, grid.EmployeeOrders, state)))
	}
}

func (s *server) writeSheet(w http.ResponseWriter, r *http.Request, format, name string, sheet export.Sheet) {
	var buf bytes.Buffer
	var err error
	contentType := xlsxContentType
	switch format {
	case "pdf":
		contentType = pdfContentType
		err = export.WritePDF(&buf, sheet, time.Now())
	default:
		err = export.WriteXLSX(&buf, sheet)
	}
	if err != nil {
		s.log.Error("export render failed", "format", format, "error", err)
		http.Error(w, "unable to build export", http.StatusInternalServerError)
		return
	}
	filename := name + "-" + time.Now().Format("20060102") + "." + format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// cafeLogo serves the grid thumbnail of a stored logo. Images the
// thumbnailer cannot decode are passed through as stored.
func (s *server) cafeLogo(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimLeft(strings.TrimSpace(r.URL.Query().Get("path")), "/")
	if !strings.HasPrefix(path, "uploads/") {
		http.NotFound(w, r)
		return
	}
	raw, contentType, err := s.api.FetchFile(r.Context(), path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	size := imaging.DefaultSize
	if requested := parsePositiveInt(r.URL.Query().Get("size"), 0); requested >= 16 && requested <= 256 {
		size = requested
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	thumb, err := imaging.Thumbnail(raw, size)
	if err != nil {
		s.log.Debug("thumbnail failed", "path", path, "error", err)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		_, _ = w.Write(raw)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(thumb)
}
