package clientapp

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phillip-england/cafesuite/internal/apiapp"
	"github.com/phillip-england/cafesuite/internal/cafeapi"
	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/phillip-england/cafesuite/internal/forms"
	"github.com/phillip-england/cafesuite/internal/querycache"
	"github.com/phillip-england/cafesuite/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testConsole struct {
	handler http.Handler
	store   *store.MemoryStore
	writes  *atomic.Int32
	logs    *bytes.Buffer
}

func newTestConsole(t *testing.T) *testConsole {
	t.Helper()
	st := store.NewMemoryStore()
	api := apiapp.NewHandler(st, t.TempDir(), nil, nil)
	writes := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodOptions {
			writes.Add(1)
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client := cafeapi.New(srv.URL, srv.Client())
	logs := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(logs, nil))
	return &testConsole{
		handler: NewHandler(client, querycache.New(), forms.NewRegistry(time.Hour), log),
		store:   st,
		writes:  writes,
		logs:    logs,
	}
}

func (tc *testConsole) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	tc.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func (tc *testConsole) post(t *testing.T, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	tc.handler.ServeHTTP(rr, req)
	return rr
}

func (tc *testConsole) postMultipart(t *testing.T, target string, values url.Values, filename string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, vals := range values {
		for _, v := range vals {
			if err := writer.WriteField(key, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	part, err := writer.CreateFormFile("logo", filename)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := part.Write(file); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	tc.handler.ServeHTTP(rr, req)
	return rr
}

func (tc *testConsole) createCafe(t *testing.T, name, location string) domain.Cafe {
	t.Helper()
	cafe, err := tc.store.CreateCafe(context.Background(), domain.CafeInput{Name: name, Description: "Nice place", Location: location})
	if err != nil {
		t.Fatalf("seed cafe: %v", err)
	}
	return cafe
}

var tokenPattern = regexp.MustCompile(`name="form_token" value="([^"]+)"`)

func formToken(t *testing.T, body string) string {
	t.Helper()
	match := tokenPattern.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("no form token in page:\n%s", body)
	}
	return match[1]
}

func notice(t *testing.T, rr *httptest.ResponseRecorder, kind string) string {
	t.Helper()
	u, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	return u.Query().Get(kind)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for x := 0; x < 20; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRootRedirectsToCafes(t *testing.T) {
	tc := newTestConsole(t)
	rr := tc.get(t, "/")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/cafes" {
		t.Fatalf("expected redirect to /cafes, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestCafesListSortsAndPages(t *testing.T) {
	tc := newTestConsole(t)
	for _, n := range []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"} {
		tc.createCafe(t, "CafeNum"+n, "Downtown")
	}

	rr := tc.get(t, "/cafes?sort=name&dir=desc")
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Index(body, "CafeNum12") > strings.Index(body, "CafeNum11") {
		t.Fatalf("expected descending name order")
	}
	if strings.Contains(body, "CafeNum02") || !strings.Contains(body, "Page 1 of 2") || !strings.Contains(body, "▼") {
		t.Fatalf("unexpected first page:\n%s", body)
	}
	if rr.Header().Get("X-Frame-Options") == "" {
		t.Fatalf("expected security headers on console pages")
	}

	body = tc.get(t, "/cafes?sort=name&dir=desc&page=2").Body.String()
	if !strings.Contains(body, "CafeNum01") || !strings.Contains(body, "CafeNum02") || strings.Contains(body, "CafeNum03") {
		t.Fatalf("unexpected second page:\n%s", body)
	}

	body = tc.get(t, "/cafes?page=99").Body.String()
	if !strings.Contains(body, "Page 2 of 2") {
		t.Fatalf("expected out of range page to clamp to the last page")
	}
}

func TestCafesLocationFilter(t *testing.T) {
	tc := newTestConsole(t)
	tc.createCafe(t, "RiverCafe", "Riverside")
	tc.createCafe(t, "HillCafe", "Hilltop")

	body := tc.get(t, "/cafes?location=river").Body.String()
	if !strings.Contains(body, "RiverCafe") || strings.Contains(body, "HillCafe") {
		t.Fatalf("expected only the riverside cafe:\n%s", body)
	}
}

func TestDeleteCafeRequiresConfirmation(t *testing.T) {
	tc := newTestConsole(t)
	cafe := tc.createCafe(t, "DoomedCafe", "Downtown")
	if _, err := tc.store.CreateEmployee(context.Background(), domain.EmployeeInput{
		Name: "Alice Tan", EmailAddress: "alice@example.com", PhoneNumber: "91234567", Gender: domain.GenderFemale, CafeID: cafe.ID,
	}); err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	if body := tc.get(t, "/employees").Body.String(); !strings.Contains(body, "Alice Tan") {
		t.Fatalf("expected employee listed before delete")
	}

	body := tc.get(t, "/cafes?delete="+cafe.ID).Body.String()
	if !strings.Contains(body, "Delete DoomedCafe?") || !strings.Contains(body, `value="yes"`) {
		t.Fatalf("expected confirm dialog:\n%s", body)
	}

	rr := tc.post(t, "/cafes/delete", url.Values{"id": {cafe.ID}, "confirm": {"no"}, "return": {"/cafes"}})
	if rr.Code != http.StatusSeeOther || tc.writes.Load() != 0 {
		t.Fatalf("declined delete should not reach the API: %d writes=%d", rr.Code, tc.writes.Load())
	}

	rr = tc.post(t, "/cafes/delete", url.Values{"id": {cafe.ID}, "confirm": {"yes"}, "return": {"/cafes?location=down"}})
	if rr.Code != http.StatusSeeOther || notice(t, rr, "success") != "Café deleted" {
		t.Fatalf("unexpected delete response %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if !strings.HasPrefix(rr.Header().Get("Location"), "/cafes?") || !strings.Contains(rr.Header().Get("Location"), "location=down") {
		t.Fatalf("expected return to the filtered list, got %q", rr.Header().Get("Location"))
	}

	if body := tc.get(t, "/cafes").Body.String(); strings.Contains(body, "DoomedCafe") {
		t.Fatalf("deleted cafe still listed")
	}
	if body := tc.get(t, "/employees").Body.String(); strings.Contains(body, "Alice Tan") {
		t.Fatalf("cascade-deleted employee still listed")
	}
}

func TestDeleteOffsiteReturnIsIgnored(t *testing.T) {
	tc := newTestConsole(t)
	rr := tc.post(t, "/cafes/delete", url.Values{"confirm": {"no"}, "return": {"//evil.example"}})
	if rr.Header().Get("Location") != "/cafes" {
		t.Fatalf("expected fallback return, got %q", rr.Header().Get("Location"))
	}
}

func TestAddCafeFlow(t *testing.T) {
	tc := newTestConsole(t)
	tc.get(t, "/cafes")

	body := tc.get(t, "/cafes/add").Body.String()
	if !strings.Contains(body, "data-submit disabled") {
		t.Fatalf("expected submit disabled on a pristine form")
	}
	token := formToken(t, body)

	rr := tc.post(t, "/cafes/add", url.Values{
		"form_token": {token}, "touched": {"1"},
		"name": {"Bad"}, "description": {"Small"}, "location": {"Downtown"},
	})
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Name must be 6-10 characters") {
		t.Fatalf("expected validation error, got %d:\n%s", rr.Code, rr.Body.String())
	}
	if tc.writes.Load() != 0 {
		t.Fatalf("invalid form reached the API")
	}
	if !strings.Contains(rr.Body.String(), `value="Bad"`) {
		t.Fatalf("expected typed values to be kept")
	}

	rr = tc.post(t, "/cafes/add", url.Values{
		"form_token": {token},
		"name":       {"NewCorner"}, "description": {"Small"}, "location": {"Downtown"},
	})
	if rr.Code != http.StatusSeeOther || notice(t, rr, "success") != "Café created" {
		t.Fatalf("unexpected submit response %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if body := tc.get(t, "/cafes").Body.String(); !strings.Contains(body, "NewCorner") {
		t.Fatalf("new cafe missing after cache invalidation")
	}

	rr = tc.post(t, "/cafes/add", url.Values{"form_token": {token}, "name": {"NewCorner"}, "description": {"Small"}, "location": {"Downtown"}})
	if notice(t, rr, "error") != "This form has already been saved" || tc.writes.Load() != 1 {
		t.Fatalf("repeated post should be refused, got %q writes=%d", rr.Header().Get("Location"), tc.writes.Load())
	}
}

func TestUnchangedEditIsNotSubmitted(t *testing.T) {
	tc := newTestConsole(t)
	cafe := tc.createCafe(t, "SteadyCafe", "Downtown")

	body := tc.get(t, "/cafes/edit/"+cafe.ID).Body.String()
	if !strings.Contains(body, `value="SteadyCafe"`) {
		t.Fatalf("expected edit form prefilled:\n%s", body)
	}
	rr := tc.post(t, "/cafes/edit/"+cafe.ID, url.Values{
		"form_token": {formToken(t, body)},
		"name":       {"SteadyCafe"}, "description": {"Nice place"}, "location": {"Downtown"},
	})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "There are no changes to save") || tc.writes.Load() != 0 {
		t.Fatalf("unexpected pristine submit %d writes=%d", rr.Code, tc.writes.Load())
	}
}

func TestEditCafeSavesChanges(t *testing.T) {
	tc := newTestConsole(t)
	cafe := tc.createCafe(t, "OldName01", "Downtown")

	token := formToken(t, tc.get(t, "/cafes/edit/"+cafe.ID).Body.String())
	rr := tc.post(t, "/cafes/edit/"+cafe.ID, url.Values{
		"form_token": {token},
		"name":       {"NewName01"}, "description": {"Nice place"}, "location": {"Downtown"},
	})
	if rr.Code != http.StatusSeeOther || notice(t, rr, "success") != "Café updated" {
		t.Fatalf("unexpected edit response %d %q", rr.Code, rr.Header().Get("Location"))
	}
	cafes, _ := tc.store.ListCafes(context.Background(), "")
	if len(cafes) != 1 || cafes[0].Name != "NewName01" {
		t.Fatalf("expected update stored, got %+v", cafes)
	}
}

func TestEditMissingRecordRedirects(t *testing.T) {
	tc := newTestConsole(t)
	rr := tc.get(t, "/cafes/edit/does-not-exist")
	if rr.Code != http.StatusSeeOther || notice(t, rr, "error") != "Café not found" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Header().Get("Location"))
	}
	rr = tc.get(t, "/employees/edit/UI0000000")
	if notice(t, rr, "error") != "Employee not found" {
		t.Fatalf("unexpected response %q", rr.Header().Get("Location"))
	}
}

func TestLeaveDirtyFormAsksFirst(t *testing.T) {
	tc := newTestConsole(t)
	token := formToken(t, tc.get(t, "/cafes/add").Body.String())

	rr := tc.post(t, "/cafes/add/leave", url.Values{
		"form_token": {token}, "next": {"/employees"},
		"name": {"TypedName"}, "description": {""}, "location": {""},
	})
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "Discard unsaved changes?") || !strings.Contains(body, `value="TypedName"`) {
		t.Fatalf("expected leave confirmation:\n%s", body)
	}

	rr = tc.post(t, "/cafes/add/leave", url.Values{"form_token": {token}, "confirm": {"stay"}, "next": {"/employees"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/cafes/add?form="+token {
		t.Fatalf("stay should return to the form, got %q", rr.Header().Get("Location"))
	}
	if body := tc.get(t, rr.Header().Get("Location")).Body.String(); !strings.Contains(body, `value="TypedName"`) {
		t.Fatalf("values lost after staying")
	}

	rr = tc.post(t, "/cafes/add/leave", url.Values{"form_token": {token}, "confirm": {"leave"}, "next": {"/employees"}})
	if rr.Header().Get("Location") != "/employees" {
		t.Fatalf("leave should follow next, got %q", rr.Header().Get("Location"))
	}
	if body := tc.get(t, "/cafes/add?form="+token).Body.String(); strings.Contains(body, "TypedName") {
		t.Fatalf("discarded values came back")
	}
}

func TestLeavePristineFormSkipsConfirmation(t *testing.T) {
	tc := newTestConsole(t)
	token := formToken(t, tc.get(t, "/cafes/add").Body.String())
	rr := tc.post(t, "/cafes/add/leave", url.Values{"form_token": {token}, "name": {""}, "description": {""}, "location": {""}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/cafes" {
		t.Fatalf("expected direct navigation, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestEmployeeServerErrorKeepsValues(t *testing.T) {
	tc := newTestConsole(t)
	cafe := tc.createCafe(t, "TeamCafe", "Downtown")
	if _, err := tc.store.CreateEmployee(context.Background(), domain.EmployeeInput{
		Name: "Taken Lee", EmailAddress: "taken@example.com", PhoneNumber: "81234567", Gender: domain.GenderMale,
	}); err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	body := tc.get(t, "/employees/add?cafeId="+cafe.ID).Body.String()
	if !strings.Contains(body, `<option value="`+cafe.ID+`" selected>`) {
		t.Fatalf("expected cafe preselected:\n%s", body)
	}
	token := formToken(t, body)

	posted := url.Values{
		"form_token":    {token},
		"name":          {"Jane Tan"},
		"email_address": {"TAKEN@example.com"},
		"phone_number":  {"91234567"},
		"gender":        {"Female"},
		"cafe_id":       {cafe.ID},
		"start_date":    {""},
	}
	rr := tc.post(t, "/employees/add", posted)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Email address already exists") {
		t.Fatalf("expected server message, got %d:\n%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `value="Jane Tan"`) {
		t.Fatalf("expected values retained after failure")
	}

	posted.Set("email_address", "jane@example.com")
	rr = tc.post(t, "/employees/add", posted)
	if rr.Code != http.StatusSeeOther || notice(t, rr, "success") != "Employee created" {
		t.Fatalf("retry failed: %d %q", rr.Code, rr.Header().Get("Location"))
	}
	body = tc.get(t, "/employees?cafeId="+cafe.ID).Body.String()
	if !strings.Contains(body, "Jane Tan") || !strings.Contains(body, "♀") {
		t.Fatalf("expected new employee in cafe list:\n%s", body)
	}
}

func TestEmployeesFilterUsesCachedCafeName(t *testing.T) {
	tc := newTestConsole(t)
	cafe := tc.createCafe(t, "RealName", "Downtown")
	body := tc.get(t, "/employees?cafeId="+cafe.ID+"&cafeName=Spoofed").Body.String()
	if !strings.Contains(body, "Employees at RealName") || strings.Contains(body, "Spoofed") {
		t.Fatalf("expected cafe name from the cache:\n%s", body)
	}
}

func TestCafeLogoUploadAndThumbnail(t *testing.T) {
	tc := newTestConsole(t)
	token := formToken(t, tc.get(t, "/cafes/add").Body.String())

	rr := tc.postMultipart(t, "/cafes/add", url.Values{
		"form_token": {token}, "name": {"LogoCafe"}, "description": {"Has a logo"}, "location": {"Downtown"},
	}, "logo.png", pngBytes(t))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("upload submit: %d\n%s", rr.Code, rr.Body.String())
	}
	cafes, _ := tc.store.ListCafes(context.Background(), "")
	if len(cafes) != 1 || !strings.HasPrefix(cafes[0].LogoURL, "uploads/cafes/") {
		t.Fatalf("expected stored logo path, got %+v", cafes)
	}

	thumb := tc.get(t, "/cafes/logo?path="+url.QueryEscape(cafes[0].LogoURL))
	if thumb.Code != http.StatusOK || thumb.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("thumbnail: %d %q", thumb.Code, thumb.Header().Get("Content-Type"))
	}
	img, err := png.Decode(bytes.NewReader(thumb.Body.Bytes()))
	if err != nil || img.Bounds().Dx() != 64 {
		t.Fatalf("expected 64px thumbnail, err=%v", err)
	}

	if rr := tc.get(t, "/"+cafes[0].LogoURL); rr.Code != http.StatusOK {
		t.Fatalf("uploads proxy: %d", rr.Code)
	}
	if rr := tc.get(t, "/cafes/logo?path=etc/passwd"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected paths outside uploads to be refused, got %d", rr.Code)
	}
}

func TestCafeLogoRejected(t *testing.T) {
	tc := newTestConsole(t)
	token := formToken(t, tc.get(t, "/cafes/add").Body.String())

	rr := tc.postMultipart(t, "/cafes/add", url.Values{
		"form_token": {token}, "name": {"LogoCafe"}, "description": {"Has a logo"}, "location": {"Downtown"},
	}, "logo.txt", []byte("plain text, not an image"))
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "Logo must be a JPEG, PNG, GIF or WebP image") {
		t.Fatalf("expected logo rejection, got %d:\n%s", rr.Code, rr.Body.String())
	}
	if tc.writes.Load() != 0 {
		t.Fatalf("rejected logo reached the API")
	}
}

func TestExports(t *testing.T) {
	tc := newTestConsole(t)
	tc.createCafe(t, "ExportMe", "Downtown")

	rr := tc.get(t, "/cafes/export.xlsx")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != xlsxContentType || !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx export: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("expected attachment disposition")
	}
	rr = tc.get(t, "/employees/export.pdf")
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf export: %d", rr.Code)
	}
}

func TestListShowsNoticeWhenAPIUnavailable(t *testing.T) {
	client := cafeapi.New("http://127.0.0.1:1", &http.Client{Timeout: time.Second})
	h := NewHandler(client, querycache.New(), nil, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cafes", nil))
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "Cafés could not be loaded.") || !strings.Contains(body, `class="notice error"`) {
		t.Fatalf("expected error notice:\n%s", body)
	}
}

func TestNavHighlightsSection(t *testing.T) {
	tc := newTestConsole(t)
	body := tc.get(t, "/employees/add").Body.String()
	if !strings.Contains(body, `href="/employees" data-nav class="active"`) {
		t.Fatalf("expected employees menu entry active:\n%s", body)
	}
}

func TestLocalTarget(t *testing.T) {
	cases := map[string]string{
		"/employees?cafeId=1": "/employees?cafeId=1",
		"/cafes":              "/cafes",
		"//evil.example":      "/cafes",
		"https://evil.test/":  "/cafes",
		"/\\evil":             "/cafes",
		"":                    "/cafes",
		"/elsewhere":          "/cafes",
	}
	for raw, want := range cases {
		if got := localTarget(raw, "/cafes"); got != want {
			t.Fatalf("localTarget(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCafeEmployeeCountRefreshesAfterEmployeeCreate(t *testing.T) {
	tc := newTestConsole(t)

	token := formToken(t, tc.get(t, "/cafes/add").Body.String())
	rr := tc.post(t, "/cafes/add", url.Values{
		"form_token": {token},
		"name":       {"CoffeeHub"}, "description": {"Corner shop"}, "location": {"Downtown"},
	})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("create cafe: %d\n%s", rr.Code, rr.Body.String())
	}
	cafes, _ := tc.store.ListCafes(context.Background(), "")
	if len(cafes) != 1 {
		t.Fatalf("expected one cafe, got %+v", cafes)
	}
	cafe := cafes[0]

	if body := tc.get(t, "/cafes").Body.String(); !strings.Contains(body, `cafeName=CoffeeHub">0</a>`) {
		t.Fatalf("expected employee count 0:\n%s", body)
	}

	token = formToken(t, tc.get(t, "/employees/add?cafeId="+cafe.ID).Body.String())
	rr = tc.post(t, "/employees/add", url.Values{
		"form_token":    {token},
		"name":          {"JohnSmith"},
		"email_address": {"john@example.com"},
		"phone_number":  {"81234567"},
		"gender":        {"Male"},
		"cafe_id":       {cafe.ID},
		"start_date":    {""},
	})
	if rr.Code != http.StatusSeeOther || notice(t, rr, "success") != "Employee created" {
		t.Fatalf("create employee: %d %q", rr.Code, rr.Header().Get("Location"))
	}

	if body := tc.get(t, "/cafes").Body.String(); !strings.Contains(body, `cafeName=CoffeeHub">1</a>`) {
		t.Fatalf("expected employee count 1 after invalidation:\n%s", body)
	}
	body := tc.get(t, "/employees?cafeId="+cafe.ID).Body.String()
	if !strings.Contains(body, "JohnSmith") || !strings.Contains(body, "<td>CoffeeHub</td>") {
		t.Fatalf("expected employee listed under the cafe:\n%s", body)
	}

	employees, _ := tc.store.ListEmployees(context.Background(), cafe.ID)
	if len(employees) != 1 {
		t.Fatalf("expected one employee, got %+v", employees)
	}
	logs := tc.logs.String()
	for _, id := range []string{cafe.ID, employees[0].ID} {
		if !strings.Contains(logs, `"id":"`+id+`"`) {
			t.Fatalf("expected saved id %s in logs:\n%s", id, logs)
		}
	}
}

func TestAssetsServed(t *testing.T) {
	tc := newTestConsole(t)
	rr := tc.get(t, "/assets/app.js")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/javascript") {
		t.Fatalf("app.js: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "submit.disabled = false") {
		t.Fatalf("expected the script to enable submit buttons")
	}
	if rr := tc.get(t, "/assets/app.css"); rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/css") {
		t.Fatalf("app.css: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
}
