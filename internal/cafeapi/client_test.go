package cafeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/phillip-england/cafesuite/internal/domain"
)

func TestListCafesSendsLocationFilter(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/cafes" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]domain.Cafe{{ID: "c1", Name: "CoffeeHub", Employees: 2}})
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	cafes, err := client.ListCafes(context.Background(), " Downtown ")
	if err != nil {
		t.Fatalf("list cafes: %v", err)
	}
	if gotQuery != "location=Downtown" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(cafes) != 1 || cafes[0].Employees != 2 {
		t.Fatalf("unexpected cafes %+v", cafes)
	}

	if _, err := client.ListCafes(context.Background(), ""); err != nil {
		t.Fatalf("list all cafes: %v", err)
	}
	if gotQuery != "" {
		t.Fatalf("expected no query for empty filter, got %q", gotQuery)
	}
}

func TestCreateEmployeePostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/employees" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in domain.EmployeeInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if in.ID != "" {
			t.Errorf("create must not send an id, got %q", in.ID)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Employee{ID: "UI1234567", Name: in.Name, CafeID: in.CafeID})
	}))
	defer srv.Close()

	out, err := New(srv.URL, srv.Client()).CreateEmployee(context.Background(), domain.EmployeeInput{
		ID:   "client-made",
		Name: "JohnSmith",
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if out.ID != "UI1234567" || out.Name != "JohnSmith" {
		t.Fatalf("unexpected employee %+v", out)
	}
}

func TestUpdateRequiresIDWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	if _, err := client.UpdateCafe(context.Background(), domain.CafeInput{Name: "CoffeeHub"}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if _, err := client.UpdateEmployee(context.Background(), domain.EmployeeInput{}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no requests, got %d", calls.Load())
	}
}

func TestErrorCarriesServerDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Cafe not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).DeleteCafe(context.Background(), "missing")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Cafe not found" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if got := Message(err, "Failed to delete cafe"); got != "Cafe not found" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorDetailList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"msg":"name too short"},{"msg":"bad phone"}]}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).CreateCafe(context.Background(), domain.CafeInput{})
	if got := Message(err, ""); got != "name too short; bad phone" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMessageFallback(t *testing.T) {
	if got := Message(errors.New("dial tcp: refused"), "Failed to create cafe"); got != "Failed to create cafe" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestUploadLogoMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cafes/upload-logo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "logo.png" || string(data) != "png-bytes" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		_ = json.NewEncoder(w).Encode(LogoUpload{FilePath: "uploads/cafes/abc_logo.png", Filename: "abc_logo.png"})
	}))
	defer srv.Close()

	out, err := New(srv.URL, srv.Client()).UploadLogo(context.Background(), []byte("png-bytes"), "logo.png")
	if err != nil {
		t.Fatalf("upload logo: %v", err)
	}
	if out.FilePath != "uploads/cafes/abc_logo.png" {
		t.Fatalf("unexpected path %q", out.FilePath)
	}
}

func TestFetchFileRejectsTraversal(t *testing.T) {
	client := New("http://127.0.0.1:0", nil)
	if _, _, err := client.FetchFile(context.Background(), "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}
