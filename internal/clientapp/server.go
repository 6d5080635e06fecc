package clientapp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/cafesuite/internal/cafeapi"
	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/phillip-england/cafesuite/internal/envutil"
	"github.com/phillip-england/cafesuite/internal/forms"
	"github.com/phillip-england/cafesuite/internal/logging"
	"github.com/phillip-england/cafesuite/internal/middleware"
	"github.com/phillip-england/cafesuite/internal/querycache"
)

const (
	viewportCookieName   = "cafesuite_vw"
	defaultViewportWidth = 1200
)

type Config struct {
	Addr         string
	APIBaseURL   string
	APITimeout   time.Duration
	FormIdle     time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string
}

//go:embed templates/layout.html templates/cafes.html templates/employees.html templates/cafe_form.html templates/employee_form.html assets/app.css assets/app.js
var templatesFS embed.FS

type server struct {
	api       *cafeapi.Client
	cache     *querycache.Store
	forms     *forms.Registry
	log       *slog.Logger
	cafesTmpl *template.Template
	emplTmpl  *template.Template
	cafeForm  *template.Template
	emplForm  *template.Template
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:         envutil.String("CLIENT_ADDR", ":3000"),
		APIBaseURL:   envutil.String("API_BASE_URL", "http://localhost:8080"),
		APITimeout:   envutil.Duration("API_TIMEOUT", 8*time.Second),
		FormIdle:     30 * time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		LogLevel:     envutil.String("LOG_LEVEL", "info"),
	}
}

func Run(ctx context.Context, cfg Config) error {
	log := logging.New("console", cfg.LogLevel)
	if os.Getenv("API_BASE_URL") == "" {
		log.Warn("API_BASE_URL not set; using default", "api", cfg.APIBaseURL)
	}
	api := cafeapi.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout})
	registry := forms.NewRegistry(cfg.FormIdle)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(api, querycache.New(), registry, log),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	go sweepForms(ctx, registry, cfg.FormIdle, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("console listening", "addr", "http://localhost"+cfg.Addr, "api", api.BaseURL())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func sweepForms(ctx context.Context, registry *forms.Registry, idle time.Duration, log *slog.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := registry.Sweep(); removed > 0 {
				log.Debug("expired idle forms", "count", removed)
			}
		}
	}
}

// NewHandler builds the console. The cache is shared by every request and
// is the only place fetched lists live.
func NewHandler(api *cafeapi.Client, cache *querycache.Cache, registry *forms.Registry, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if registry == nil {
		registry = forms.NewRegistry(0)
	}
	s := &server{
		api:       api,
		cache:     querycache.NewStore(cache, api),
		forms:     registry,
		log:       log,
		cafesTmpl: parsePage("templates/cafes.html"),
		emplTmpl:  parsePage("templates/employees.html"),
		cafeForm:  parsePage("templates/cafe_form.html"),
		emplForm:  parsePage("templates/employee_form.html"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/cafes", http.StatusFound)
	})
	mux.HandleFunc("GET /healthz", s.health)
	mux.HandleFunc("GET /assets/app.css", s.assetFile("assets/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /assets/app.js", s.assetFile("assets/app.js", "text/javascript; charset=utf-8"))
	mux.HandleFunc("GET /uploads/{path...}", s.uploadsProxy)

	mux.HandleFunc("GET /cafes", s.cafesPage)
	mux.HandleFunc("POST /cafes/delete", s.deleteCafe)
	mux.HandleFunc("GET /cafes/export.xlsx", s.exportCafes("xlsx"))
	mux.HandleFunc("GET /cafes/export.pdf", s.exportCafes("pdf"))
	mux.HandleFunc("GET /cafes/logo", s.cafeLogo)
	mux.HandleFunc("GET /cafes/add", s.cafeFormPage)
	mux.HandleFunc("POST /cafes/add", s.submitCafeForm)
	mux.HandleFunc("POST /cafes/add/leave", s.leaveCafeForm)
	mux.HandleFunc("GET /cafes/edit/{id}", s.cafeFormPage)
	mux.HandleFunc("POST /cafes/edit/{id}", s.submitCafeForm)
	mux.HandleFunc("POST /cafes/edit/{id}/leave", s.leaveCafeForm)

	mux.HandleFunc("GET /employees", s.employeesPage)
	mux.HandleFunc("POST /employees/delete", s.deleteEmployee)
	mux.HandleFunc("GET /employees/export.xlsx", s.exportEmployees("xlsx"))
	mux.HandleFunc("GET /employees/export.pdf", s.exportEmployees("pdf"))
	mux.HandleFunc("GET /employees/add", s.employeeFormPage)
	mux.HandleFunc("POST /employees/add", s.submitEmployeeForm)
	mux.HandleFunc("POST /employees/add/leave", s.leaveEmployeeForm)
	mux.HandleFunc("GET /employees/edit/{id}", s.employeeFormPage)
	mux.HandleFunc("POST /employees/edit/{id}", s.submitEmployeeForm)
	mux.HandleFunc("POST /employees/edit/{id}/leave", s.leaveEmployeeForm)

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'self'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.RequestLog(log),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", name))
}

var templateFuncs = template.FuncMap{
	"genderIcon": func(g domain.Gender) string {
		switch g {
		case domain.GenderMale:
			return "♂"
		case domain.GenderFemale:
			return "♀"
		}
		return ""
	},
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *server) assetFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := templatesFS.ReadFile(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "private, max-age=300")
		_, _ = w.Write(data)
	}
}

// uploadsProxy serves stored logos from the API host so the browser only
// ever talks to the console.
func (s *server) uploadsProxy(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.api.FetchFile(r.Context(), "uploads/"+r.PathValue("path"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

type navItem struct {
	Label  string
	Href   string
	Active bool
}

type pageData struct {
	Title   string
	Section string
	Nav     []navItem
	Error   string
	Success string

	// list views
	Loading     bool
	Location    string
	SortKey     string
	SortDir     string
	FilterCafe  *cafeFilterView
	Columns     []columnView
	GridWidth   int
	CafeRows    []cafeRowView
	EmplRows    []employeeRowView
	Pager       pagerView
	Delete      *deleteView
	Preview     *previewView
	ExportXLSX  string
	ExportPDF   string
	AddURL      string
	ReturnQuery string

	// form views
	Form *formView
}

// sectionFor maps a request path onto the menu entry that owns it.
func sectionFor(path string) string {
	switch {
	case path == "/employees" || strings.HasPrefix(path, "/employees/"):
		return "employees"
	default:
		return "cafes"
	}
}

func newPage(r *http.Request, title string) pageData {
	section := sectionFor(r.URL.Path)
	return pageData{
		Title:   title,
		Section: section,
		Nav: []navItem{
			{Label: "Cafés", Href: "/cafes", Active: section == "cafes"},
			{Label: "Employees", Href: "/employees", Active: section == "employees"},
		},
		Error:   strings.TrimSpace(r.URL.Query().Get("error")),
		Success: strings.TrimSpace(r.URL.Query().Get("success")),
	}
}

func (s *server) render(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.log.Error("template render failed", "template", tmpl.Name(), "error", err)
		http.Error(w, "template render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// redirectWithNotice sends the browser to target with a success or error
// notice carried in the query string.
func redirectWithNotice(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Del("success")
	q.Del("error")
	if message != "" {
		q.Set(kind, message)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// localTarget accepts only paths inside the console, so posted return and
// next values cannot send the browser elsewhere.
func localTarget(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	if sectionFor(u.Path) == "cafes" && u.Path != "/cafes" && !strings.HasPrefix(u.Path, "/cafes/") {
		return fallback
	}
	return u.String()
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func viewportWidth(r *http.Request) int {
	cookie, err := r.Cookie(viewportCookieName)
	if err != nil {
		return defaultViewportWidth
	}
	width := parsePositiveInt(cookie.Value, defaultViewportWidth)
	if width < 320 || width > 10000 {
		return defaultViewportWidth
	}
	return width
}
