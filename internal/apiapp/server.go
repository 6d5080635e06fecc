package apiapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/phillip-england/cafesuite/internal/envutil"
	"github.com/phillip-england/cafesuite/internal/logging"
	"github.com/phillip-england/cafesuite/internal/middleware"
	"github.com/phillip-england/cafesuite/internal/store"
)

const maxLogoBytes = 2 * 1024 * 1024

var allowedLogoTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type Config struct {
	Addr        string
	DatabaseDSN string
	UploadDir   string
	CORSOrigins []string
	SeedOnStart bool
	LogLevel    string
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:        envutil.String("API_ADDR", ":8080"),
		DatabaseDSN: envutil.String("DATABASE_DSN", ""),
		UploadDir:   envutil.String("UPLOAD_DIR", "uploads"),
		CORSOrigins: envutil.List("CORS_ORIGINS", []string{"http://localhost:3000"}),
		SeedOnStart: envutil.Bool("SEED_ON_START", false),
		LogLevel:    envutil.String("LOG_LEVEL", "info"),
	}
}

// OpenStore returns the PostgreSQL store when a DSN is configured and an
// in-memory store otherwise.
func OpenStore(ctx context.Context, cfg Config, log *slog.Logger) (store.Store, error) {
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		log.Warn("DATABASE_DSN not set; records are kept in memory and lost on exit")
		return store.NewMemoryStore(), nil
	}
	return store.OpenGorm(ctx, cfg.DatabaseDSN, log)
}

func Run(ctx context.Context, cfg Config) error {
	log := logging.New("api", cfg.LogLevel)

	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if cfg.SeedOnStart {
		result, err := store.Seed(ctx, st)
		if err != nil {
			return err
		}
		log.Info("seed finished", "skipped", result.Skipped, "cafes", result.Cafes, "employees", result.Employees)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(st, cfg.UploadDir, cfg.CORSOrigins, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", "addr", "http://localhost"+cfg.Addr)
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

type server struct {
	store     store.Store
	uploadDir string
	log       *slog.Logger
}

// NewHandler builds the REST API: cafés and employees under /api, uploaded
// files under /uploads and a liveness probe at /health.
func NewHandler(st store.Store, uploadDir string, origins []string, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	s := &server{store: st, uploadDir: uploadDir, log: log}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(origins)))

	router.GET("/health", s.health)
	api := router.Group("/api")
	{
		api.GET("/cafes", s.listCafes)
		api.POST("/cafes", s.createCafe)
		api.PUT("/cafes", s.updateCafe)
		api.DELETE("/cafes", s.deleteCafe)
		api.POST("/cafes/upload-logo", s.uploadLogo)

		api.GET("/employees", s.listEmployees)
		api.POST("/employees", s.createEmployee)
		api.PUT("/employees", s.updateEmployee)
		api.DELETE("/employees", s.deleteEmployee)
	}
	router.Static("/uploads", uploadDir)
	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "Not found")
	})

	return middleware.Chain(
		router,
		middleware.RequestLog(log),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{}),
	)
}

// corsConfig allows the listed origins, or any origin without credentials
// when the list is empty or contains "*".
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) listCafes(c *gin.Context) {
	cafes, err := s.store.ListCafes(c.Request.Context(), c.Query("location"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cafes)
}

func (s *server) createCafe(c *gin.Context) {
	var in domain.CafeInput
	if !bindInput(c, &in) {
		return
	}
	in.ID = ""
	if errs := in.Validate(); errs != nil {
		writeValidation(c, errs)
		return
	}
	cafe, err := s.store.CreateCafe(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cafe)
}

func (s *server) updateCafe(c *gin.Context) {
	var in domain.CafeInput
	if !bindInput(c, &in) {
		return
	}
	if strings.TrimSpace(in.ID) == "" {
		writeError(c, http.StatusBadRequest, "Cafe id is required")
		return
	}
	if errs := in.Validate(); errs != nil {
		writeValidation(c, errs)
		return
	}
	cafe, err := s.store.UpdateCafe(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cafe)
}

func (s *server) deleteCafe(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		writeError(c, http.StatusBadRequest, "Cafe id is required")
		return
	}
	if err := s.store.DeleteCafe(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) listEmployees(c *gin.Context) {
	employees, err := s.store.ListEmployees(c.Request.Context(), c.Query("cafe"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (s *server) createEmployee(c *gin.Context) {
	var in domain.EmployeeInput
	if !bindInput(c, &in) {
		return
	}
	in.ID = ""
	if errs := in.Validate(); errs != nil {
		writeValidation(c, errs)
		return
	}
	employee, err := s.store.CreateEmployee(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (s *server) updateEmployee(c *gin.Context) {
	var in domain.EmployeeInput
	if !bindInput(c, &in) {
		return
	}
	if strings.TrimSpace(in.ID) == "" {
		writeError(c, http.StatusBadRequest, "Employee id is required")
		return
	}
	if errs := in.Validate(); errs != nil {
		writeValidation(c, errs)
		return
	}
	employee, err := s.store.UpdateEmployee(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (s *server) deleteEmployee(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		writeError(c, http.StatusBadRequest, "Employee id is required")
		return
	}
	if err := s.store.DeleteEmployee(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// uploadLogo stores a café logo under <upload dir>/cafes and returns the
// relative path the café record should carry.
func (s *server) uploadLogo(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLogoBytes+(1<<20))
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "Logo file is required")
		return
	}
	if header.Size > maxLogoBytes {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("File size must be less than 2MB. Received: %.2fMB", float64(header.Size)/(1024*1024)))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "Unable to read logo file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxLogoBytes+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, "Unable to read logo file")
		return
	}
	if len(data) > maxLogoBytes {
		writeError(c, http.StatusBadRequest, "File size must be less than 2MB")
		return
	}
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedLogoTypes...) {
		writeError(c, http.StatusBadRequest, "Logo must be a JPEG, PNG, GIF or WebP image")
		return
	}

	base := unsafeFilenameChars.ReplaceAllString(filepath.Base(header.Filename), "_")
	if strings.Trim(base, "._") == "" {
		base = "logo" + mtype.Extension()
	}
	filename := uuid.NewString() + "_" + base
	dir := filepath.Join(s.uploadDir, "cafes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.fail(c, fmt.Errorf("create upload dir: %w", err))
		return
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		s.fail(c, fmt.Errorf("write logo: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_path": "uploads/cafes/" + filename,
		"filename":  filename,
	})
}

func bindInput(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// fail maps store errors onto status codes. Anything unrecognised is a 500
// and is logged.
func (s *server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, notFoundMessage(c))
	case errors.Is(err, store.ErrConflict):
		writeError(c, http.StatusConflict, "Email address already exists")
	case errors.Is(err, store.ErrUnknownCafe):
		writeError(c, http.StatusBadRequest, "Cafe not found")
	default:
		s.log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		writeError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func notFoundMessage(c *gin.Context) string {
	if strings.HasPrefix(c.Request.URL.Path, "/api/employees") {
		return "Employee not found"
	}
	return "Cafe not found"
}

func writeValidation(c *gin.Context, errs domain.FieldErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": errs.Error(), "fields": errs})
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}
