package apiapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phillip-england/recruitsuite/internal/domain"
	"github.com/phillip-england/recruitsuite/internal/envutil"
	"github.com/phillip-england/recruitsuite/internal/metrics"
	"github.com/phillip-england/recruitsuite/internal/middleware"
	"github.com/phillip-england/recruitsuite/internal/security"
	"github.com/phillip-england/recruitsuite/internal/store"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Addr              string
	Database          store.Config
	AdminUsername     string
	AdminPasswordHash string
}

type server struct {
	db                *store.DB
	logger            *slog.Logger
	adminUsername     string
	adminPasswordHash string
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr: envutil.String("API_ADDR", ":8080"),
		Database: store.Config{
			Driver:           envutil.String("DATABASE_DRIVER", ""),
			URL:              envutil.String("DATABASE_URL", "recruits.db"),
			StatementTimeout: envutil.Duration("STATEMENT_TIMEOUT", store.DefaultStatementTimeout),
		},
		AdminUsername:     strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
	}
}

func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPasswordHash == "" {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD_HASH are required")
	}
	if !security.ValidHash(cfg.AdminPasswordHash) {
		return errors.New("ADMIN_PASSWORD_HASH is not a valid password hash (run setup)")
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CreateTables(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(db, cfg, logger, metrics.New()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", cfg.Addr)
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

// NewHandler builds the routed API. Mutating routes require the admin's Basic credentials.
func NewHandler(db *store.DB, cfg Config, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{
		db:                db,
		logger:            logger,
		adminUsername:     cfg.AdminUsername,
		adminPasswordHash: cfg.AdminPasswordHash,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger, m.ObserveRequest))
	r.Get("/api/health", s.health)
	r.Get("/api/members", s.listMembers)
	r.Get("/api/team-leaders", s.listTeamLeaders)
	r.Get("/api/calendar", s.listCalendar)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/api/members", s.createMember)
		r.Post("/api/advisors", s.createAdvisor)
		r.Put("/api/members/{id}", s.updateMember)
		r.Put("/api/members/{id}/sales", s.updateSales)
		r.Delete("/api/members/{id}", s.deleteMember)
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return middleware.Chain(
		r,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'"}),
	)
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !security.CheckCredentials(username, password, s.adminUsername, s.adminPasswordHash) {
			w.Header().Set("WWW-Authenticate", `Basic realm="recruitsuite", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.SQL().PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStoreError maps the domain error taxonomy onto status codes.
func (s *server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrMalformedInput), errors.Is(err, domain.ErrLookupMiss):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return domain.Malformed("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Malformed("invalid member id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
