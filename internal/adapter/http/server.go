package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/pm-density-service/internal/dashboard"
	"github.com/couchcryptid/pm-density-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Dashboard is the query surface exposed over HTTP.
type Dashboard interface {
	Validate(year, month, day int) bool
	GetSummary(year, month, day int) (domain.Summary, error)
	Upload(ctx context.Context, raw []byte, encoding string) ([]domain.Reading, error)
	UploadForDate(ctx context.Context, year, month, day int, raw []byte, encoding string) (dashboard.UploadResult, error)
}

// Accounts authenticates users and creates accounts.
type Accounts interface {
	Authenticate(username, password string) bool
	CreateAccount(username, password string) error
}

// Server exposes health, readiness, metrics, and dashboard API routes.
type Server struct {
	httpServer     *http.Server
	dashboard      Dashboard
	accounts       Accounts
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and /api/v1 routes.
func NewServer(addr string, ready ReadinessChecker, dash Dashboard, accounts Accounts, maxUploadBytes int64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dashboard:      dash,
		accounts:       accounts,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/v1/accounts", s.handleCreateAccount)
	mux.HandleFunc("POST /api/v1/sessions", s.handleLogin)
	mux.HandleFunc("GET /api/v1/dates/{year}/{month}/{day}/validate", s.handleValidate)
	mux.HandleFunc("GET /api/v1/dates/{year}/{month}/{day}/summary", s.requireAuth(s.handleSummary))
	mux.HandleFunc("POST /api/v1/dates/{year}/{month}/{day}/uploads", s.requireAuth(s.handleUploadForDate))
	mux.HandleFunc("POST /api/v1/uploads", s.requireAuth(s.handleUpload))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// requireAuth checks HTTP basic credentials against the account store.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !s.accounts.Authenticate(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="pm-density"`)
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
