// Package server exposes the scraper behind a small HTML form and a JSON
// endpoint.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"branch-address-scraper/internal/app"
	"branch-address-scraper/internal/normalize"
	"branch-address-scraper/internal/observability"
)

//go:embed static/index.html
var staticFS embed.FS

const (
	errMissingURL   = "Please enter a website URL."
	errMissingNames = "Please enter at least one branch name (comma-separated)."

	maxRequestBytes = 1 << 20
)

// Scraper is the part of app.Orchestrator the handlers need.
type Scraper interface {
	Scrape(ctx context.Context, url string, branchNames []string) ([]app.BranchRecord, error)
}

type scrapeRequest struct {
	URL         string `json:"url"`
	BranchNames string `json:"branch_names"`
}

type scrapeResponse struct {
	Branches []app.BranchRecord `json:"branches"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	scraper     Scraper
	logger      *observability.Logger
	router      chi.Router
	corsOrigins []string
}

type Option func(*Server)

// WithCORS allows browser calls to /scrape from the given origins.
func WithCORS(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

func New(s Scraper, logger *observability.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	srv := &Server{scraper: s, logger: logger}
	for _, opt := range opts {
		opt(srv)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(srv.requestLogger)
	r.Use(middleware.Recoverer)
	if len(srv.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: srv.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/", srv.handleIndex)
	r.Get("/health", srv.handleHealth)
	r.Post("/scrape", srv.handleScrape)

	srv.router = r
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then drains
// in-flight requests for at most shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	// a missing or malformed body is treated like an empty form
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req)

	pageURL := strings.TrimSpace(req.URL)
	branchInput := strings.TrimSpace(req.BranchNames)

	if pageURL == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errMissingURL})
		return
	}
	if branchInput == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errMissingNames})
		return
	}

	records, err := s.scraper.Scrape(r.Context(), pageURL, normalize.SplitNames(branchInput))
	if err != nil {
		var fetchErr *app.FetchError
		if errors.As(err, &fetchErr) {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("Scrape failed", "url", pageURL, "error", err.Error())
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if records == nil {
		records = []app.BranchRecord{}
	}
	s.writeJSON(w, http.StatusOK, scrapeResponse{Branches: records})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err.Error())
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
