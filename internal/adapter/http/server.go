package http

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/biodiversity-map/internal/domain"
	"github.com/couchcryptid/biodiversity-map/internal/orchestrator"
	"github.com/couchcryptid/biodiversity-map/internal/render"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	chirender "github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed web
var webFS embed.FS

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// CityService loads cities into a session state and re-filters them.
type CityService interface {
	LoadCity(ctx context.Context, st *orchestrator.State, name string, fs domain.FilterState) (render.CityView, error)
	Refilter(st *orchestrator.State, fs domain.FilterState) render.ListView
}

// Server exposes the map page, the JSON API, and the health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cities     CityService
	sessions   *orchestrator.Store
	index      *template.Template
}

// NewServer creates an HTTP server with the page, API, and operational routes.
func NewServer(addr string, cities CityService, sessions *orchestrator.Store, ready ReadinessChecker, logger *slog.Logger) *Server {
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err) // embedded directory is fixed at build time
	}

	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     r,
			ReadTimeout: 10 * time.Second,
			// City loads wait on two sequential upstream calls.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:   logger,
		cities:   cities,
		sessions: sessions,
		index:    template.Must(template.ParseFS(webFS, "web/index.html")),
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Route("/api", func(r chi.Router) {
		r.Use(chirender.SetContentType(chirender.ContentTypeJSON))
		r.Post("/city", s.handleLoadCity)
		r.Get("/observations", s.handleObservations)
	})

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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	chirender.JSON(w, r, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			chirender.Status(r, http.StatusServiceUnavailable)
			chirender.JSON(w, r, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		chirender.JSON(w, r, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Issue the session cookie with the page so the first API call reuses it.
	s.session(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, render.DefaultMapView()); err != nil {
		s.logger.Error("render index page", "error", err)
	}
}
