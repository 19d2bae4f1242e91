package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docexport/internal/config"
	"github.com/dgallion1/docexport/internal/convert"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docexport.
type Server struct {
	router     chi.Router
	supervisor *convert.Supervisor
	log        *slog.Logger
	cfg        config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sup *convert.Supervisor, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		supervisor: sup,
		log:        log,
		cfg:        cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/export", s.handleExport)
		r.Get("/api/export/{docID}", s.handleGetArtifact)
		r.Delete("/api/export/{docID}", s.handleEvict)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
