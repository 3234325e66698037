package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/org/rostervault/internal/session"
)

// Config holds server configuration.
type Config struct {
	ListenAddr string
	// APIToken, when set, must be presented in X-Roster-Token on every
	// /v1 request except health.
	APIToken string
}

// Server exposes a session over HTTP.
type Server struct {
	sess    *session.Session
	cfg     Config
	now     func() time.Time
	httpSrv *http.Server
}

// NewServer creates a Server around sess.
func NewServer(sess *session.Session, cfg Config) *Server {
	return &Server{sess: sess, cfg: cfg, now: time.Now}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(logMiddleware)

	r.Handle("/metrics", MetricsHandler())
	r.Get("/v1/sys/health", s.HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.APIToken))

		r.Get("/v1/members", s.MemberListHandler)
		r.Get("/v1/members/{id}", s.MemberGetHandler)

		r.Post("/v1/sys/scrape", s.ScrapeHandler)
		r.Post("/v1/sys/reload", s.ReloadHandler)
		r.Post("/v1/sys/save", s.SaveHandler)
		r.Post("/v1/sys/prune", s.PruneHandler)
	})

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.BuildRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
