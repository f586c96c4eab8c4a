// Package api exposes horoscope lookups, the sign catalog, favorites and
// rewrites over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danrleybayoshi/horoscopo/internal/tracing"
)

// ServerOptions configures the HTTP server. Zero-value timeouts leave the
// corresponding http.Server field at its default (no timeout).
type ServerOptions struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TracingEnabled bool
	// AuthToken guards the /v1 routes when non-empty. Health and metrics
	// stay open.
	AuthToken string
}

// Server binds the chi router to the configured address and provides
// graceful shutdown support.
type Server struct {
	router  chi.Router
	handler *Handler
	httpSrv *http.Server
}

// NewServer mounts the handler's routes on a new chi router.
func NewServer(handler *Handler, opts ServerOptions) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	if opts.TracingEnabled {
		r.Use(tracing.HTTPMiddleware)
	}

	r.Get("/health", handler.HandleHealth)
	r.Get("/health/ready", handler.HandleReady)
	r.Handle("/metrics", handler.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		if opts.AuthToken != "" {
			r.Use(AuthMiddleware(opts.AuthToken))
		}
		r.Use(handler.trackActive)

		r.Get("/signs", handler.HandleListSigns)
		r.Get("/signs/{sign}", handler.HandleGetSign)
		r.Get("/signs/{sign}/horoscope", handler.HandleHoroscope)

		r.Get("/providers", handler.HandleProviders)

		r.Get("/favorites", handler.HandleListFavorites)
		r.Put("/favorites/{sign}", handler.HandleAddFavorite)
		r.Delete("/favorites/{sign}", handler.HandleRemoveFavorite)
		r.Post("/favorites/{sign}/toggle", handler.HandleToggleFavorite)

		r.Post("/rewrite", handler.HandleRewrite)

		r.Get("/stats", handler.HandleStats)
		r.Get("/lookups", handler.HandleListLookups)
	})

	return &Server{
		router:  r,
		handler: handler,
		httpSrv: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
	}
}

// Router returns the underlying chi.Router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

// Start begins listening for HTTP connections on the configured address.
// It blocks until the server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
