package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"3tcapital/ms_siigo_gateway/internal/infrastructure/config"
	httperrors "3tcapital/ms_siigo_gateway/internal/infrastructure/http"
	"3tcapital/ms_siigo_gateway/internal/infrastructure/http/middleware"
)

// RouteRegistrar mounts a group of API routes. Registered routes sit behind JWT
// validation and the per-request timeout.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Options configures the HTTP server.
type Options struct {
	Config         config.AppConfig
	Logger         *slog.Logger
	HealthHandler  http.Handler
	MetricsHandler http.Handler // nil disables the metrics endpoint
	Routes         []RouteRegistrar
}

// Server wraps the gateway HTTP server.
type Server struct {
	log          *slog.Logger
	httpServer   *http.Server
	auth         *middleware.JWTAuthenticator
	httpSettings config.HTTPSettings
}

// New builds the router and the underlying http.Server.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	auth, err := middleware.NewJWTAuthenticator(opts.Config.Auth, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("configure jwt authenticator: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	if opts.MetricsHandler != nil {
		r.Use(middleware.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, http.StatusNotFound, "Ruta no encontrada", nil, opts.Logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, http.StatusMethodNotAllowed, "Método no permitido", nil, opts.Logger)
	})

	r.Method(http.MethodGet, "/health", opts.HealthHandler)
	if opts.MetricsHandler != nil {
		metricsPath := opts.Config.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.Method(http.MethodGet, metricsPath, opts.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		api.Use(auth.Middleware)
		api.Use(middleware.RequestTimeout(opts.Config.HTTP.RequestTimeout))
		for _, routes := range opts.Routes {
			if routes != nil {
				routes.Register(api)
			}
		}
	})

	srv := &http.Server{
		Addr:         opts.Config.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  opts.Config.HTTP.ReadTimeout,
		WriteTimeout: opts.Config.HTTP.WriteTimeout,
		IdleTimeout:  opts.Config.HTTP.IdleTimeout,
	}

	return &Server{
		log:          opts.Logger,
		httpServer:   srv,
		auth:         auth,
		httpSettings: opts.Config.HTTP,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server")
		shutdownCtx := context.Background()
		if timeout := s.httpSettings.ShutdownTimeout; timeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, timeout)
			defer cancel()
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the JWKS refresher.
func (s *Server) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
}
