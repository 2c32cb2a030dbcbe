// Package server exposes the bundling pipeline over HTTP.
//
// Routes:
//
//	GET /healthz                 liveness and build version
//	GET /bundle/{spec}           bundle a package; spec is a request string
//	                             such as @scope/name@1.2.0/sub?platforms=web
//
// A bundle response is the BundledPackage JSON plus the run's warnings and
// per-platform failures. Add code=true to embed each artifact's source.
// Errors are returned as {"error": {"code": ..., "message": ...}} with a
// status derived from the error code (see [StatusCode]).
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/snackpack/pkg/pipeline"
)

// Bundler runs bundling requests.
type Bundler interface {
	Execute(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Options configures a Server.
type Options struct {
	Addr            string        // Listen address (default: ":8080")
	MaxInFlight     int           // Concurrent bundle requests; 0 means unlimited
	ShutdownTimeout time.Duration // Grace period for in-flight requests (default: 30s)
}

// Server serves bundle requests.
type Server struct {
	bundler Bundler
	opts    Options
	logger  *log.Logger
	router  chi.Router
}

// New creates a server around b.
func New(b Bundler, opts Options, logger *log.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{bundler: b, opts: opts, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		if s.opts.MaxInFlight > 0 {
			r.Use(middleware.Throttle(s.opts.MaxInFlight))
		}
		r.Get("/bundle/*", s.handleBundle)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
	return r
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then drains in-flight requests
// for up to ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down", "timeout", s.opts.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
