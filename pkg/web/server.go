package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ohaddad/shopsnap/pkg/imghost"
	"github.com/ohaddad/shopsnap/pkg/observability"
	"github.com/ohaddad/shopsnap/pkg/storage"
)

// Server wraps an http.Server for the bot's sidecar endpoints and manages
// the full lifecycle including startup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     Config
	logger     *slog.Logger
	images     *imghost.SelfServe
	store      storage.Store
}

// Config holds configuration for the sidecar server.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) { s.config.Addr = addr }
}

// WithTimeouts sets the read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.config.ReadTimeout = read
		s.config.WriteTimeout = write
	}
}

// WithShutdownTimeout sets the graceful shutdown deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.config.ShutdownTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithImages enables the /i/{token} route backed by the given self-serve
// host. Without it the route answers 404.
func WithImages(images *imghost.SelfServe) Option {
	return func(s *Server) { s.images = images }
}

// WithStore wires a storage backend into the health endpoint. Without it
// the endpoint only reports process liveness.
func WithStore(store storage.Store) Option {
	return func(s *Server) { s.store = store }
}

// NewServer creates a sidecar server with the given options.
func NewServer(opts ...Option) *Server {
	s := &Server{
		config: DefaultConfig(),
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /i/{token}", s.handleImage)

	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s
}

// Handler returns the http.Handler for this server. Use this to test with
// httptest. The returned handler includes the metrics middleware.
func (s *Server) Handler() http.Handler {
	return observability.MetricsMiddleware(s.mux)
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. On cancellation it shuts down gracefully, waiting for in-flight
// requests within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server starting", slog.String("addr", s.config.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// ServeOn runs the server on the given listener until ctx is cancelled.
// Used for testing.
func (s *Server) ServeOn(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz reports process liveness and, when a store is wired,
// storage reachability.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.HealthCheck(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			s.logger.Warn("storage health check failed", slog.String("error", err.Error()))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// handleImage serves a self-hosted image by signed token. Unknown, expired
// or tampered tokens all answer 404 so the route leaks nothing about which
// of those it was.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		http.NotFound(w, r)
		return
	}

	img, err := s.images.Resolve(r.PathValue("token"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img.Data)
}
