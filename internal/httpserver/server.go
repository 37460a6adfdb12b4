package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/mw"
	"github.com/MrSnakeDoc/checkvpn/internal/httpserver/routes"
	"github.com/MrSnakeDoc/checkvpn/internal/logger"
)

// Server serves the health, metrics, status and manual check endpoints.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// NewRouter builds the handler tree; exposed for tests.
func NewRouter(d deps.Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(mw.Log(d.Logger, "/health", "/healthz", "/readyz", "/metrics"))

	routes.RegisterAll(r, d)
	return r
}

func New(addr string, d deps.Deps) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return &Server{http: s, logger: d.Logger}
}

// Listen binds the address so bind errors surface before Serve runs in the
// background.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.http.Addr)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("HTTP server listening", logger.String("addr", ln.Addr().String()))
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
