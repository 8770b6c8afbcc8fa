package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-ozzo/ozzo-validation/is"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// idleTimeout and readHeaderTimeout are unrelated to transaction
// processing time, so they stay fixed regardless of the request budget.
const (
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Server wraps http.Server with address validation and graceful shutdown.
// Unlike a reverse proxy fronting a single fast upstream, one
// /transactions call here may walk the entire processor chain with
// retries and backoff before responding, so its read/write deadlines and
// shutdown grace period are sized from the caller's own worst-case
// request budget rather than a fixed proxy timeout.
type Server struct {
	server        *http.Server
	shutdownGrace time.Duration
}

// New creates an HTTP server with the given address and handler.
// requestBudget is the longest a single request is expected to take —
// normally the per-call processor timeout plus the backoff cap, times
// (max retries + 1), times the number of candidate processors. The server's
// read/write timeouts and shutdown grace period are derived from it so a
// transaction mid-retry is never cut off by the transport layer itself.
func New(addr string, handler http.Handler, requestBudget time.Duration) (*Server, error) {
	if err := validateHost(addr); err != nil {
		return nil, err
	}

	if requestBudget <= 0 {
		requestBudget = 15 * time.Second
	}

	srv := &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       requestBudget,
			WriteTimeout:      requestBudget,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		shutdownGrace: requestBudget,
	}

	return srv, nil
}

// Start begins listening for HTTP requests.
// Returns an error unless the server is shut down cleanly.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the server, waiting up to the request
// budget for in-flight transactions to finish their processor chain.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownGrace)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)

	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return err
}
