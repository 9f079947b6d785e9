package gridserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Config holds the HTTP server's listen address and timeouts. TLS and
// HTTP/2 are left to a reverse proxy in front of gridserver rather than
// configured here, since this service is ambient decode-loop transport, not
// a public-facing edge server.
type Config struct {
	Address           string
	Handler           http.Handler
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
}

// DefaultConfig returns production-sane timeouts for handler.
func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Address:           ":8088",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second, // longer: a decode stream holds the connection open across many advance round-trips
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Server wraps http.Server with a tracked listener so Addr() reports the
// resolved port when Address ends in ":0".
type Server struct {
	httpServer *http.Server
	config     *Config
	listener   net.Listener
}

// New returns a Server. config must not be nil and must carry a Handler.
func New(config *Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("gridserver: config cannot be nil")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("gridserver: handler cannot be nil")
	}
	return &Server{
		config: config,
		httpServer: &http.Server{
			Addr:              config.Address,
			Handler:           config.Handler,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
	}, nil
}

// Start blocks, serving until Shutdown or Close is called on another
// goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("gridserver: listen: %w", err)
	}
	s.listener = listener
	return s.httpServer.Serve(listener)
}

// Shutdown gracefully drains in-flight HTTP requests. Upgraded WebSocket
// connections are hijacked from the http.Server, so Shutdown neither closes
// nor waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close immediately terminates the server without draining.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Addr returns the server's bound network address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}
