package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/yndnr/shardkv/internal/infra/tlsroots"
	"github.com/yndnr/shardkv/internal/server/config"
	"github.com/yndnr/shardkv/internal/telemetry/logger"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        config.HTTPConfig
	logger     logger.Logger

	mu     sync.Mutex
	certs  *tlsroots.Watcher
	closed bool
}

// New creates a server for handler using the addresses, timeouts and TLS
// files in cfg.
func New(cfg config.HTTPConfig, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(log.Slog().Handler(), slog.LevelWarn),
		},
		cfg:    cfg,
		logger: log,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe listens on the configured address and serves until
// Shutdown. It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. TLS is used when both certificate and
// key files are configured; the certificate is reloaded when either file
// changes until Serve returns. Serve after Shutdown closes ln and returns nil.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.cfg.TLSEnabled() {
		certs, werr := tlsroots.NewWatcher(s.cfg.TLSCertFile, s.cfg.TLSKeyFile,
			tlsroots.WithLogger(s.logger.Slog()))
		if werr != nil {
			_ = ln.Close()
			return fmt.Errorf("httpserver: %w", werr)
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = certs.Stop()
			_ = ln.Close()
			return nil
		}
		s.certs = certs
		s.mu.Unlock()

		certs.StartAsync()
		defer func() {
			_ = certs.Stop()
			certs.Wait()
		}()
		s.httpServer.TLSConfig = tlsroots.ServerConfig(certs)

		s.logger.Info("https server listening", "addr", ln.Addr().String())
		err = s.httpServer.ServeTLS(ln, "", "")
	} else {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		err = s.httpServer.Serve(ln)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")

	s.mu.Lock()
	s.closed = true
	certs := s.certs
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	if certs != nil {
		_ = certs.Stop()
		certs.Wait()
	}
	return err
}
