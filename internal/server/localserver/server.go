package localserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/shardkv/internal/telemetry/logger"
)

// SocketMode is the permission set on a freshly created socket.
const SocketMode fs.FileMode = 0o600

// probeTimeout bounds the check for a live server on an existing socket.
const probeTimeout = time.Second

var (
	// ErrSocketInUse means another process is serving on the path.
	ErrSocketInUse = errors.New("localserver: socket in use")

	// ErrNotSocket means the path exists and is not a socket.
	ErrNotSocket = errors.New("localserver: path exists and is not a socket")
)

// Server represents the local socket server.
type Server struct {
	path       string
	httpServer *http.Server
	logger     logger.Logger
}

// New creates a server that serves handler on the socket at path.
func New(path string, handler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		path: path,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          slog.NewLogLogger(log.Slog().Handler(), slog.LevelWarn),
		},
		logger: log,
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// ListenAndServe creates the socket and serves until Shutdown. It returns
// nil after a graceful shutdown. The socket file is removed when the
// listener closes.
func (s *Server) ListenAndServe() error {
	if err := removeStale(s.path); err != nil {
		return err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("localserver: listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, SocketMode); err != nil {
		_ = ln.Close()
		return fmt.Errorf("localserver: chmod %s: %w", s.path, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("local socket listening", "path", ln.Addr().String())
	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for active requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("local socket shutting down")
	return s.httpServer.Shutdown(ctx)
}

// removeStale deletes a socket file nobody listens on.
func removeStale(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("localserver: %w", err)
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%w: %s", ErrNotSocket, path)
	}

	conn, err := net.DialTimeout("unix", path, probeTimeout)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %s", ErrSocketInUse, path)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("localserver: remove stale socket: %w", err)
	}
	return nil
}
