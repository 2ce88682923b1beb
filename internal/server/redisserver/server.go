package redisserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/shardkv/internal/core/domain"
	"github.com/yndnr/shardkv/internal/infra/ratelimit"
	"github.com/yndnr/shardkv/internal/server/config"
	"github.com/yndnr/shardkv/internal/telemetry/logger"
	"github.com/yndnr/shardkv/internal/telemetry/metric"
)

// Server is the RESP endpoint.
type Server struct {
	cfg     config.RESPConfig
	handler *CommandHandler
	limiter *ratelimit.Set
	metrics *metric.Registry
	logger  logger.Logger

	// ctx is cancelled by Shutdown and passed to every command.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ln      net.Listener
	conns   map[*Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records command and connection metrics on r.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// WithRateLimit limits each client IP to perSecond commands. Zero disables
// limiting.
func WithRateLimit(perSecond float64) Option {
	return func(s *Server) {
		s.limiter = ratelimit.New(perSecond)
	}
}

// Conn is one client connection.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer

	// quit is set by QUIT; the connection closes after the reply is flushed.
	quit   bool
	closed atomic.Bool
}

func newConn(c net.Conn) *Conn {
	return &Conn{
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
	}
}

// Close closes the connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// New creates a RESP server over store. Zero timeouts in cfg fall back to
// the config defaults.
func New(cfg config.RESPConfig, store Store, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Default()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = config.DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = config.DefaultRESPIdleTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = NewCommandHandler(store, s.metrics)
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ListenAndServe listens on the configured address and serves until
// Shutdown. It returns nil after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("redisserver: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("resp server listening", "addr", ln.Addr().String())

	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosing() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("redisserver: accept: %w", err)
		}

		c := newConn(nc)
		if !s.track(c) {
			_ = c.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(c)
		}()
	}
}

// Shutdown stops accepting, wakes idle connections and waits for the
// in-flight commands to finish. Connections still open when ctx ends are
// closed forcibly and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("resp server shutting down")

	s.mu.Lock()
	s.closing = true
	ln := s.ln
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.cancel()

	var err error
	if ln != nil {
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	for _, c := range conns {
		_ = c.netConn.SetReadDeadline(time.Now())
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// track registers c and reserves its goroutine in wg. It fails once
// Shutdown has begun.
func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) serveConn(c *Conn) {
	defer c.Close()
	s.metrics.AddRESPConnections(1)
	defer s.metrics.AddRESPConnections(-1)

	ctx := logger.WithClient(s.ctx, c.RemoteAddr().String())
	log := s.logger.WithContext(ctx)
	ip := remoteIP(c.RemoteAddr())

	for !c.quit {
		if s.ctx.Err() != nil {
			return
		}

		// The wait for the next command may last up to the idle timeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			s.logReadError(log, err)
			return
		}

		// Once a command has started it must arrive within the read timeout.
		if err := c.netConn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return
		}

		args, err := ReadCommand(c.br)
		if err != nil {
			if errors.Is(err, io.EOF) || isTimeout(err) {
				s.logReadError(log, err)
				return
			}
			msg := "ERR protocol error"
			if errors.Is(err, ErrLimitExceeded) {
				log.Warn("protocol limit exceeded", "error", err)
				msg = "ERR protocol limit exceeded"
			} else {
				log.Debug("protocol error", "error", err)
			}
			_ = WriteError(c.bw, msg)
			_ = s.flush(c)
			return
		}
		if len(args) == 0 {
			continue
		}

		// Large replies flush while the command runs, so the deadline is set first.
		if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if s.limiter.Allow(ip) {
			s.handler.Handle(ctx, c, args)
		} else {
			s.metrics.RecordRESPCommand("rate_limited", metric.ResultError)
			_ = WriteError(c.bw, formatRedisError(domain.ErrRateLimited))
		}

		// Replies to a pipeline go out together once its input is drained.
		if c.br.Buffered() > 0 && !c.quit {
			continue
		}
		if err := s.flush(c); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
	}
}

func (s *Server) flush(c *Conn) error {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (s *Server) logReadError(log logger.Logger, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case isTimeout(err):
		if s.ctx.Err() == nil {
			log.Debug("connection timed out")
		}
	default:
		log.Debug("connection read error", "error", err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func remoteIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
