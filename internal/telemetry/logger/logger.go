package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger

	// Slog returns the underlying *slog.Logger for components that take one,
	// such as http.Server.ErrorLog.
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string    // debug, info, warn or error
	Format string    // json (default), text or console
	Output io.Writer // nil means os.Stderr

	AddSource bool
	// RedactValues masks attributes named "value" or "values".
	RedactValues bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:        "info",
		Format:       "json",
		Output:       os.Stderr,
		RedactValues: true,
	}
}

// levels maps accepted level names to slog levels. "warning" is an alias.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// level is shared by every logger New returns, so SetLevel reaches all of them.
var level = new(slog.LevelVar)

// New creates a logger and sets the shared level from cfg.Level.
// An unknown Format is an error.
func New(cfg Config) (Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	handler, err := newHandler(out, cfg)
	if err != nil {
		return nil, err
	}
	level.Set(parseLevel(cfg.Level))

	return &slogLogger{
		logger: slog.New(contextHandler{handler}),
		ctx:    context.Background(),
	}, nil
}

func newHandler(out io.Writer, cfg Config) (slog.Handler, error) {
	r := redactor{values: cfg.RedactValues}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return r.redact(a)
		},
	}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.NewJSONHandler(out, opts), nil
	case "text", "console":
		return slog.NewTextHandler(out, opts), nil
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}
}

// SetLevel changes the level of every logger created by New. Unknown names
// select info. The config watcher calls it when log.level changes on disk.
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

// GetLevel returns the current level name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

// ValidLevel reports whether name is one SetLevel understands.
func ValidLevel(name string) bool {
	_, ok := levels[strings.ToLower(name)]
	return ok
}

func parseLevel(name string) slog.Level {
	if l, ok := levels[strings.ToLower(name)]; ok {
		return l
	}
	return slog.LevelInfo
}

// slogLogger carries the context its records are logged with, so the
// contextHandler can pick request-scoped attributes out of it.
type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func (l *slogLogger) log(lvl slog.Level, msg string, args []any) {
	l.logger.Log(l.ctx, lvl, msg, args...)
}

func (l *slogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *slogLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *slogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

// WithContext binds ctx to the returned logger. Its request ID and client
// address, when set, are added to every record.
func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{logger: l.logger, ctx: ctx}
}

func (l *slogLogger) Slog() *slog.Logger {
	return l.logger
}

var std atomic.Pointer[slogLogger]

func init() {
	l, _ := New(DefaultConfig())
	std.Store(l.(*slogLogger))
}

// SetDefault replaces the logger Default returns. Loggers not created by
// New are ignored.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		std.Store(sl)
	}
}

// Default returns the process-wide logger.
func Default() Logger {
	return std.Load()
}
