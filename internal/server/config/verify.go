package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/yndnr/shardkv/internal/telemetry/logger"
	"github.com/yndnr/shardkv/pkg/cmap"
)

// Verify validates the configuration and returns every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error

	if cfg.HTTP.Addr == "" {
		errs = append(errs, errors.New("server.http.addr is required"))
	} else if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err))
	}

	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}

	if cfg.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.http.max_body_bytes must be positive"))
	}

	if cfg.RESP.Enabled {
		if _, _, err := net.SplitHostPort(cfg.RESP.Addr); err != nil {
			errs = append(errs, fmt.Errorf("server.resp.addr %q: %w", cfg.RESP.Addr, err))
		} else if cfg.RESP.Addr == cfg.HTTP.Addr {
			errs = append(errs, errors.New("server.resp.addr must differ from server.http.addr"))
		}
	}
	if cfg.RESP.ReadTimeout < 0 || cfg.RESP.WriteTimeout < 0 || cfg.RESP.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.resp timeouts must not be negative"))
	}

	if cfg.Local.Enabled() && !filepath.IsAbs(cfg.Local.SocketPath) {
		errs = append(errs, fmt.Errorf("server.local.socket_path %q must be absolute", cfg.Local.SocketPath))
	}

	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}

	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

func verifyStorage(cfg *StorageSection) error {
	var errs []error

	if !cmap.IsPowerOfTwo(cfg.ShardCount) {
		errs = append(errs, fmt.Errorf("storage.shard_count must be a power of two, got %d", cfg.ShardCount))
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}

	return errors.Join(errs...)
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format %q is not json or text", cfg.Format)
	}
}
