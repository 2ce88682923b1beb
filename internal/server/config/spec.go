package config

import "time"

// ServerConfig is the root configuration for shardkv-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the network endpoints and process lifecycle.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	RESP  RESPConfig  `koanf:"resp"`
	Local LocalConfig `koanf:"local"`

	// RateLimit is the allowed requests (or RESP commands) per second per
	// client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
	TLSCertFile       string        `koanf:"tls_cert_file"`
	TLSKeyFile        string        `koanf:"tls_key_file"`
}

// TLSEnabled reports whether both TLS files are configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// RESPConfig configures the Redis protocol endpoint.
type RESPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// ReadTimeout bounds reading one command once its first byte arrived.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// IdleTimeout bounds the wait for the next command.
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// LocalConfig configures the Unix socket that serves the HTTP API to local
// clients. The socket is not rate limited.
type LocalConfig struct {
	// SocketPath enables the listener when set.
	SocketPath string `koanf:"socket_path"`
}

// Enabled reports whether a socket path is configured.
func (c LocalConfig) Enabled() bool {
	return c.SocketPath != ""
}

// StorageSection configures the store.
type StorageSection struct {
	// ShardCount must be a power of two.
	ShardCount int `koanf:"shard_count"`

	// DataDir is the base directory for relative dump and load paths.
	DataDir string `koanf:"data_dir"`
}

// MetricsSection configures the /metrics endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}

// LogSection configures logging.
type LogSection struct {
	Level        string `koanf:"level"`
	Format       string `koanf:"format"`
	RedactValues bool   `koanf:"redact_values"`
}
