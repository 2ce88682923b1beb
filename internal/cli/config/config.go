package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultServer is the address of a server started with default settings.
const DefaultServer = "http://127.0.0.1:5034"

// CLIConfig is the configuration for shardkv-cli.
type CLIConfig struct {
	Server      string        `yaml:"server"`
	Output      string        `yaml:"output"` // table, json, yaml
	Timeout     time.Duration `yaml:"timeout"`
	HistoryFile string        `yaml:"history_file"`

	// CAFile adds PEM certificates to the system roots for https servers.
	CAFile   string `yaml:"ca_file,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:      DefaultServer,
		Output:      "table",
		Timeout:     30 * time.Second,
		HistoryFile: filepath.Join(homeDir(), ".shardkv", "history"),
	}
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".shardkv", "cli.yaml")
}

func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return dir
}

// Load reads the CLI configuration at path, or DefaultConfigPath when path
// is empty. A missing file is not an error and yields Default(). Fields
// absent from the file keep their defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path (DefaultConfigPath when empty) with mode 0600,
// creating the parent directory if needed.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cli config: %w", err)
	}
	return nil
}
