package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultEnvPrefix is the prefix of environment variables Loader reads.
	DefaultEnvPrefix = "SHARDKV_"

	// SectionSeparator separates nesting levels in environment variable names.
	SectionSeparator = "__"
)

// Loader merges the configuration sources into a struct.
//
// Each Load starts from an empty koanf instance, so the same Loader can be
// used again to pick up a changed file.
type Loader struct {
	envPrefix string
	filePath  string
	overrides map[string]any

	// last holds the merged tree of the most recent successful Load.
	last *koanf.Koanf
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file to read. An empty path means no file.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithOverrides sets dotted-key values applied after every other source.
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) { l.overrides = values }
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FilePath returns the configuration file path, or "" when none is set.
func (l *Loader) FilePath() string {
	return l.filePath
}

// source is one layer of the merge, applied in slice order.
type source struct {
	name     string
	provider koanf.Provider
	parser   koanf.Parser
}

func (l *Loader) sources() []source {
	var srcs []source
	if l.filePath != "" {
		srcs = append(srcs, source{
			name:     "file " + l.filePath,
			provider: file.Provider(l.filePath),
			parser:   yaml.Parser(),
		})
	}

	prefix := l.envPrefix
	srcs = append(srcs, source{
		name: "env",
		provider: env.Provider(prefix, ".", func(name string) string {
			return EnvKey(prefix, name)
		}),
	})

	if len(l.overrides) > 0 {
		srcs = append(srcs, source{name: "overrides", provider: mapProvider(l.overrides)})
	}
	return srcs
}

// Load merges every source and unmarshals the result into target.
//
// target should already hold the defaults: keys that no source sets keep
// the value they had. On error target may be partially written.
func (l *Loader) Load(target any) error {
	k := koanf.New(".")
	for _, src := range l.sources() {
		if err := k.Load(src.provider, src.parser); err != nil {
			return fmt.Errorf("load %s: %w", src.name, err)
		}
	}

	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.last = k
	return nil
}

// Lookup returns the merged value of a dotted key from the last Load.
func (l *Loader) Lookup(key string) (any, bool) {
	if l.last == nil || !l.last.Exists(key) {
		return nil, false
	}
	return l.last.Get(key), true
}

// EnvKey converts an environment variable name into a dotted config key.
// SHARDKV_SERVER__HTTP__ADDR becomes server.http.addr.
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.ReplaceAll(s, SectionSeparator, ".")
}
