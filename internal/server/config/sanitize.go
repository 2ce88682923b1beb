package config

import "path/filepath"

// Sanitize returns a copy of the config that is safe to log.
//
// The TLS private key path is reduced to its base name.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Server.HTTP.TLSKeyFile != "" {
		sanitized.Server.HTTP.TLSKeyFile = maskPath(sanitized.Server.HTTP.TLSKeyFile)
	}

	return &sanitized
}

func maskPath(p string) string {
	return "***/" + filepath.Base(p)
}
