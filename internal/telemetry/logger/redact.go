package logger

import (
	"log/slog"
	"strconv"
	"strings"
)

// Attribute names whose values are always hidden.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
}

// Attribute names that carry user data. Hidden when Config.RedactValues is set.
var valueKeys = map[string]bool{
	"value":  true,
	"values": true,
}

const redactedValue = "***REDACTED***"

type redactor struct {
	values bool
}

func (r redactor) redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = r.redact(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if r.values && valueKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, MaskValue(a.Value.String()))
	}

	if a.Value.Kind() == slog.KindString && a.Value.String() != "" && IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// MaskValue hides a stored value, keeping only its length.
func MaskValue(v string) string {
	if v == "" {
		return ""
	}
	return redactedValue + "(" + strconv.Itoa(len(v)) + "B)"
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
