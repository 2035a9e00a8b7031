package logger

import (
	"log/slog"
	"strings"
)

// Keys whose values are bearer credentials: shown partially so operators
// can correlate lines without being able to replay the value.
var maskedKeyPatterns = []string{
	"session_id",
	"sid",
	"candidate",
}

// Keys whose values must never reach a log line.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"key",
	"salt",
	"credential",
	"payload",
	"plaintext",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks or redacts an attribute based on its key.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	keyLower := strings.ToLower(a.Key)
	if matchesAny(keyLower, maskedKeyPatterns) {
		if a.Value.Kind() == slog.KindString {
			return slog.String(a.Key, MaskIdentifier(a.Value.String()))
		}
		return a
	}

	if matchesAny(keyLower, sensitiveKeyPatterns) {
		switch a.Value.Kind() {
		case slog.KindString:
			if a.Value.String() == "" {
				return a
			}
		case slog.KindAny:
			if b, ok := a.Value.Any().([]byte); ok && len(b) == 0 {
				return a
			}
		default:
			return a
		}
		return slog.String(a.Key, redactedValue)
	}

	return a
}

func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// MaskIdentifier keeps the first and last four characters of an identifier.
// Short identifiers are fully masked.
func MaskIdentifier(id string) string {
	if id == "" {
		return ""
	}
	if len(id) <= 12 {
		return "***"
	}
	return id[:4] + "..." + id[len(id)-4:]
}

// IsSensitiveKey reports whether a value logged under key is redacted.
func IsSensitiveKey(key string) bool {
	return matchesAny(strings.ToLower(key), sensitiveKeyPatterns)
}
