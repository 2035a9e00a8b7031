package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Security.SecretKey != "" {
		sanitized.Security.SecretKey = maskSecret(sanitized.Security.SecretKey)
	}
	if sanitized.Security.KDFSalt != "" {
		sanitized.Security.KDFSalt = maskSecret(sanitized.Security.KDFSalt)
	}
	if sanitized.Storage.Redis.Password != "" {
		sanitized.Storage.Redis.Password = maskSecret(sanitized.Storage.Redis.Password)
	}

	return &sanitized
}

// maskSecret keeps the first and last two characters of long values.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
