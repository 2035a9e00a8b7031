// Package logger provides structured logging for cryptsess.
//
// It wraps log/slog:
//
//   - logger.go: handler setup, dynamic level, package-level helpers
//   - context.go: request and session IDs carried on the context
//   - redact.go: secrets and payloads are redacted, session IDs masked
//
// Session identifiers are bearer credentials and session payloads are the
// plaintext this module exists to protect; neither is ever written to a log
// line verbatim.
package logger
