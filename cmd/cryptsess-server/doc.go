// Package main provides the entry point for cryptsess-server.
//
// The server exposes an encrypted session store over HTTP:
//
//   - GET/PUT/DELETE /session and POST /session/regenerate, keyed by cookie
//   - /healthz, /readyz and Prometheus metrics
//   - POST /admin/gc, restricted to server.admin_allow_list
//
// Usage:
//
//	cryptsess-server --config /etc/cryptsess/cryptsess.yaml
//
// Configuration is read from the file and CRYPTSESS_* environment variables.
// Changes to log.level in the file are applied without a restart.
package main
