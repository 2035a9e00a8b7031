// Package tlsroots builds client TLS configuration for outbound backend
// connections.
//
//   - roots.go: trusted CA pools and the client tls.Config
//   - keypair.go: client certificate hot-reload via fsnotify
package tlsroots
