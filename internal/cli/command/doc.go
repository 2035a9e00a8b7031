// Package command defines the cryptsess-cli commands on urfave/cli/v2.
//
//   - root.go: application, global flags, shared helpers
//   - key.go: secret generation and fingerprints
//   - session.go: read, write and destroy records in the configured store
//   - system.go: self-check, expiry sweep, server status
//   - config.go: show and validate configuration
//
// Local commands open the store named by the configuration file directly,
// so they must run with the server's secret and storage settings.
package command
