// Package config defines the cryptsess configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values, secure session posture included
//   - verify.go: validation
//   - sanitize.go: secret masking for logs
//
// Configuration is loaded via internal/infra/confloader from a YAML file
// and CRYPTSESS_ environment variables.
package config
