// Package buildinfo exposes version information injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/cryptsess/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/cryptsess/internal/infra/buildinfo.Commit=abc123"
//
// The version is reported by the CLI version command and the server's
// startup log.
package buildinfo
