// Package token generates random identifiers and secrets and fingerprints
// them.
//
// Random values come from crypto/rand and are base64 RawURL encoded, which
// keeps them valid as session identifiers and as secret_key values.
// Fingerprints are truncated SHA-256 digests used in logs and CLI output.
package token
