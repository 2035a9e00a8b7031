package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// fingerprintLength is the number of hex characters kept by Fingerprint.
const fingerprintLength = 16

// Hash returns the hex encoded SHA-256 of s.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short, non-reversible label for a secret so
// operators can tell two configurations apart without printing the secret.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return Hash(secret)[:fingerprintLength]
}

// MatchFingerprint reports whether secret has the given fingerprint. The
// comparison is constant time.
func MatchFingerprint(secret, fingerprint string) bool {
	return subtle.ConstantTimeCompare([]byte(Fingerprint(secret)), []byte(fingerprint)) == 1
}
