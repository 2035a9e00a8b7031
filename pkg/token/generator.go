package token

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultLength is the number of random bytes behind a generated value.
// 32 bytes gives 256 bits of entropy.
const DefaultLength = 32

// Generate returns DefaultLength random bytes, base64 RawURL encoded. The
// alphabet is a subset of the one allowed for session identifiers.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns length random bytes, base64 RawURL encoded.
func GenerateWithLength(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes returns length bytes from crypto/rand.
func GenerateBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
