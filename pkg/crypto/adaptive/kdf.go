package adaptive

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of every derived key.
const KeySize = 32

// MinSaltLength is the minimum salt length accepted for Argon2id.
const MinSaltLength = 16

// KDF identifies how a secret string becomes a key.
type KDF string

const (
	// KDFHKDF expands the secret with HKDF-SHA256. Suitable for
	// high-entropy secrets such as generated keys.
	KDFHKDF KDF = "hkdf"

	// KDFArgon2id stretches the secret with Argon2id. Use it for
	// human-chosen passphrases; requires a salt.
	KDFArgon2id KDF = "argon2id"
)

// Argon2 parameters for passphrase stretching.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	// ErrEmptySecret is returned when the secret is empty.
	ErrEmptySecret = errors.New("adaptive: secret must not be empty")

	// ErrSaltTooShort is returned when Argon2id is asked for without a usable salt.
	ErrSaltTooShort = errors.New("adaptive: argon2id salt must be at least 16 bytes")

	// ErrUnknownKDF is returned for an unsupported KDF.
	ErrUnknownKDF = errors.New("adaptive: unknown key derivation function")
)

// KeyParams controls DeriveKey.
type KeyParams struct {
	// KDF selects the derivation. Empty means HKDF.
	KDF KDF

	// Salt is required for Argon2id and optional for HKDF.
	Salt []byte

	// Info binds the key to a purpose (HKDF info string).
	Info string
}

// ParseKDF normalizes a configuration value. Empty means HKDF.
func ParseKDF(s string) (KDF, error) {
	switch KDF(strings.ToLower(strings.TrimSpace(s))) {
	case "", KDFHKDF:
		return KDFHKDF, nil
	case KDFArgon2id, "argon2":
		return KDFArgon2id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKDF, s)
	}
}

// DeriveKey turns a secret string into a KeySize-byte key. The same secret
// and params always yield the same key.
func DeriveKey(secret string, params KeyParams) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	switch params.KDF {
	case "", KDFHKDF:
		return DeriveSubkey([]byte(secret), params.Salt, params.Info)
	case KDFArgon2id:
		if len(params.Salt) < MinSaltLength {
			return nil, ErrSaltTooShort
		}
		return argon2.IDKey([]byte(secret), params.Salt, argon2Time, argon2Memory, argon2Threads, KeySize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKDF, params.KDF)
	}
}

// DeriveSubkey expands master into a KeySize-byte key for info.
func DeriveSubkey(master, salt []byte, info string) ([]byte, error) {
	if len(master) == 0 {
		return nil, ErrEmptySecret
	}
	r := hkdf.New(sha256.New, master, salt, []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("adaptive: hkdf: %w", err)
	}
	return key, nil
}

// ZeroKey overwrites key material in place.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
