package adaptive

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var errChaChaKeySize = errors.New("adaptive: invalid key size for ChaCha20-Poly1305: must be 32 bytes")

// NewChaCha20 creates a ChaCha20-Poly1305 cipher (12-byte nonce).
func NewChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errChaChaKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: CipherChaCha20, aead: aead}, nil
}

// NewXChaCha20 creates an XChaCha20-Poly1305 cipher. Its 24-byte nonce makes
// random nonces safe for an unbounded number of messages under one key.
func NewXChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errChaChaKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: CipherXChaCha20, aead: aead}, nil
}
