// Package adaptive provides authenticated encryption with hardware-aware
// algorithm selection.
//
// Supported Algorithms:
//
//   - AES-256-GCM: preferred when hardware AES support is available
//   - ChaCha20-Poly1305: fallback for systems without AES acceleration
//   - XChaCha20-Poly1305: extended nonce variant, opt-in
//
// Every Encrypt call draws a fresh random nonce and prepends it to the
// output. Keys are derived from secret strings with HKDF-SHA256 or, for
// passphrases, Argon2id.
//
// Usage:
//
//	key, err := adaptive.DeriveKey(secret, adaptive.KeyParams{Info: "sessions"})
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
