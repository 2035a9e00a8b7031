// Package crypt layers authenticated encryption over a storage.Storage.
//
// Payloads are sealed with an AEAD from pkg/crypto/adaptive under a key
// derived from the configured secret. The session identifier is bound as
// additional data, so a ciphertext moved to another identifier does not
// open. Reads fail closed: anything that does not authenticate reads as
// empty.
package crypt
