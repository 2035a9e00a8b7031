// Package storage persists encrypted session envelopes.
//
// Storage is the backend contract. This package carries two implementations:
//
//   - FileStorage: one JSON envelope per file, written via temp file and
//     rename. The reference backend.
//   - BadgerStorage: envelopes in an embedded Badger database with a
//     periodic value-log GC loop.
//
// Further backends live in subpackages (memory, redisstore). Every backend
// stores the same envelope, maps identifiers to prefix+identifier and sweeps
// only its own prefix.
package storage
