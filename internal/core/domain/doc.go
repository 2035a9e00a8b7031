// Package domain defines the core domain models for cryptsess.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Envelope: the persisted {data, time} record and its JSON codec
//   - Identifier validation and session trust states
//   - Errors: coded domain errors shared by every layer
package domain
