package domain

// MaxIdentifierLength bounds identifiers accepted from clients. Backends may
// enforce a tighter limit; file storage also subtracts its prefix length.
const MaxIdentifierLength = 256

// SessionState is the trust state of an identifier after Open.
type SessionState int

const (
	// StateFresh means the identifier was just issued and carries no data.
	StateFresh SessionState = iota
	// StateExisting means the identifier names a record written earlier.
	StateExisting
)

// String returns the metric/log label for the state.
func (s SessionState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateExisting:
		return "existing"
	default:
		return "unknown"
	}
}

// ValidIdentifier reports whether id may be used as a storage key.
//
// Allowed: ASCII letters, digits, '-', '_' and ','. Everything that could
// change the meaning of a path (separators, dots, NUL) is rejected.
func ValidIdentifier(id string) bool {
	if id == "" || len(id) > MaxIdentifierLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == ',':
		default:
			return false
		}
	}
	return true
}

// ValidateIdentifier returns ErrInvalidIdentifier when id is not usable.
func ValidateIdentifier(id string) error {
	if !ValidIdentifier(id) {
		return ErrInvalidIdentifier
	}
	return nil
}
