package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/cryptsess/pkg/token"
)

// IDGenerator produces candidate session identifiers. The Manager checks
// each result for syntax and collisions before issuing it.
type IDGenerator func() (string, error)

// Generator names accepted by ParseIDGenerator.
const (
	GeneratorRandom = "random"
	GeneratorULID   = "ulid"
	GeneratorUUID   = "uuid"
)

// RandomID returns 256 random bits, base64 RawURL encoded.
func RandomID() (string, error) {
	return token.Generate()
}

// ULID returns a lexically sortable identifier with 80 random bits. The
// timestamp prefix reveals issue time.
func ULID() (string, error) {
	return ulid.Make().String(), nil
}

// UUID returns a random version 4 UUID.
func UUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ParseIDGenerator maps a configuration value to a generator. Empty means
// random.
func ParseIDGenerator(name string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", GeneratorRandom:
		return RandomID, nil
	case GeneratorULID:
		return ULID, nil
	case GeneratorUUID:
		return UUID, nil
	default:
		return nil, fmt.Errorf("session: unknown id generator %q", name)
	}
}
