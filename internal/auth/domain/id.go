package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidID reports a string that is not a canonical UUID.
var ErrInvalidID = errors.New("domain: invalid entity id")

// ID is a typed wrapper around a UUID, parameterised by the entity it
// identifies so that ids of different entities cannot be mixed up at compile
// time.
type ID[T any] struct {
	value uuid.UUID
}

// NewID returns a freshly generated random ID.
func NewID[T any]() ID[T] {
	return ID[T]{value: uuid.New()}
}

// IDFromUUID wraps an existing UUID value.
func IDFromUUID[T any](u uuid.UUID) ID[T] {
	return ID[T]{value: u}
}

// ParseID parses a canonical UUID string. A malformed string is a validation
// error, never a panic.
func ParseID[T any](s string) (ID[T], error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID[T]{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID[T]{value: u}, nil
}

// UUID returns the raw UUID value.
func (id ID[T]) UUID() uuid.UUID { return id.value }

// String returns the canonical UUID string form.
func (id ID[T]) String() string { return id.value.String() }

// IsZero reports whether id is the zero value.
func (id ID[T]) IsZero() bool { return id.value == uuid.Nil }

func (id ID[T]) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

func (id *ID[T]) UnmarshalText(b []byte) error {
	parsed, err := ParseID[T](string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
