// Package session provides the durable key-value store mapping session
// identifiers to session records, plus session identifier generation.
package session

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/tokelabs/sessiond/internal/auth/domain"
)

var (
	// ErrNotFound reports that no record exists for the session id.
	ErrNotFound = errors.New("session: not found")
	// ErrRotationConflict reports that a concurrent rotation replaced the
	// record first; the caller lost the compare-and-swap.
	ErrRotationConflict = errors.New("session: rotation conflict")
)

// Store is the session record store. One record per session id; records are
// replaced whole or deleted, never partially overwritten.
type Store interface {
	// Get returns the record for sid, or ErrNotFound.
	Get(ctx context.Context, sid string) (domain.Session, error)

	// Put writes rec under sid, replacing any existing record.
	Put(ctx context.Context, sid string, rec domain.Session) error

	// Rotate replaces the record under sid with rec only if the stored
	// refresh token still equals expectedRefresh. Returns
	// ErrRotationConflict if another writer got there first, ErrNotFound
	// if the record is gone.
	Rotate(ctx context.Context, sid, expectedRefresh string, rec domain.Session) error

	// Delete removes the record for sid. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, sid string) error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// NewID issues a fresh opaque session identifier. ULIDs are used so ids sort
// by issue time in store listings; they carry no relation to the user id or
// the token values.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
