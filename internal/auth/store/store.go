package store

import (
	"context"
	"errors"
	"time"

	"github.com/tokelabs/sessiond/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface for the relational user store.
// Concrete drivers (sqlite today) implement it. Sub-repositories are exposed
// as methods so transaction-scoped stores can hand out repos bound to the
// transaction.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Prefer this
	// over Tx for multi-step writes (signup, login's last-login update).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id domain.UserID) (domain.User, error)

	// GetUserByEmail returns a user by (lowercased) email address.
	GetUserByEmail(ctx context.Context, email domain.EmailAddress) (domain.User, error)

	// CreateUser inserts a new user and returns the stored row including
	// the repository-assigned timestamps. Returns ErrAlreadyExists when
	// the email is taken.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdatePasswordHash sets the password hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id domain.UserID, newHash string) error

	// UpdateLastLoggedIn records a successful login at the given instant.
	UpdateLastLoggedIn(ctx context.Context, id domain.UserID, at time.Time) error

	// SetActive enables or disables an account. Disabled accounts keep
	// their row but cannot log in.
	SetActive(ctx context.Context, id domain.UserID, active bool) error
}
