package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tokelabs/sessiond/internal/auth/domain"
	"github.com/tokelabs/sessiond/internal/auth/session"
	"github.com/tokelabs/sessiond/internal/auth/store"
	"github.com/tokelabs/sessiond/pkg/cryptox"
	"github.com/tokelabs/sessiond/pkg/slogx"
)

// AccountService implements the account use cases: signup, login, logout and
// change-password. Each is one short transaction sequence over the user
// store plus, where a session is involved, the session store.
type AccountService struct {
	Store    store.Store
	Sessions session.Store
	Minter   *SessionService
	Hasher   cryptox.Hasher
}

// LoginResult carries everything the handler needs to issue cookies.
type LoginResult struct {
	SessionID string
	Session   domain.Session
}

// Signup registers a new user. The email-uniqueness check and the insert run
// in one transaction, so a concurrent duplicate signup loses cleanly.
func (s *AccountService) Signup(
	ctx context.Context,
	name domain.UserName,
	email domain.EmailAddress,
	password domain.RawPassword,
) (domain.User, error) {
	hash, err := s.Hasher.Hash(password.Expose())
	if err != nil {
		return domain.User{}, fmt.Errorf("signup: hash password: %w", err)
	}

	var created domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrEmailAlreadyExists
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("signup: lookup email: %w", err)
		}

		created, err = tx.Users().CreateUser(ctx, domain.User{
			ID:           domain.NewID[domain.User](),
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent signup for the same email.
			return ErrEmailAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("signup: insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return created, nil
}

// Login verifies credentials and opens a new session. A brand-new session
// identifier is always issued, never a pre-login one, which closes the
// session-fixation hole. The last-login update commits in the same
// transaction as the credential check.
func (s *AccountService) Login(
	ctx context.Context,
	email domain.EmailAddress,
	password string,
) (LoginResult, error) {
	var result LoginResult

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return fmt.Errorf("login: lookup email: %w", err)
		}

		if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
			if errors.Is(err, cryptox.ErrPasswordMismatch) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("login: verify password: %w", err)
		}

		if !user.IsActive {
			return &NotActiveError{UserID: user.ID}
		}

		now := time.Now().UTC()
		rec, err := s.Minter.Mint(user.ID, now)
		if err != nil {
			return fmt.Errorf("login: mint session: %w", err)
		}

		sid := session.NewID()
		if err := s.Sessions.Put(ctx, sid, rec); err != nil {
			return fmt.Errorf("login: store session: %w", err)
		}

		if err := tx.Users().UpdateLastLoggedIn(ctx, user.ID, now); err != nil {
			return fmt.Errorf("login: update last login: %w", err)
		}

		result = LoginResult{SessionID: sid, Session: rec}
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// Logout destroys the session record. Idempotent: logging out a session that
// no longer exists is not an error.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: delete session: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password, persists the new hash, then
// destroys the current session so the client has to log in again. Other
// sessions for the same user are not chased down; that is a known
// limitation.
func (s *AccountService) ChangePassword(
	ctx context.Context,
	user domain.User,
	sessionID string,
	currentPassword string,
	newPassword domain.RawPassword,
) error {
	if err := s.Hasher.Verify(currentPassword, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return ErrIncorrectCurrentPassword
		}
		return fmt.Errorf("change password: verify current: %w", err)
	}

	newHash, err := s.Hasher.Hash(newPassword.Expose())
	if err != nil {
		return fmt.Errorf("change password: hash new password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
			return fmt.Errorf("change password: persist hash: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		// The password change already committed; the session will still
		// die at refresh expiry. Log and move on.
		slogx.FromContext(ctx).Warn("change password: session delete failed",
			"session_id", sessionID, "err", err)
	}
	return nil
}
