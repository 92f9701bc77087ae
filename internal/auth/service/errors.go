package service

import (
	"errors"
	"fmt"

	"github.com/tokelabs/sessiond/internal/auth/domain"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable so the response never leaks which
	// check failed.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrEmailAlreadyExists reports a signup against a taken email.
	ErrEmailAlreadyExists = errors.New("email_already_exists")

	// ErrIncorrectCurrentPassword reports a change-password attempt with a
	// wrong current password. The session stays untouched.
	ErrIncorrectCurrentPassword = errors.New("incorrect_current_password")
)

// NotActiveError reports a login with valid credentials against a
// deactivated account.
type NotActiveError struct {
	UserID domain.UserID
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("user %s is not active", e.UserID)
}
