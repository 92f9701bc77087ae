package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	UserNameMinLen = 2
	UserNameMaxLen = 40

	passwordMinLen = 8
	// Symbols accepted by the password policy.
	passwordSymbols = ` !"#$%&'()*+,-./:;<=>?@[\]^_` + "`" + `{|}~`
)

var (
	ErrInvalidUserName = fmt.Errorf("domain: user name must be %d to %d characters", UserNameMinLen, UserNameMaxLen)
	ErrInvalidEmail    = errors.New("domain: malformed email address")
	ErrWeakPassword    = fmt.Errorf(
		"domain: password must be at least %d characters and contain a lowercase letter, an uppercase letter, a digit and a symbol",
		passwordMinLen,
	)
)

// UserID identifies a User.
type UserID = ID[User]

// User is the authenticated principal. The session layer only ever reads it;
// signup and change-password are the sole writers.
type User struct {
	ID           UserID
	Name         UserName
	Email        EmailAddress
	PasswordHash string
	IsActive     bool
	LastLoggedIn *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserName is a display name of 2 to 40 characters.
type UserName string

func NewUserName(s string) (UserName, error) {
	n := utf8.RuneCountInString(s)
	if n < UserNameMinLen || n > UserNameMaxLen {
		return "", ErrInvalidUserName
	}
	return UserName(s), nil
}

func (n UserName) String() string { return string(n) }

// emailPattern is deliberately permissive on the local part and strict on
// the overall shape; full RFC 5322 parsing buys nothing here since delivery
// is what ultimately validates an address.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailAddress is a syntactically validated, lowercased email address.
// Lowercasing keeps the uniqueness check in the user store case-insensitive.
type EmailAddress string

func NewEmailAddress(s string) (EmailAddress, error) {
	s = strings.TrimSpace(s)
	if s == "" || !emailPattern.MatchString(s) {
		return "", ErrInvalidEmail
	}
	return EmailAddress(strings.ToLower(s)), nil
}

func (e EmailAddress) String() string { return string(e) }

// RawPassword is a plaintext password that satisfied the policy. It is
// deliberately not a plain string so it cannot end up in logs by accident;
// fmt verbs print a redaction marker.
type RawPassword struct {
	value string
}

func NewRawPassword(s string) (RawPassword, error) {
	if len(s) < passwordMinLen {
		return RawPassword{}, ErrWeakPassword
	}
	var lower, upper, digit, symbol bool
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z':
			lower = true
		case ch >= 'A' && ch <= 'Z':
			upper = true
		case ch >= '0' && ch <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, ch):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return RawPassword{}, ErrWeakPassword
	}
	return RawPassword{value: s}, nil
}

// Expose returns the plaintext. Call sites should hand it straight to the
// hasher and nowhere else.
func (p RawPassword) Expose() string { return p.value }

func (p RawPassword) String() string { return "[redacted]" }

func (p RawPassword) GoString() string { return "domain.RawPassword{[redacted]}" }
