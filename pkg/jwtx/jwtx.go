// Package jwtx signs and verifies the session tokens. Tokens are HS256 JWTs
// carrying only a subject and an expiry; the session store, not the
// signature, is the source of truth on the hot path, so verification is only
// exercised at mint time and in diagnostics.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrNoSubject  = errors.New("jwtx: missing sub claim")
	ErrNoExpiry   = errors.New("jwtx: missing exp claim")
)

// Claims are the decoded contents of a session token.
type Claims struct {
	// Subject is the user the token was minted for.
	Subject uuid.UUID
	// ExpiresAt is the expiry instant in epoch seconds.
	ExpiresAt int64
}

// Codec signs claims into token strings and verifies them back. Swappable
// without touching the validation state machine.
type Codec interface {
	Sign(subject uuid.UUID, expiresAt int64) (string, error)
	Verify(token string) (Claims, error)
}

// HS256Codec signs tokens with HMAC-SHA256 over a shared secret.
type HS256Codec struct {
	secret []byte
}

func NewHS256Codec(secret string) *HS256Codec {
	return &HS256Codec{secret: []byte(secret)}
}

func (c *HS256Codec) Sign(subject uuid.UUID, expiresAt int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject.String(),
		ExpiresAt: jwt.NewNumericDate(time.Unix(expiresAt, 0)),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return signed, nil
}

func (c *HS256Codec) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: unexpected signing method %q", ErrInvalidSig, t.Method.Alg())
			}
			return c.secret, nil
		},
		// Expiry is a claim to read back, not a reason to reject: the
		// validation state machine applies its own clock.
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return Claims{}, ErrInvalidSig
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	reg, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return Claims{}, ErrMalformed
	}
	if reg.Subject == "" {
		return Claims{}, ErrNoSubject
	}
	subject, err := uuid.Parse(reg.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad subject: %v", ErrMalformed, err)
	}
	if reg.ExpiresAt == nil {
		return Claims{}, ErrNoExpiry
	}

	return Claims{Subject: subject, ExpiresAt: reg.ExpiresAt.Unix()}, nil
}

// SignPair mints an access/refresh token pair for one subject. The two
// expirations must come from the same base instant so the pair can never
// cross (access expiring after refresh).
func SignPair(c Codec, subject uuid.UUID, accessExpiresAt, refreshExpiresAt int64) (access, refresh string, err error) {
	access, err = c.Sign(subject, accessExpiresAt)
	if err != nil {
		return "", "", err
	}
	refresh, err = c.Sign(subject, refreshExpiresAt)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
