package service

import (
	"time"

	"github.com/tokelabs/sessiond/internal/auth/domain"
	"github.com/tokelabs/sessiond/pkg/jwtx"
)

// SessionService mints session records. Minting and rotation are the same
// operation: a brand-new record for the same user.
type SessionService struct {
	Codec      jwtx.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Mint produces a fresh session record for userID. Both expirations are
// computed from the single base instant now, which keeps the invariant
// access_expiration <= refresh_expiration and avoids skew between the pair.
func (s *SessionService) Mint(userID domain.UserID, now time.Time) (domain.Session, error) {
	base := now.Unix()
	accessExp := base + int64(s.AccessTTL/time.Second)
	refreshExp := base + int64(s.RefreshTTL/time.Second)

	access, refresh, err := jwtx.SignPair(s.Codec, userID.UUID(), accessExp, refreshExp)
	if err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		UserID:            userID,
		AccessToken:       access,
		AccessExpiration:  accessExp,
		RefreshToken:      refresh,
		RefreshExpiration: refreshExp,
	}, nil
}
