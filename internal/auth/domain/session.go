package domain

// Session is the server-side record of one authenticated login. It is the
// unit of truth the middleware reconciles against the cookies the client
// presents. Expirations are absolute epoch seconds; both are computed from a
// single base instant at mint time, so AccessExpiration never exceeds
// RefreshExpiration.
type Session struct {
	UserID            UserID
	AccessToken       string
	AccessExpiration  int64
	RefreshToken      string
	RefreshExpiration int64
}

// Verdict is the outcome of evaluating client-presented tokens against a
// stored Session.
type Verdict int

const (
	// VerdictSucceed grants access with the current tokens.
	VerdictSucceed Verdict = iota
	// VerdictRequiredRefresh grants access but requires the session to be
	// rotated after the request completes.
	VerdictRequiredRefresh
	// VerdictFailure denies access; the session must be purged.
	VerdictFailure
)

func (v Verdict) String() string {
	switch v {
	case VerdictSucceed:
		return "succeed"
	case VerdictRequiredRefresh:
		return "required_refresh"
	case VerdictFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Evaluate decides the verdict for a request presenting the given access and
// refresh token strings at instant now (epoch seconds). It is a pure
// function: no I/O, no clock access.
//
// The refresh expiration is checked first because it is the hard ceiling on
// the session; no amount of access-token validity extends a session past it.
// Tokens are compared as opaque strings against the stored record rather
// than re-verified cryptographically: the session store is the source of
// truth, and the strings were produced by a signing step at mint time.
func (s Session) Evaluate(accessToken, refreshToken string, now int64) Verdict {
	if now > s.RefreshExpiration {
		return VerdictFailure
	}
	if now <= s.AccessExpiration {
		if accessToken == s.AccessToken {
			return VerdictSucceed
		}
		// A mismatched access token inside its validity window is
		// tampering or stale client state, never silently tolerated.
		return VerdictFailure
	}
	if refreshToken == s.RefreshToken {
		return VerdictRequiredRefresh
	}
	return VerdictFailure
}
