package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleSession() Session {
	return Session{
		UserID:            NewID[User](),
		AccessToken:       "access-token",
		AccessExpiration:  1000,
		RefreshToken:      "refresh-token",
		RefreshExpiration: 2000,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
		now     int64
		want    Verdict
	}{
		{
			name:    "valid access token inside window",
			access:  "access-token",
			refresh: "refresh-token",
			now:     500,
			want:    VerdictSucceed,
		},
		{
			name:    "valid access token at exact access expiry",
			access:  "access-token",
			refresh: "refresh-token",
			now:     1000,
			want:    VerdictSucceed,
		},
		{
			name:    "wrong access token inside window",
			access:  "forged-token",
			refresh: "refresh-token",
			now:     500,
			want:    VerdictFailure,
		},
		{
			name:    "access expired, refresh token matches",
			access:  "access-token",
			refresh: "refresh-token",
			now:     1500,
			want:    VerdictRequiredRefresh,
		},
		{
			name:    "access expired, refresh token matches, at exact refresh expiry",
			access:  "access-token",
			refresh: "refresh-token",
			now:     2000,
			want:    VerdictRequiredRefresh,
		},
		{
			// The stored access token no longer matters once its
			// window has passed; only the refresh token is compared.
			name:    "access expired, stale access token presented, refresh matches",
			access:  "anything-at-all",
			refresh: "refresh-token",
			now:     1500,
			want:    VerdictRequiredRefresh,
		},
		{
			name:    "access expired, wrong refresh token",
			access:  "access-token",
			refresh: "forged-refresh",
			now:     1500,
			want:    VerdictFailure,
		},
		{
			name:    "refresh expired, both tokens match",
			access:  "access-token",
			refresh: "refresh-token",
			now:     2001,
			want:    VerdictFailure,
		},
		{
			name:    "refresh expired trumps valid-looking access window",
			access:  "access-token",
			refresh: "refresh-token",
			now:     999999,
			want:    VerdictFailure,
		},
		{
			name:    "empty presented tokens",
			access:  "",
			refresh: "",
			now:     500,
			want:    VerdictFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSession()
			require.Equal(t, tt.want, s.Evaluate(tt.access, tt.refresh, tt.now))
		})
	}
}

// A record whose access window somehow outlives its refresh window must
// still die at the refresh ceiling.
func TestEvaluateRefreshCeilingWins(t *testing.T) {
	s := sampleSession()
	s.AccessExpiration = 5000
	s.RefreshExpiration = 2000

	require.Equal(t, VerdictFailure, s.Evaluate("access-token", "refresh-token", 3000))
}

func TestEvaluateWrongAccessDoesNotFallThroughToRefresh(t *testing.T) {
	s := sampleSession()

	// Inside the access window a bad access token is a hard failure even
	// when the presented refresh token is correct.
	require.Equal(t, VerdictFailure, s.Evaluate("forged", "refresh-token", 500))
}

func TestVerdictString(t *testing.T) {
	require.Equal(t, "succeed", VerdictSucceed.String())
	require.Equal(t, "required_refresh", VerdictRequiredRefresh.String())
	require.Equal(t, "failure", VerdictFailure.String())
}
