package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tokelabs/sessiond/internal/auth/domain"
	"github.com/tokelabs/sessiond/internal/auth/service"
	"github.com/tokelabs/sessiond/internal/auth/session"
	"github.com/tokelabs/sessiond/internal/auth/store/drivers/sqlite"
	"github.com/tokelabs/sessiond/pkg/jwtx"
)

type middlewareFixture struct {
	mw       *SessionMiddleware
	sessions *session.MemoryStore
	minter   *service.SessionService
	user     domain.User
	now      time.Time
}

func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplyMigrations())

	user, err := db.Users().CreateUser(context.Background(), domain.User{
		ID:           domain.NewID[domain.User](),
		Name:         domain.UserName("Alice"),
		Email:        domain.EmailAddress("alice@example.com"),
		PasswordHash: "irrelevant",
		IsActive:     true,
	})
	require.NoError(t, err)

	sessions := session.NewMemoryStore()
	minter := &service.SessionService{
		Codec:      jwtx.NewHS256Codec("test-secret"),
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 30 * time.Minute,
	}

	f := &middlewareFixture{
		sessions: sessions,
		minter:   minter,
		user:     user,
		now:      time.Unix(1_700_000_000, 0),
	}
	f.mw = &SessionMiddleware{
		Sessions:  sessions,
		Users:     &service.UserService{Store: db},
		Minter:    minter,
		Extractor: CookieSessionExtractor{},
		Cookies:   CookieSettings{Secure: true, SameSite: http.SameSiteStrictMode},
		Now:       func() time.Time { return f.now },
	}
	return f
}

// openSession mints and stores a session for the fixture user at the
// fixture's current instant.
func (f *middlewareFixture) openSession(t *testing.T) (string, domain.Session) {
	t.Helper()

	rec, err := f.minter.Mint(f.user.ID, f.now)
	require.NoError(t, err)
	sid := session.NewID()
	require.NoError(t, f.sessions.Put(context.Background(), sid, rec))
	return sid, rec
}

func authedRequest(sid, access, refresh string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	r.AddCookie(&http.Cookie{Name: CookieSessionID, Value: sid})
	r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: access})
	r.AddCookie(&http.Cookie{Name: CookieRefreshToken, Value: refresh})
	return r
}

// echoHandler records that it ran and whether the user was attached.
func echoHandler(t *testing.T, wantUser domain.UserID, ran *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*ran = true
		user, ok := UserFromContext(r.Context())
		require.True(t, ok, "user must be attached to the request context")
		require.Equal(t, wantUser, user.ID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func cookieValue(t *testing.T, res *http.Response, name string) (string, bool) {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func TestMiddlewarePassThroughWithValidAccessToken(t *testing.T) {
	f := newMiddlewareFixture(t)
	sid, rec := f.openSession(t)

	var ran bool
	rr := httptest.NewRecorder()
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).
		ServeHTTP(rr, authedRequest(sid, rec.AccessToken, rec.RefreshToken))

	require.True(t, ran)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
	require.Empty(t, rr.Result().Cookies(), "no rotation inside the access window")
}

func TestMiddlewareRejectsMissingCookies(t *testing.T) {
	f := newMiddlewareFixture(t)
	f.openSession(t)

	var ran bool
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).ServeHTTP(rr, req)

	require.False(t, ran)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	v, ok := cookieValue(t, rr.Result(), CookieSessionID)
	require.True(t, ok, "auth cookies must be cleared on rejection")
	require.Empty(t, v)
}

func TestMiddlewareRejectsUnknownSession(t *testing.T) {
	f := newMiddlewareFixture(t)
	_, rec := f.openSession(t)

	var ran bool
	rr := httptest.NewRecorder()
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).
		ServeHTTP(rr, authedRequest("no-such-session", rec.AccessToken, rec.RefreshToken))

	require.False(t, ran)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareRejectsForgedAccessToken(t *testing.T) {
	f := newMiddlewareFixture(t)
	sid, rec := f.openSession(t)

	var ran bool
	rr := httptest.NewRecorder()
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).
		ServeHTTP(rr, authedRequest(sid, "forged", rec.RefreshToken))

	require.False(t, ran)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// The session record was purged.
	_, err := f.sessions.Get(context.Background(), sid)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestMiddlewareRejectsFullyExpiredSession(t *testing.T) {
	f := newMiddlewareFixture(t)
	sid, rec := f.openSession(t)

	// Jump past the refresh window.
	f.now = f.now.Add(31 * time.Minute)

	var ran bool
	rr := httptest.NewRecorder()
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).
		ServeHTTP(rr, authedRequest(sid, rec.AccessToken, rec.RefreshToken))

	require.False(t, ran)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	_, err := f.sessions.Get(context.Background(), sid)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestMiddlewareSilentRefresh(t *testing.T) {
	f := newMiddlewareFixture(t)
	sid, rec := f.openSession(t)

	// Inside the refresh window but past the access window.
	f.now = f.now.Add(10 * time.Minute)

	var ran bool
	rr := httptest.NewRecorder()
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).
		ServeHTTP(rr, authedRequest(sid, rec.AccessToken, rec.RefreshToken))

	require.True(t, ran, "refresh must be invisible to the downstream handler")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	// Fresh cookies were appended, same session id, new token pair.
	res := rr.Result()
	gotSid, ok := cookieValue(t, res, CookieSessionID)
	require.True(t, ok)
	require.Equal(t, sid, gotSid)

	newAccess, ok := cookieValue(t, res, CookieAccessToken)
	require.True(t, ok)
	require.NotEqual(t, rec.AccessToken, newAccess)

	newRefresh, ok := cookieValue(t, res, CookieRefreshToken)
	require.True(t, ok)
	require.NotEqual(t, rec.RefreshToken, newRefresh)

	// The stored record was rotated to match the cookies.
	stored, err := f.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	require.Equal(t, newAccess, stored.AccessToken)
	require.Equal(t, newRefresh, stored.RefreshToken)

	// The rotated record works on the next request.
	f.now = f.now.Add(time.Minute)
	ran = false
	rr = httptest.NewRecorder()
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).
		ServeHTTP(rr, authedRequest(sid, newAccess, newRefresh))
	require.True(t, ran)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddlewareSkipsRotationOnServerError(t *testing.T) {
	f := newMiddlewareFixture(t)
	sid, rec := f.openSession(t)

	f.now = f.now.Add(10 * time.Minute)

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	rr := httptest.NewRecorder()
	f.mw.Middleware()(failing).
		ServeHTTP(rr, authedRequest(sid, rec.AccessToken, rec.RefreshToken))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Empty(t, rr.Result().Cookies(), "no rotation when the handler failed")

	// The old record is untouched so the client can retry.
	stored, err := f.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	require.Equal(t, rec, stored)
}

func TestMiddlewareRotationConflictAdoptsWinner(t *testing.T) {
	f := newMiddlewareFixture(t)
	sid, rec := f.openSession(t)

	f.now = f.now.Add(10 * time.Minute)

	// Simulate a concurrent request winning the rotation while the
	// downstream handler runs.
	var winner domain.Session
	racing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		winner, err = f.minter.Mint(f.user.ID, f.now.Add(time.Second))
		require.NoError(t, err)
		require.NoError(t, f.sessions.Rotate(r.Context(), sid, rec.RefreshToken, winner))
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	f.mw.Middleware()(racing).
		ServeHTTP(rr, authedRequest(sid, rec.AccessToken, rec.RefreshToken))

	require.Equal(t, http.StatusOK, rr.Code)

	// The loser's response carries the winner's tokens, not a third pair.
	res := rr.Result()
	gotAccess, ok := cookieValue(t, res, CookieAccessToken)
	require.True(t, ok)
	require.Equal(t, winner.AccessToken, gotAccess)

	gotRefresh, ok := cookieValue(t, res, CookieRefreshToken)
	require.True(t, ok)
	require.Equal(t, winner.RefreshToken, gotRefresh)

	stored, err := f.sessions.Get(context.Background(), sid)
	require.NoError(t, err)
	require.Equal(t, winner, stored)
}

func TestMiddlewarePurgesSessionForMissingUser(t *testing.T) {
	f := newMiddlewareFixture(t)

	// A session pointing at a user id that was never created.
	rec, err := f.minter.Mint(domain.NewID[domain.User](), f.now)
	require.NoError(t, err)
	sid := session.NewID()
	require.NoError(t, f.sessions.Put(context.Background(), sid, rec))

	var ran bool
	rr := httptest.NewRecorder()
	f.mw.Middleware()(echoHandler(t, f.user.ID, &ran)).
		ServeHTTP(rr, authedRequest(sid, rec.AccessToken, rec.RefreshToken))

	require.False(t, ran)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	_, err = f.sessions.Get(context.Background(), sid)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestBufferedResponseDefaultsTo200(t *testing.T) {
	buf := newBufferedResponse()
	_, err := buf.Write([]byte("hello"))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	buf.flush(rr)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello", rr.Body.String())
}
