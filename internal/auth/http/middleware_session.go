package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/tokelabs/sessiond/internal/auth/domain"
	"github.com/tokelabs/sessiond/internal/auth/service"
	"github.com/tokelabs/sessiond/internal/auth/session"
	"github.com/tokelabs/sessiond/internal/auth/store"
	"github.com/tokelabs/sessiond/pkg/httpx"
	"github.com/tokelabs/sessiond/pkg/slogx"
)

// SessionExtractor pulls the session credentials off a request. The cookie
// extractor is the production one; tests substitute their own.
type SessionExtractor interface {
	Extract(r *http.Request) (sid, accessToken, refreshToken string, ok bool)
}

// CookieSessionExtractor reads the three auth cookies.
type CookieSessionExtractor struct{}

func (CookieSessionExtractor) Extract(r *http.Request) (string, string, string, bool) {
	sid, err := r.Cookie(CookieSessionID)
	if err != nil || sid.Value == "" {
		return "", "", "", false
	}
	access, err := r.Cookie(CookieAccessToken)
	if err != nil {
		return "", "", "", false
	}
	refresh, err := r.Cookie(CookieRefreshToken)
	if err != nil {
		return "", "", "", false
	}
	return sid.Value, access.Value, refresh.Value, true
}

// SessionMiddleware guards authenticated routes. It loads the session
// record, evaluates the presented tokens against it, and either rejects the
// request, passes it through, or passes it through and silently rotates the
// token pair afterwards.
type SessionMiddleware struct {
	Sessions  session.Store
	Users     *service.UserService
	Minter    *service.SessionService
	Extractor SessionExtractor
	Cookies   CookieSettings
	Now       func() time.Time
}

func (m *SessionMiddleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Middleware adapts the guard to the router's middleware chain.
func (m *SessionMiddleware) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.serve(w, r, next)
		})
	}
}

func (m *SessionMiddleware) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sid, access, refresh, ok := m.Extractor.Extract(r)
	if !ok {
		m.reject(w)
		return
	}

	rec, err := m.Sessions.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		m.reject(w)
		return
	}
	if err != nil {
		log.Error("session load failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	switch rec.Evaluate(access, refresh, m.now().Unix()) {
	case domain.VerdictSucceed:
		user, ok := m.loadUser(w, r, sid, rec)
		if !ok {
			return
		}
		next.ServeHTTP(w, m.withIdentity(r, user, sid))

	case domain.VerdictRequiredRefresh:
		user, ok := m.loadUser(w, r, sid, rec)
		if !ok {
			return
		}
		m.serveWithRotation(w, m.withIdentity(r, user, sid), next, sid, rec, user)

	case domain.VerdictFailure:
		m.purgeAndReject(w, r, sid)
	}
}

func (m *SessionMiddleware) withIdentity(r *http.Request, user domain.User, sid string) *http.Request {
	ctx := ContextWithUser(r.Context(), user)
	ctx = ContextWithSessionID(ctx, sid)
	return r.WithContext(ctx)
}

// loadUser resolves the session's user. A session pointing at a missing user
// is an anomaly worth logging; the session is purged and the request
// rejected.
func (m *SessionMiddleware) loadUser(w http.ResponseWriter, r *http.Request, sid string, rec domain.Session) (domain.User, bool) {
	ctx := r.Context()
	user, err := m.Users.GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("session references missing user",
				"session_id", sid, "user_id", rec.UserID)
			m.purgeAndReject(w, r, sid)
			return domain.User{}, false
		}
		slogx.FromContext(ctx).Error("user load failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
		return domain.User{}, false
	}
	return user, true
}

// serveWithRotation runs the downstream handler against a buffered writer,
// then rotates the token pair and appends fresh cookies before flushing.
// Rotation is skipped when the downstream handler failed, so a client retry
// still holds valid tokens.
func (m *SessionMiddleware) serveWithRotation(
	w http.ResponseWriter,
	r *http.Request,
	next http.Handler,
	sid string,
	rec domain.Session,
	user domain.User,
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	buf := newBufferedResponse()
	next.ServeHTTP(buf, r)

	if buf.status < http.StatusInternalServerError {
		fresh, err := m.Minter.Mint(user.ID, m.now())
		if err != nil {
			log.Error("token rotation: mint failed", "err", err)
		} else {
			switch err := m.Sessions.Rotate(ctx, sid, rec.RefreshToken, fresh); {
			case err == nil:
				m.Cookies.SetSessionCookies(w, sid, fresh)
			case errors.Is(err, session.ErrRotationConflict):
				// A concurrent request rotated first. Adopt the
				// winner's record so this response carries the
				// same tokens.
				winner, gerr := m.Sessions.Get(ctx, sid)
				if gerr == nil {
					m.Cookies.SetSessionCookies(w, sid, winner)
				} else {
					log.Warn("token rotation: conflict and reload failed", "err", gerr)
				}
			case errors.Is(err, session.ErrNotFound):
				// Session vanished mid-request (logout race). The
				// buffered response still goes out; the next
				// request will be rejected.
				log.Info("token rotation: session gone", "session_id", sid)
			default:
				log.Error("token rotation failed", "err", err)
			}
		}
	}

	buf.flush(w)
}

func (m *SessionMiddleware) reject(w http.ResponseWriter) {
	m.Cookies.ClearSessionCookies(w)
	httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
}

func (m *SessionMiddleware) purgeAndReject(w http.ResponseWriter, r *http.Request, sid string) {
	if err := m.Sessions.Delete(r.Context(), sid); err != nil {
		slogx.FromContext(r.Context()).Warn("session purge failed", "session_id", sid, "err", err)
	}
	m.reject(w)
}

// bufferedResponse captures the downstream response so cookies can still be
// appended after the handler has "written" its status and body.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) { b.status = code }

func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedResponse) flush(w http.ResponseWriter) {
	for k, vs := range b.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(b.status)
	w.Write(b.body.Bytes()) //nolint:errcheck
}
