package http

import (
	"net/http"

	"github.com/tokelabs/sessiond/internal/auth/domain"
)

// Cookie names carried by every authenticated request.
const (
	CookieSessionID    = "session_id"
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

// CookieSettings holds the attributes that vary by deployment. HttpOnly and
// Path=/ are fixed.
type CookieSettings struct {
	Secure   bool
	SameSite http.SameSite
}

func (c CookieSettings) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
		MaxAge:   maxAge,
	}
}

// SetSessionCookies writes all three auth cookies for the given session. The
// cookies are session-scoped in the browser; server-side expiry is what
// actually bounds their life.
func (c CookieSettings) SetSessionCookies(w http.ResponseWriter, sid string, rec domain.Session) {
	http.SetCookie(w, c.cookie(CookieSessionID, sid, 0))
	http.SetCookie(w, c.cookie(CookieAccessToken, rec.AccessToken, 0))
	http.SetCookie(w, c.cookie(CookieRefreshToken, rec.RefreshToken, 0))
}

// ClearSessionCookies instructs the client to drop all three auth cookies.
func (c CookieSettings) ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(CookieSessionID, "", -1))
	http.SetCookie(w, c.cookie(CookieAccessToken, "", -1))
	http.SetCookie(w, c.cookie(CookieRefreshToken, "", -1))
}
