package http

import (
	"log/slog"
	"net/http"

	"github.com/tokelabs/sessiond/internal/auth/service"
	"github.com/tokelabs/sessiond/internal/auth/session"
	"github.com/tokelabs/sessiond/internal/auth/store"
	"github.com/tokelabs/sessiond/pkg/httpx"
	"github.com/tokelabs/sessiond/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger  *slog.Logger
	cookies CookieSettings

	store    store.Store
	sessions session.Store

	AccountService *service.AccountService
	UserService    *service.UserService
	SessionService *service.SessionService
}

func NewRouter(
	st store.Store,
	sessions session.Store,
	cookies CookieSettings,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:      http.NewServeMux(),
		logger:   logger,
		cookies:  cookies,
		store:    st,
		sessions: sessions,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerProfile()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) sessionGuard() httpx.Middleware {
	mw := &SessionMiddleware{
		Sessions:  r.sessions,
		Users:     r.UserService,
		Minter:    r.SessionService,
		Extractor: CookieSessionExtractor{},
		Cookies:   r.cookies,
	}
	return mw.Middleware()
}

func (r *Router) registerAccounts() {
	handler := &AccountHandlers{
		Accounts: r.AccountService,
		Cookies:  r.cookies,
	}
	guard := r.sessionGuard()

	// Credential endpoints get the strict limit to slow brute force.
	r.Mux.Handle("POST /v1/accounts/signup",
		httpx.Chain(http.HandlerFunc(handler.Signup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/accounts/login",
		httpx.Chain(http.HandlerFunc(handler.Login),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/accounts/logout",
		httpx.Chain(http.HandlerFunc(handler.Logout),
			guard,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/accounts/change-password",
		httpx.Chain(http.HandlerFunc(handler.ChangePassword),
			guard,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerProfile() {
	handler := ProfileHandlers{}

	r.Mux.Handle("GET /v1/profile",
		httpx.Chain(http.HandlerFunc(handler.Profile),
			r.sessionGuard(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	handler := HealthHandlers{Store: r.store, Sessions: r.sessions}

	r.Mux.Handle("GET /livez", http.HandlerFunc(handler.Livez))
	r.Mux.Handle("GET /readyz", http.HandlerFunc(handler.Readyz))
}
