package http

import (
	"context"
	"net/http"
	"time"

	"github.com/tokelabs/sessiond/internal/auth/session"
	"github.com/tokelabs/sessiond/internal/auth/store"
	"github.com/tokelabs/sessiond/pkg/httpx"
	"github.com/tokelabs/sessiond/pkg/slogx"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	Store    store.Store
	Sessions session.Store
}

// Livez handles GET /livez. Always healthy while the process serves.
func (HealthHandlers) Livez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz. Ready only when both backing stores answer.
func (h HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		slogx.FromContext(r.Context()).Warn("readiness: database ping failed", "err", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		return
	}
	if err := h.Sessions.Ping(ctx); err != nil {
		slogx.FromContext(r.Context()).Warn("readiness: session store ping failed", "err", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "session store unavailable"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
