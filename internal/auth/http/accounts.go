package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tokelabs/sessiond/internal/auth/domain"
	"github.com/tokelabs/sessiond/internal/auth/service"
	"github.com/tokelabs/sessiond/pkg/httpx"
	"github.com/tokelabs/sessiond/pkg/slogx"
)

// AccountHandlers serves the account lifecycle endpoints.
type AccountHandlers struct {
	Accounts *service.AccountService
	Cookies  CookieSettings
}

type signupRequest struct {
	UserName     string `json:"userName"`
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
}

type loginRequest struct {
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// userResponse is the serialized user. The password hash is deliberately
// not representable here.
type userResponse struct {
	ID           string     `json:"id"`
	UserName     string     `json:"userName"`
	EmailAddress string     `json:"emailAddress"`
	IsActive     bool       `json:"isActive"`
	LastLoggedIn *time.Time `json:"lastLoggedIn,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:           u.ID.String(),
		UserName:     u.Name.String(),
		EmailAddress: u.Email.String(),
		IsActive:     u.IsActive,
		LastLoggedIn: u.LastLoggedIn,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

// Signup handles POST /v1/accounts/signup.
func (h *AccountHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name, err := domain.NewUserName(req.UserName)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	email, err := domain.NewEmailAddress(req.EmailAddress)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	password, err := domain.NewRawPassword(req.Password)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, err := h.Accounts.Signup(r.Context(), name, email, password)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			httpx.WriteError(w, http.StatusBadRequest, "email_taken", "email address already registered")
			return
		}
		slogx.FromContext(r.Context()).Error("signup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// Login handles POST /v1/accounts/login. On success the response body is
// empty and the session travels entirely in cookies.
func (h *AccountHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email, err := domain.NewEmailAddress(req.EmailAddress)
	if err != nil {
		// Do not leak whether the address is registered; a malformed
		// address fails the same way a wrong password does.
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "")
		return
	}

	result, err := h.Accounts.Login(r.Context(), email, req.Password)
	if err != nil {
		var inactive *service.NotActiveError
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "")
		case errors.As(err, &inactive):
			slogx.FromContext(r.Context()).Warn("login by inactive user", "user_id", inactive.UserID)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "")
		default:
			slogx.FromContext(r.Context()).Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}

	httpx.NoCache(w)
	h.Cookies.SetSessionCookies(w, result.SessionID, result.Session)
	w.WriteHeader(http.StatusOK)
}

// Logout handles POST /v1/accounts/logout. Runs behind the session guard,
// but tolerates a session record that is already gone.
func (h *AccountHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sid, _ := SessionIDFromContext(r.Context())
	if err := h.Accounts.Logout(r.Context(), sid); err != nil {
		slogx.FromContext(r.Context()).Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	httpx.NoCache(w)
	h.Cookies.ClearSessionCookies(w)
	w.WriteHeader(http.StatusOK)
}

// ChangePassword handles POST /v1/accounts/change-password. On success the
// current session is destroyed and the client must log in again.
func (h *AccountHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	sid, _ := SessionIDFromContext(r.Context())

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	newPassword, err := domain.NewRawPassword(req.NewPassword)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.Accounts.ChangePassword(r.Context(), user, sid, req.OldPassword, newPassword); err != nil {
		if errors.Is(err, service.ErrIncorrectCurrentPassword) {
			httpx.WriteError(w, http.StatusBadRequest, "incorrect_password", "current password is incorrect")
			return
		}
		slogx.FromContext(r.Context()).Error("change password failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	httpx.NoCache(w)
	h.Cookies.ClearSessionCookies(w)
	w.WriteHeader(http.StatusOK)
}
