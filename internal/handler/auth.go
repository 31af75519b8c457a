// Package handler contains the HTTP layer: request parsing, response
// shaping, and nothing else — business rules live in internal/service.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mehedi/linkloom/internal/apperror"
	"github.com/mehedi/linkloom/internal/service"
	"github.com/mehedi/linkloom/internal/session"
)

// AuthHandler exposes registration, login/logout, and the password-reset
// endpoints.
//
// The split of responsibilities with AuthService: the service decides WHO
// the user is; this handler decides what the browser remembers about it —
// it creates and destroys the session cookie around service calls.
type AuthHandler struct {
	auths    *service.AuthService
	sessions *session.Manager
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auths *service.AuthService, sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auths: auths, sessions: sessions, logger: logger}
}

// decodeBody decodes a JSON request body, reporting malformed input as a
// field error the client can render.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return false
	}
	return true
}

// HandleRegister creates an account and logs it straight in.
//
// HTTP: POST /api/register
// Body: {"username": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.auths.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.Create(r.Context(), w, user.ID); err != nil {
		h.logger.Error("register: creating session", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": viewUser(user, user.ID)})
}

// HandleLogin authenticates by username or email and establishes a session.
//
// HTTP: POST /api/login
// Body: {"usernameOrEmail": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Password        string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.auths.Login(r.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.Create(r.Context(), w, user.ID); err != nil {
		h.logger.Error("login: creating session", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": viewUser(user, user.ID)})
}

// HandleLogout destroys the session.
//
// HTTP: POST /api/logout
// Response: {"ok": true} — false only when the server-side destroy failed.
// The cookie is cleared either way, so the browser forgets the session id
// even when the store record lingers until its TTL.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.Destroy(r.Context(), w, r)
	if err != nil {
		h.logger.Error("logout: destroying session", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": err == nil})
}

// HandleMe returns the logged-in user, or null without a session — an
// anonymous visitor is a normal state here, not a 401.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := h.sessions.UserID(r.Context(), r)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			writeJSON(w, http.StatusOK, map[string]any{"user": nil})
			return
		}
		h.logger.Error("me: loading session", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	user, err := h.auths.Me(r.Context(), userID)
	if err != nil {
		// A session pointing at a deleted user: treat as logged out.
		if errors.Is(err, apperror.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"user": nil})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": viewUser(user, user.ID)})
}

// HandleForgotPassword kicks off the reset flow.
//
// HTTP: POST /api/forgot-password
// Body: {"email": "..."}
// Response: {"ok": true} whether or not the email has an account — the
// response shape must not reveal which addresses are registered.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.auths.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Error("forgot-password failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleChangePassword redeems a reset token and logs the user in with
// their new password.
//
// HTTP: POST /api/change-password
// Body: {"token": "...", "newPassword": "..."}
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.auths.ChangePassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.sessions.Create(r.Context(), w, user.ID); err != nil {
		h.logger.Error("change-password: creating session", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": viewUser(user, user.ID)})
}
