package handler

// RESPONSE HELPERS
//
// Every mutation on this API returns either a populated result or a
// non-empty error list, never both:
//
//	{"user": {...}}                       on success
//	{"errors":[{"field":"username","message":"already taken"}]}  on failure
//
// Clients inspect the shape, not the transport: the error list carries the
// field each message belongs to, so a form can attach "already taken"
// straight to the username input. The HTTP status still reflects the error
// class for middleboxes and logs, but no client logic should depend on it.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mehedi/linkloom/internal/apperror"
	"github.com/mehedi/linkloom/internal/model"
)

// FieldError is one entry of the error list: which input field failed and
// a human-readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse is the standard error body.
type errorResponse struct {
	Errors []FieldError `json:"errors"`
}

// writeJSON sends a JSON response. Headers must be set before the first
// body write, hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a domain error into an HTTP status plus the
// standard error-list body.
//
// Unexpected errors (no AppError in the chain) become a generic 500 — the
// raw message may contain SQL or file paths and never reaches the client.
// They are logged by the layer that produced them.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation),
			errors.Is(err, apperror.ErrTokenExpired):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrInvalidCredentials),
			errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrDuplicate):
			status = http.StatusConflict
		}

		writeJSON(w, status, errorResponse{
			Errors: []FieldError{{Field: appErr.Field, Message: appErr.Message}},
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Errors: []FieldError{{Field: "", Message: "internal server error"}},
	})
}

// userView is the JSON shape a user is serialized to. Email is omitted
// unless the viewer owns the record — seeing your own email is fine,
// harvesting everyone else's is not. That check happens in viewUser, at
// the serialization boundary, so no handler can forget it.
type userView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// viewUser builds the public view of u for the given viewer (0 = anonymous).
func viewUser(u *model.User, viewerID int64) *userView {
	if u == nil {
		return nil
	}
	v := &userView{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt: u.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if viewerID == u.ID {
		v.Email = u.Email
	}
	return v
}

// postView is the JSON shape a post is serialized to, with the creator
// passed through the same owner-gated user view.
type postView struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Points    int       `json:"points"`
	CreatorID int64     `json:"creatorId"`
	Creator   *userView `json:"creator,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

func viewPost(p *model.Post, viewerID int64) *postView {
	if p == nil {
		return nil
	}
	return &postView{
		ID:        p.ID,
		Title:     p.Title,
		Text:      p.Text,
		Points:    p.Points,
		CreatorID: p.CreatorID,
		Creator:   viewUser(p.Creator, viewerID),
		CreatedAt: p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt: p.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
