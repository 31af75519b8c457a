package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mehedi/linkloom/internal/apperror"
	"github.com/mehedi/linkloom/internal/service"
	"github.com/mehedi/linkloom/internal/session"
)

// PostHandler exposes the post feed: listing, reading, writing, voting.
//
// It holds the session manager only to learn WHO is looking (for the
// owner-gated email field in creator views); WHETHER someone may write is
// enforced by the RequireAuth middleware on the route, not here.
type PostHandler struct {
	posts    *service.PostService
	sessions *session.Manager
	logger   *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(posts *service.PostService, sessions *session.Manager, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, sessions: sessions, logger: logger}
}

// viewerID resolves who is making the request: from the context on
// RequireAuth routes, from the cookie on public ones. 0 means anonymous.
func (h *PostHandler) viewerID(r *http.Request) int64 {
	if id, ok := session.UserIDFromContext(r.Context()); ok {
		return id
	}
	id, err := h.sessions.UserID(r.Context(), r)
	if err != nil {
		return 0
	}
	return id
}

// postIDParam parses the {id} URL parameter.
func postIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "post id must be an integer")
	}
	return id, nil
}

// HandleList returns one page of the feed.
//
// HTTP: GET /api/posts?limit=20&cursor=1605548926199
// The cursor is the createdAt of the last post already seen, as unix
// milliseconds; the page contains only strictly older posts.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "limit must be an integer"))
			return
		}
		limit = parsed
	}

	posts, err := h.posts.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, err)
		return
	}

	viewer := h.viewerID(r)
	views := make([]*postView, 0, len(posts))
	for i := range posts {
		views = append(views, viewPost(&posts[i], viewer))
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": views})
}

// HandleGet returns a single post.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := postIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": viewPost(post, h.viewerID(r))})
}

// HandleCreate submits a new post. The creator is the session's user —
// the body carries no creator field to trust or distrust.
//
// HTTP: POST /api/posts (auth required)
// Body: {"title": "...", "text": "..."}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't create ownerless rows.
		writeError(w, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "not authenticated"})
		return
	}

	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	post, err := h.posts.Create(r.Context(), req.Title, req.Text, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"post": viewPost(post, userID)})
}

// HandleUpdate applies a partial update (title only).
//
// HTTP: PUT /api/posts/{id} (auth required)
// Body: {"title": "..."} — omit the field to change nothing.
//
// The returned post is the pre-update snapshot; see PostService.Update.
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := postIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Title *string `json:"title"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	post, err := h.posts.Update(r.Context(), id, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": viewPost(post, h.viewerID(r))})
}

// HandleDelete removes a post.
//
// HTTP: DELETE /api/posts/{id} (auth required)
// Response: {"ok": true} — also for ids that never existed.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := postIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// HandleVote casts the session user's vote on a post.
//
// HTTP: POST /api/posts/{id}/vote (auth required)
// Body: {"value": 1} or {"value": -1}
func (h *PostHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "not authenticated"})
		return
	}

	id, err := postIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Value int `json:"value"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.posts.Vote(r.Context(), userID, id, req.Value); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
