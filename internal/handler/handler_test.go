package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehedi/linkloom/internal/auth"
	"github.com/mehedi/linkloom/internal/handler"
	"github.com/mehedi/linkloom/internal/kv"
	"github.com/mehedi/linkloom/internal/mail"
	"github.com/mehedi/linkloom/internal/middleware"
	"github.com/mehedi/linkloom/internal/repository/sqlite"
	"github.com/mehedi/linkloom/internal/service"
	"github.com/mehedi/linkloom/internal/session"
)

// newTestRouter assembles the API against an in-memory database and
// key-value store — the same wiring as the server, minus the network.
func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := kv.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(store, "qid", false)

	passwords := auth.NewPasswordServiceWithParams(auth.Params{
		Time: 1, MemoryKiB: 64, Parallelism: 1, SaltLength: 8, KeyLength: 16,
	})
	authService := service.NewAuthService(db, passwords, store,
		mail.NewLogSender(logger), "http://localhost:3000", logger)
	postService := service.NewPostService(db, logger)

	authHandler := handler.NewAuthHandler(authService, sessions, logger)
	postHandler := handler.NewPostHandler(postService, sessions, logger)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/me", authHandler.HandleMe)
		r.Post("/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/change-password", authHandler.HandleChangePassword)

		r.Get("/posts", postHandler.HandleList)
		r.Get("/posts/{id}", postHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessions))
			r.Post("/posts", postHandler.HandleCreate)
			r.Put("/posts/{id}", postHandler.HandleUpdate)
			r.Delete("/posts/{id}", postHandler.HandleDelete)
			r.Post("/posts/{id}/vote", postHandler.HandleVote)
		})
	})
	return router
}

// do sends a JSON request through the router, attaching any cookies, and
// decodes the JSON response body into a generic map.
func do(t *testing.T, router *chi.Mux, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded),
		"response body is not JSON: %s", rec.Body.String())
	return rec, decoded
}

// register creates an account and returns the session cookie it was
// issued.
func register(t *testing.T, router *chi.Mux, username, email, password string) *http.Cookie {
	t.Helper()

	rec, _ := do(t, router, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "qid" {
			return c
		}
	}
	t.Fatal("register response carried no session cookie")
	return nil
}

// fieldError pulls the first entry out of an error-list body.
func fieldError(t *testing.T, body map[string]any) (field, message string) {
	t.Helper()
	list, ok := body["errors"].([]any)
	require.True(t, ok, "no errors list in body: %v", body)
	require.NotEmpty(t, list)
	entry := list[0].(map[string]any)
	return entry["field"].(string), entry["message"].(string)
}

func TestRegisterMeFlow(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "me did not return a user: %v", body)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"], "own email should be visible")
}

func TestMeWithoutSession(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code, "anonymous /me is not an error")
	assert.Nil(t, body["user"])
}

func TestRegisterValidationErrorShape(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodPost, "/api/register", map[string]string{
		"username": "ab",
		"email":    "a@b.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	field, message := fieldError(t, body)
	assert.Equal(t, "username", field)
	assert.Equal(t, "length must be greater than 2", message)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	field, _ := fieldError(t, body)
	assert.Equal(t, "username", field)
}

func TestLoginWrongPassword(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/login", map[string]string{
		"usernameOrEmail": "alice",
		"password":        "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	field, message := fieldError(t, body)
	assert.Equal(t, "password", field)
	assert.Equal(t, "incorrect password", message)
}

func TestLoginUnknownUser(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodPost, "/api/login", map[string]string{
		"usernameOrEmail": "ghost",
		"password":        "whatever",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	field, message := fieldError(t, body)
	assert.Equal(t, "usernameOrEmail", field)
	assert.Equal(t, "that user doesn't exist", message)
}

func TestLogoutEndsSession(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])

	// The old cookie no longer authenticates.
	_, body = do(t, router, http.MethodGet, "/api/me", nil, cookie)
	assert.Nil(t, body["user"])
}

func TestForgotPasswordAlwaysOK(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodPost, "/api/forgot-password", map[string]string{
		"email": "ghost@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"], "unknown addresses must get the same answer")
}

func TestChangePasswordBadToken(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodPost, "/api/change-password", map[string]string{
		"token":       "never-issued",
		"newPassword": "new-secret",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	field, message := fieldError(t, body)
	assert.Equal(t, "token", field)
	assert.Equal(t, "token expired", message)
}

func TestCreatePostRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodPost, "/api/posts", map[string]string{
		"title": "no session",
		"text":  "should bounce",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, message := fieldError(t, body)
	assert.Equal(t, "not authenticated", message)
}

func TestCreateAndGetPost(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/posts", map[string]string{
		"title": "first post",
		"text":  "hello world",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, "create failed: %s", rec.Body.String())

	created := body["post"].(map[string]any)
	id := int64(created["id"].(float64))
	assert.Equal(t, "first post", created["title"])
	assert.Equal(t, float64(0), created["points"])

	// Fetch it back anonymously: the creator is joined in, without email.
	rec, body = do(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	post := body["post"].(map[string]any)
	creator, ok := post["creator"].(map[string]any)
	require.True(t, ok, "post has no creator: %v", post)
	assert.Equal(t, "alice", creator["username"])
	assert.NotContains(t, creator, "email", "creator email must be hidden from strangers")
}

func TestCreatorEmailVisibleToOwner(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/posts", map[string]string{
		"title": "mine",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(body["post"].(map[string]any)["id"].(float64))

	// Viewing your own post shows your own email on the creator.
	_, body = do(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil, cookie)
	creator := body["post"].(map[string]any)["creator"].(map[string]any)
	assert.Equal(t, "alice@example.com", creator["email"])
}

func TestListPostsPagination(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	for i := 1; i <= 3; i++ {
		rec, _ := do(t, router, http.MethodPost, "/api/posts", map[string]string{
			"title": fmt.Sprintf("post %d", i),
		}, cookie)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := do(t, router, http.MethodGet, "/api/posts?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	posts := body["posts"].([]any)
	require.Len(t, posts, 2)
	// Newest first.
	assert.Equal(t, "post 3", posts[0].(map[string]any)["title"])
	assert.Equal(t, "post 2", posts[1].(map[string]any)["title"])
}

func TestListPostsBadCursor(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodGet, "/api/posts?cursor=banana", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	field, _ := fieldError(t, body)
	assert.Equal(t, "cursor", field)
}

func TestGetMissingPost(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := do(t, router, http.MethodGet, "/api/posts/424242", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePostReturnsOldTitle(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/posts", map[string]string{
		"title": "before",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(body["post"].(map[string]any)["id"].(float64))

	rec, body = do(t, router, http.MethodPut, fmt.Sprintf("/api/posts/%d", id), map[string]string{
		"title": "after",
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "before", body["post"].(map[string]any)["title"],
		"update returns the pre-update snapshot")

	// A fresh read sees the new title.
	_, body = do(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil)
	assert.Equal(t, "after", body["post"].(map[string]any)["title"])
}

func TestDeletePost(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/posts", map[string]string{
		"title": "doomed",
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(body["post"].(map[string]any)["id"].(float64))

	rec, body = do(t, router, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])

	rec, _ = do(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deleting again still reports ok.
	rec, body = do(t, router, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
}

func TestVoteFlow(t *testing.T) {
	router := newTestRouter(t)
	alice := register(t, router, "alice", "alice@example.com", "secret")
	bob := register(t, router, "bob", "bob@example.com", "secret")

	rec, body := do(t, router, http.MethodPost, "/api/posts", map[string]string{
		"title": "votable",
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := int64(body["post"].(map[string]any)["id"].(float64))

	points := func() float64 {
		t.Helper()
		_, body := do(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", id), nil)
		return body["post"].(map[string]any)["points"].(float64)
	}

	rec, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", id),
		map[string]int{"value": 1}, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), points())

	rec, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", id),
		map[string]int{"value": -1}, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), points())

	// Bob flips: swing of 2.
	rec, _ = do(t, router, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", id),
		map[string]int{"value": 1}, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), points())
}

func TestVoteMissingPost(t *testing.T) {
	router := newTestRouter(t)
	cookie := register(t, router, "alice", "alice@example.com", "secret")

	rec, _ := do(t, router, http.MethodPost, "/api/posts/424242/vote",
		map[string]int{"value": 1}, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
