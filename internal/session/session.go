// Package session implements cookie-bound server-side sessions.
//
// HOW A SESSION WORKS HERE:
// On login we generate a random session id, store "sess:<id>" → userID in
// the key-value store with a 7-day TTL, and hand the browser ONLY the id,
// in an HttpOnly cookie. Every later request presents the cookie; we look
// the id up to learn who is logged in. Logout deletes the server-side
// record, which kills the session everywhere — unlike a stateless JWT,
// there is nothing left for the browser to replay.
//
// The cookie is:
//   - HttpOnly: JavaScript can't read it (XSS protection)
//   - SameSite=Lax: not sent on cross-site POSTs (CSRF protection)
//   - Secure in production (HTTPS only), configurable for local dev
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/mehedi/linkloom/internal/kv"
)

// keyPrefix namespaces session keys in the shared key-value store.
const keyPrefix = "sess:"

// TTL is how long a session lives without being re-established.
const TTL = 7 * 24 * time.Hour

// ErrNoSession is returned by UserID when the request carries no valid
// session — no cookie, or a cookie whose server-side record is gone.
var ErrNoSession = errors.New("session: not logged in")

// contextKey is an unexported type so nothing outside this package can
// collide with our context values.
type contextKey struct{}

// Manager creates, reads, and destroys sessions. It owns the cookie
// settings; handlers never touch http.SetCookie for sessions directly.
type Manager struct {
	store      kv.Store
	cookieName string
	secure     bool
}

// NewManager creates a session Manager backed by the given store.
func NewManager(store kv.Store, cookieName string, secure bool) *Manager {
	return &Manager{store: store, cookieName: cookieName, secure: secure}
}

// Create establishes a new session bound to userID and sets the cookie on
// the response. Any previous session cookie is simply superseded.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID int64) error {
	id := xid.New().String()

	if err := m.store.Set(ctx, keyPrefix+id, strconv.FormatInt(userID, 10), TTL); err != nil {
		return fmt.Errorf("session: storing session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
	})
	return nil
}

// UserID returns the user id bound to the request's session cookie.
// Returns ErrNoSession when the request is not authenticated; any other
// error is a store failure.
func (m *Manager) UserID(ctx context.Context, r *http.Request) (int64, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return 0, ErrNoSession
	}

	value, err := m.store.Get(ctx, keyPrefix+cookie.Value)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, ErrNoSession
		}
		return 0, fmt.Errorf("session: loading session: %w", err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session: corrupt session record %q: %w", value, err)
	}
	return userID, nil
}

// Destroy deletes the server-side session record and tells the browser to
// drop the cookie. The cookie is cleared even when the store delete fails,
// so a client is never left holding a cookie we know is dead.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var storeErr error
	if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
		storeErr = m.store.Del(ctx, keyPrefix+cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
	})

	if storeErr != nil {
		return fmt.Errorf("session: destroying session: %w", storeErr)
	}
	return nil
}

// WithUserID returns a context carrying the authenticated user's id.
// Set by the RequireAuth middleware.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserIDFromContext extracts the authenticated user's id placed in the
// context by RequireAuth. ok is false on unauthenticated requests.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(contextKey{}).(int64)
	return userID, ok
}
