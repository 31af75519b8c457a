package middleware

import (
	"errors"
	"net/http"

	"github.com/mehedi/linkloom/internal/session"
)

// RequireAuth rejects requests without a valid session and, for the ones
// that pass, stores the user id in the request context where handlers
// read it with session.UserIDFromContext.
//
// The 401 body uses the same error-list shape as every other error on
// this API, so clients need exactly one error parser.
func RequireAuth(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.UserID(r.Context(), r)
			if err != nil {
				status := http.StatusInternalServerError
				message := `{"errors":[{"field":"","message":"internal server error"}]}`
				if errors.Is(err, session.ErrNoSession) {
					status = http.StatusUnauthorized
					message = `{"errors":[{"field":"","message":"not authenticated"}]}`
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				w.Write([]byte(message + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithUserID(r.Context(), userID)))
		})
	}
}
