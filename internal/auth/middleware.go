package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taskly/taskly-be/internal/models"
)

// UserResolver looks up the user whose active token set contains the exact
// token string.
type UserResolver interface {
	GetUserByToken(userID, token string) (models.User, error)
}

// Middleware creates a middleware for protecting routes. It resolves the
// Authorization bearer token to a user and rejects the request with 401
// before the handler runs if that fails in any way.
func Middleware(tokens *TokenManager, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				rejectUnauthenticated(w)
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				rejectUnauthenticated(w)
				return
			}

			// The token must still be in the user's active set; logout
			// removes it there, which invalidates it before its expiry.
			user, err := users.GetUserByToken(userID, tokenStr)
			if err != nil {
				rejectUnauthenticated(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, tokenStr)))
		})
	}
}

func rejectUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Please authenticate."})
}
