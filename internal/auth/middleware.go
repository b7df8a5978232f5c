package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"lawdesk/internal/core"
)

// UserLookup loads the current state of a user.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// BearerToken extracts the token from an Authorization: Bearer header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}

// Middleware requires a valid access token. The user is reloaded on every
// request so role changes and deactivation apply immediately.
func Middleware(jwtManager *JWTManager, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				WriteAuthError(w, err)
				return
			}
			claims, err := jwtManager.Validate(token, AccessToken)
			if err != nil {
				WriteAuthError(w, err)
				return
			}
			user, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					WriteAuthError(w, ErrInvalidToken)
					return
				}
				slog.ErrorContext(r.Context(), "Failed to load authenticated user", "user_id", claims.UserID, "error", err)
				writeJSON(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
			if !user.IsActive {
				writeJSON(w, http.StatusForbidden, "user_inactive", ErrInactiveUser.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), PrincipalFor(user))))
		})
	}
}

// WriteAuthError renders a 401 with a code distinguishing the failure.
func WriteAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingToken):
		writeJSON(w, http.StatusUnauthorized, "authorization_required", "authorization token required")
	case errors.Is(err, ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, "token_expired", "token has expired")
	default:
		writeJSON(w, http.StatusUnauthorized, "invalid_token", "invalid token")
	}
}

func writeJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
