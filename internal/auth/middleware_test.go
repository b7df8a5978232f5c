package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lawdesk/internal/core"
)

type stubUsers map[int64]core.User

func (s stubUsers) GetUser(_ context.Context, id int64) (core.User, error) {
	u, ok := s[id]
	if !ok {
		return core.User{}, core.NotFound("user", id)
	}
	return u, nil
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"", "", ErrMissingToken},
		{"Bearer abc", "abc", nil},
		{"bearer  abc ", "abc", nil},
		{"Basic abc", "", ErrInvalidToken},
		{"Bearer", "", ErrInvalidToken},
		{"Bearer    ", "", ErrInvalidToken},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, err := BearerToken(r)
		if !errors.Is(err, tt.wantErr) || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestMiddleware(t *testing.T) {
	m := NewJWTManager("secret", time.Minute, time.Hour)
	disabled := core.User{ID: 7, Email: "old@example.com", Role: core.RoleIntern}
	promoted := testUser
	promoted.Role = core.RoleAdmin
	users := stubUsers{testUser.ID: promoted, disabled.ID: disabled}

	var seen Principal
	h := Middleware(m, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token := func(u core.User, refresh bool) string {
		gen := m.GenerateAccess
		if refresh {
			gen = m.GenerateRefresh
		}
		s, err := gen(u)
		if err != nil {
			t.Fatal(err)
		}
		return "Bearer " + s
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing", "", http.StatusUnauthorized, "authorization_required"},
		{"malformed", "Token x", http.StatusUnauthorized, "invalid_token"},
		{"refresh token", token(testUser, true), http.StatusUnauthorized, "invalid_token"},
		{"unknown user", token(core.User{ID: 999, Role: core.RoleLawyer}, false), http.StatusUnauthorized, "invalid_token"},
		{"inactive user", token(disabled, false), http.StatusForbidden, "user_inactive"},
		{"valid", token(testUser, false), http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCode == "" {
				return
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != tt.wantCode {
				t.Errorf("error code = %q, want %q", body["error"], tt.wantCode)
			}
		})
	}

	// The role comes from the stored user, not the token.
	if seen.UserID != testUser.ID || seen.Role != core.RoleAdmin {
		t.Errorf("unexpected principal %+v", seen)
	}
}
