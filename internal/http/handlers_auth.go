package http

import (
	"net/http"

	"lawdesk/internal/auth"
	"lawdesk/internal/services"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Email == "" || in.Password == "" {
		BadRequestError("email and password are required").Write(w)
		return
	}
	session, err := s.Users.Login(r.Context(), sanitizeInput(in.Email), in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Field("access_token", session.AccessToken).
		Field("refresh_token", session.RefreshToken).
		Field("user", session.User).
		Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		auth.WriteAuthError(w, err)
		return
	}
	access, err := s.Users.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("access_token", access).Write(w)
}

// handleLogout is stateless; clients discard their tokens.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Message("logged out").Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.Users.Me(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("user", user).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Users.ChangePassword(r.Context(), in.Current, in.New); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("password changed").Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	f := userFilter(p)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	users, err := s.Users.ListUsers(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("users", users).Write(w)
}

func (s *Server) handleListLawyers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.ListLawyers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("lawyers", users).Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.Users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("user", user).Write(w)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in services.NewUser
	if err := DecodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.Users.CreateUser(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("user created").Field("user", user).Write(w)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p services.UserPatch
	if err := DecodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.Users.UpdateUser(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("user updated").Field("user", user).Write(w)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deactivated, err := s.Users.DeleteUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "user deleted"
	if deactivated {
		msg = "user has related records and was deactivated"
	}
	NewJSONResponse().Message(msg).Field("deactivated", deactivated).Write(w)
}
