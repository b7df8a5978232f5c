package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

type (
	// Session is the result of a successful login.
	Session struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		User         core.User `json:"user"`
	}

	NewUser struct {
		Email    string    `json:"email"`
		Password string    `json:"password"`
		Name     string    `json:"name"`
		Surname  string    `json:"surname"`
		Role     core.Role `json:"role"`
		Phone    string    `json:"phone"`
		IsActive *bool     `json:"is_active"`
	}

	UserPatch struct {
		Email    *string    `json:"email"`
		Name     *string    `json:"name"`
		Surname  *string    `json:"surname"`
		Role     *core.Role `json:"role"`
		Phone    *string    `json:"phone"`
		IsActive *bool      `json:"is_active"`
	}
)

// UserService covers authentication and user administration.
type UserService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
	jwt    *auth.JWTManager
}

func NewUserService(repo *storage.SQLiteRepository, policy *auth.Policy, jwt *auth.JWTManager) *UserService {
	return &UserService{repo: repo, policy: policy, jwt: jwt}
}

// Login checks credentials and issues an access/refresh token pair. Unknown
// emails and wrong passwords produce the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Session{}, auth.ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		slog.WarnContext(ctx, "Failed login attempt", "user_id", user.ID)
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, auth.ErrInactiveUser
	}

	access, err := s.jwt.GenerateAccess(user)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.jwt.GenerateRefresh(user)
	if err != nil {
		return Session{}, err
	}
	slog.InfoContext(ctx, "User logged in", "user_id", user.ID, "role", user.Role)
	return Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh exchanges a refresh token for a new access token. The user must
// still exist and be active.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.Validate(refreshToken, auth.RefreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.repo.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", auth.ErrInvalidToken
		}
		return "", fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return "", auth.ErrInactiveUser
	}
	return s.jwt.GenerateAccess(user)
}

// Me returns the authenticated user.
func (s *UserService) Me(ctx context.Context) (core.User, error) {
	p, ok := auth.PrincipalFrom(ctx)
	if !ok || p.UserID == 0 {
		return core.User{}, core.Forbidden("authentication required")
	}
	return s.repo.GetUser(ctx, p.UserID)
}

func (s *UserService) ChangePassword(ctx context.Context, current, next string) error {
	user, err := s.Me(ctx)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, current); err != nil {
		return core.NewValidationError("current_password", "current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return core.Invalid("new_password", err)
		}
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Password changed", "user_id", user.ID)
	return nil
}

// ListUsers is admin only.
func (s *UserService) ListUsers(ctx context.Context, f core.UserFilter) ([]core.User, error) {
	if !principal(ctx).IsAdmin() {
		return nil, core.Forbidden("only administrators may list users")
	}
	return s.repo.ListUsers(ctx, f)
}

// ListLawyers returns active users who can be assigned cases.
func (s *UserService) ListLawyers(ctx context.Context) ([]core.User, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindUser); err != nil {
		return nil, err
	}
	return s.repo.ListLawyers(ctx)
}

// GetUser allows users to read themselves; admins read anyone.
func (s *UserService) GetUser(ctx context.Context, id int64) (core.User, error) {
	if err := s.selfOrAdmin(ctx, id); err != nil {
		return core.User{}, err
	}
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) selfOrAdmin(ctx context.Context, id int64) error {
	p, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return core.Forbidden("authentication required")
	}
	if !p.Active {
		return core.Forbidden("user account is disabled")
	}
	if p.IsAdmin() || p.UserID == id {
		return nil
	}
	return core.Forbidden("you may only access your own account")
}

func (s *UserService) CreateUser(ctx context.Context, in NewUser) (core.User, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindUser); err != nil {
		return core.User{}, err
	}
	return s.createUser(ctx, in)
}

func (s *UserService) createUser(ctx context.Context, in NewUser) (core.User, error) {
	u := core.User{
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Name:     strings.TrimSpace(in.Name),
		Surname:  strings.TrimSpace(in.Surname),
		Role:     in.Role,
		Phone:    strings.TrimSpace(in.Phone),
		IsActive: true,
	}
	if u.Role == "" {
		u.Role = core.RoleLawyer
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return core.User{}, core.Invalid("password", err)
		}
		return core.User{}, err
	}
	u.PasswordHash = hash

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, err
	}
	slog.InfoContext(ctx, "User created", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// UpdateUser applies p. Only administrators may change email, role or the
// active flag.
func (s *UserService) UpdateUser(ctx context.Context, id int64, p UserPatch) (core.User, error) {
	if err := s.selfOrAdmin(ctx, id); err != nil {
		return core.User{}, err
	}
	if !principal(ctx).IsAdmin() && (p.Email != nil || p.Role != nil || p.IsActive != nil) {
		return core.User{}, core.Forbidden("only administrators may change email, role or status")
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	trimPtr(&u.Email, p.Email)
	trimPtr(&u.Name, p.Name)
	trimPtr(&u.Surname, p.Surname)
	trimPtr(&u.Phone, p.Phone)
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	u.Email = strings.ToLower(u.Email)
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return core.User{}, err
	}
	return s.repo.GetUser(ctx, id)
}

// DeleteUser removes a user. Users referenced by clients or cases are
// deactivated instead; deactivated reports which happened.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (deactivated bool, err error) {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindUser); err != nil {
		return false, err
	}
	if principal(ctx).UserID == id {
		return false, core.NewValidationError("id", "you cannot delete your own account")
	}

	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		u, err := q.GetUser(ctx, id)
		if err != nil {
			return err
		}
		has, err := q.UserHasRecords(ctx, id)
		if err != nil {
			return err
		}
		if has {
			deactivated = true
			u.IsActive = false
			return q.UpdateUser(ctx, u)
		}
		return q.DeleteUser(ctx, id)
	})
	if err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "User removed", "user_id", id, "deactivated", deactivated)
	return deactivated, nil
}

// EnsureAdmin creates the first administrator when none exists. It runs
// without a principal and reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if password == "" {
		return false, fmt.Errorf("no administrator exists and ADMIN_PASSWORD is not set")
	}
	if _, err := s.createUser(ctx, NewUser{
		Email: email, Password: password, Name: "System", Surname: "Administrator", Role: core.RoleAdmin,
	}); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}

// ResetPassword sets a new password for the user with email. Used by the
// admin CLI, outside any request.
func (s *UserService) ResetPassword(ctx context.Context, email, password string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, hash)
}

// CreateUserAsSystem is CreateUser without a principal, for the admin CLI.
func (s *UserService) CreateUserAsSystem(ctx context.Context, in NewUser) (core.User, error) {
	return s.createUser(auth.WithPrincipal(ctx, auth.System()), in)
}
