package storage

import (
	"context"
	"fmt"
	"strings"

	"lawdesk/internal/core"
)

const userColumns = `id, email, password_hash, name, surname, role, phone, is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (core.User, error) {
	var (
		u                core.User
		role             string
		created, updated string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Surname, &role, &u.Phone, &u.IsActive, &created, &updated); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return u, nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, notFound(err, "user", id)
	}
	return u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return core.User{}, notFound(err, "user", email)
	}
	return u, nil
}

func (q *Queries) ListUsers(ctx context.Context, f core.UserFilter) ([]core.User, error) {
	var w where
	w.search(f.Search, "name", "surname", "email")
	if f.Role != "" {
		w.add("role = ?", string(f.Role))
	}
	if f.IsActive != nil {
		w.add("is_active = ?", boolInt(*f.IsActive))
	}
	return q.queryUsers(ctx, `SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY name, surname, id`, w.args...)
}

// ListLawyers returns active users who can be assigned cases.
func (q *Queries) ListLawyers(ctx context.Context) ([]core.User, error) {
	return q.queryUsers(ctx, `SELECT `+userColumns+` FROM users
		WHERE is_active = 1 AND role IN ('admin', 'lawyer') ORDER BY name, surname, id`)
}

func (q *Queries) queryUsers(ctx context.Context, query string, args ...any) ([]core.User, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := q.now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := q.db.ExecContext(ctx, `INSERT INTO users
		(email, password_hash, name, surname, role, phone, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Name, u.Surname, string(u.Role), u.Phone, boolInt(u.IsActive), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.Conflict("email %s is already registered", u.Email)
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetUser(ctx, id)
}

func (q *Queries) UpdateUser(ctx context.Context, u core.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := q.db.ExecContext(ctx, `UPDATE users SET
		email = ?, name = ?, surname = ?, role = ?, phone = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, u.Surname, string(u.Role), u.Phone, boolInt(u.IsActive), q.now(), u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Conflict("email %s is already registered", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res, "user", u.ID)
}

func (q *Queries) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, q.now(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res, "user", id)
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res, "user", id)
}

// UserHasRecords reports whether the user created clients or is assigned cases.
func (q *Queries) UserHasRecords(ctx context.Context, id int64) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM clients WHERE created_by = ?) +
		(SELECT COUNT(*) FROM cases WHERE lawyer_id = ?)`, id, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count user records: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
