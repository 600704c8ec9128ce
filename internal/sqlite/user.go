package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/repository"
)

// UserRepository implements user.Repository and the role-membership oracle for SQLite
type UserRepository struct {
	q querier
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{q: db.DB}
}

// Create inserts a user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, email, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.DisplayName, u.Email, u.CreatedAt,
	)
	if err != nil {
		if e := classify(err); e != nil {
			return e
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) one(ctx context.Context, where string, arg any) (*user.User, error) {
	var u user.User
	err := r.q.QueryRowContext(ctx,
		`SELECT id, username, display_name, email, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	return r.one(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.one(ctx, "username = ?", username)
}

// List returns every user ordered by username
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, username, display_name, email, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// GrantRole adds the user to role. Granting twice is a no-op.
func (r *UserRepository) GrantRole(ctx context.Context, userID, role string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO role_members (role, user_id, granted_at) VALUES (?, ?, ?) ON CONFLICT (role, user_id) DO NOTHING`,
		role, userID, time.Now().UTC(),
	)
	if err != nil {
		if e := classify(err); e != nil {
			return e
		}
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// RevokeRole removes the user from role
func (r *UserRepository) RevokeRole(ctx context.Context, userID, role string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM role_members WHERE role = ? AND user_id = ?`, role, userID); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// IsMember reports whether the user holds role
func (r *UserRepository) IsMember(ctx context.Context, userID, role string) (bool, error) {
	var ok bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM role_members WHERE role = ? AND user_id = ?)`, role, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check role membership: %w", err)
	}
	return ok, nil
}

// Members lists the user IDs holding role
func (r *UserRepository) Members(ctx context.Context, role string) ([]string, error) {
	return r.column(ctx, `SELECT user_id FROM role_members WHERE role = ? ORDER BY granted_at, user_id`, role)
}

// RolesOf lists the roles held by a user
func (r *UserRepository) RolesOf(ctx context.Context, userID string) ([]string, error) {
	return r.column(ctx, `SELECT role FROM role_members WHERE user_id = ? ORDER BY role`, userID)
}

func (r *UserRepository) column(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}
	return out, nil
}

// CreateAPIKey stores the hash of a new API key
func (r *UserRepository) CreateAPIKey(ctx context.Context, keyHash, userID, description string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, user_id, description, created_at) VALUES (?, ?, ?, ?)`,
		keyHash, userID, description, time.Now().UTC(),
	)
	if err != nil {
		if e := classify(err); e != nil {
			return e
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ResolveAPIKey returns the user owning keyHash and records its use
func (r *UserRepository) ResolveAPIKey(ctx context.Context, keyHash string) (string, error) {
	var userID string
	err := r.q.QueryRowContext(ctx, `SELECT user_id FROM api_keys WHERE key_hash = ?`, keyHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	if _, err := r.q.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), keyHash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return userID, nil
}
