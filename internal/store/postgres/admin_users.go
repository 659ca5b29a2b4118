package postgres

import (
	"context"
	"fmt"
	"strings"

	"expensemate/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminUsersStore backs the admin portal user list and the broadcast
// recipient query.
type AdminUsersStore struct {
	pool *pgxpool.Pool
}

func NewAdminUsersStore(pool *pgxpool.Pool) *AdminUsersStore {
	return &AdminUsersStore{pool: pool}
}

func (s *AdminUsersStore) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT id, email, username, display_name, status, created_at, updated_at, last_login_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return s.queryUsers(ctx, q, limit, offset)
}

func (s *AdminUsersStore) SearchUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.User{}, nil
	}

	like := "%" + query + "%"
	const q = `
		SELECT id, email, username, display_name, status, created_at, updated_at, last_login_at
		FROM users
		WHERE id::text ILIKE $1
		   OR username ILIKE $1
		   OR display_name ILIKE $1
		   OR email ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return s.queryUsers(ctx, q, like, limit, offset)
}

func (s *AdminUsersStore) SetUserStatus(ctx context.Context, userID string, status domain.UserStatus) error {
	const q = `
		UPDATE users
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, q, userID, status)
	if err != nil {
		return fmt.Errorf("set user status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListUserEmails returns the addresses of every active user that has one.
// Broadcasts go out BCC, so only the address list is needed.
func (s *AdminUsersStore) ListUserEmails(ctx context.Context) ([]string, error) {
	const q = `
		SELECT email
		FROM users
		WHERE status = 'active' AND email IS NOT NULL AND email <> ''
		ORDER BY email ASC
	`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list user emails: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		out = append(out, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user emails: %w", err)
	}
	return out, nil
}

func (s *AdminUsersStore) queryUsers(ctx context.Context, q string, args ...any) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var (
			u           domain.User
			idUUID      pgtype.UUID
			emailText   pgtype.Text
			lastLoginTS pgtype.Timestamptz
		)
		if err := rows.Scan(&idUUID, &emailText, &u.Username, &u.DisplayName, &u.Status, &u.CreatedAt, &u.UpdatedAt, &lastLoginTS); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.ID = uuidOrEmpty(idUUID)
		u.Email = textOrEmpty(emailText)
		u.LastLoginAt = timestamptzPtr(lastLoginTS)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	return out, nil
}
