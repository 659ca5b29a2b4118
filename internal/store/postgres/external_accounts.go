package postgres

import (
	"context"
	"errors"
	"fmt"

	"expensemate/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExternalAccountsStore links google and apple identities to local users.
type ExternalAccountsStore struct {
	pool *pgxpool.Pool
}

func NewExternalAccountsStore(pool *pgxpool.Pool) *ExternalAccountsStore {
	return &ExternalAccountsStore{pool: pool}
}

func (s *ExternalAccountsStore) CreateExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	const q = `
		INSERT INTO external_accounts (user_id, provider, provider_id, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, provider, provider_id, email, created_at
	`

	var (
		acct       domain.ExternalAccount
		idUUID     pgtype.UUID
		userIDUUID pgtype.UUID
		emailText  pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, userID, provider, providerID, nullIfEmpty(email)).Scan(
		&idUUID,
		&userIDUUID,
		&acct.Provider,
		&acct.ProviderID,
		&emailText,
		&acct.CreatedAt,
	)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" && pgerr.ConstraintName == "external_accounts_provider_uq" {
			return domain.ExternalAccount{}, domain.ErrExternalAccountExists
		}
		return domain.ExternalAccount{}, fmt.Errorf("create external account: %w", err)
	}

	acct.ID = uuidOrEmpty(idUUID)
	acct.UserID = uuidOrEmpty(userIDUUID)
	acct.Email = textOrEmpty(emailText)
	return acct, nil
}

func (s *ExternalAccountsStore) GetUserIDByProvider(ctx context.Context, provider, providerID string) (string, error) {
	const q = `
		SELECT user_id
		FROM external_accounts
		WHERE provider = $1 AND provider_id = $2
	`

	var userIDUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q, provider, providerID).Scan(&userIDUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get external account: %w", err)
	}
	return uuidOrEmpty(userIDUUID), nil
}
