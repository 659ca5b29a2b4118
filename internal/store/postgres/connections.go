package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensemate/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConnectionsStore struct {
	pool *pgxpool.Pool
}

func NewConnectionsStore(pool *pgxpool.Pool) *ConnectionsStore {
	return &ConnectionsStore{pool: pool}
}

func (s *ConnectionsStore) CreateRequest(ctx context.Context, requesterID, receiverID string) (string, time.Time, error) {
	const q = `
		INSERT INTO connections (requester_id, receiver_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, created_at
	`

	var (
		idUUID    pgtype.UUID
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx, q, requesterID, receiverID).Scan(&idUUID, &createdAt)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) {
			switch {
			case pgerr.Code == "23505" && pgerr.ConstraintName == "connections_pair_uq":
				return "", time.Time{}, domain.ErrConnectionExists
			case pgerr.Code == "23503":
				return "", time.Time{}, domain.ErrNotFound
			case pgerr.Code == "23514" && pgerr.ConstraintName == "connections_no_self":
				return "", time.Time{}, domain.NewValidationError(map[string]string{"user_id": "cannot connect to yourself"})
			}
		}
		return "", time.Time{}, fmt.Errorf("create connection request: %w", err)
	}

	return uuidOrEmpty(idUUID), createdAt, nil
}

func (s *ConnectionsStore) Accept(ctx context.Context, requestID, receiverID string, when time.Time) error {
	return s.respond(ctx, requestID, receiverID, string(domain.ConnectionStatusAccepted), when)
}

func (s *ConnectionsStore) Reject(ctx context.Context, requestID, receiverID string, when time.Time) error {
	return s.respond(ctx, requestID, receiverID, string(domain.ConnectionStatusRejected), when)
}

// respond only flips pending rows addressed to the receiver; anything else
// is reported as not found.
func (s *ConnectionsStore) respond(ctx context.Context, requestID, receiverID, status string, when time.Time) error {
	const q = `
		UPDATE connections
		SET status = $3, responded_at = $4
		WHERE id = $1 AND receiver_id = $2 AND status = 'pending'
	`
	ct, err := s.pool.Exec(ctx, q, requestID, receiverID, status, when)
	if err != nil {
		return fmt.Errorf("respond to connection request: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Remove deletes the connection row between the two users regardless of
// direction. Rejected rows are removed too so a fresh request can follow.
func (s *ConnectionsStore) Remove(ctx context.Context, userID, otherID string) error {
	const q = `
		DELETE FROM connections
		WHERE (requester_id = $1 AND receiver_id = $2)
		   OR (requester_id = $2 AND receiver_id = $1)
	`
	ct, err := s.pool.Exec(ctx, q, userID, otherID)
	if err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AreConnected reports whether an accepted connection exists between the
// two users.
func (s *ConnectionsStore) AreConnected(ctx context.Context, userID, otherID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM connections
			WHERE status = 'accepted'
			  AND ((requester_id = $1 AND receiver_id = $2)
			    OR (requester_id = $2 AND receiver_id = $1))
		)
	`
	var ok bool
	if err := s.pool.QueryRow(ctx, q, userID, otherID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check connection: %w", err)
	}
	return ok, nil
}

func (s *ConnectionsStore) ListOverview(ctx context.Context, userID string) (domain.ConnectionsOverview, error) {
	friends, err := s.listFriends(ctx, userID)
	if err != nil {
		return domain.ConnectionsOverview{}, err
	}
	incoming, err := s.listRequests(ctx, userID, true)
	if err != nil {
		return domain.ConnectionsOverview{}, err
	}
	outgoing, err := s.listRequests(ctx, userID, false)
	if err != nil {
		return domain.ConnectionsOverview{}, err
	}

	return domain.ConnectionsOverview{
		Friends:  friends,
		Incoming: incoming,
		Outgoing: outgoing,
	}, nil
}

func (s *ConnectionsStore) listFriends(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	const q = `
		SELECT u.id, u.username, u.display_name
		FROM connections c
		JOIN users u ON u.id = CASE
			WHEN c.requester_id = $1 THEN c.receiver_id
			ELSE c.requester_id
		END
		WHERE c.status = 'accepted' AND (c.requester_id = $1 OR c.receiver_id = $1)
		ORDER BY u.username ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []domain.UserSummary
	for rows.Next() {
		var idUUID pgtype.UUID
		var username, displayName string
		if err := rows.Scan(&idUUID, &username, &displayName); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		out = append(out, domain.UserSummary{ID: uuidOrEmpty(idUUID), Username: username, DisplayName: displayName})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return out, nil
}

func (s *ConnectionsStore) listRequests(ctx context.Context, userID string, incoming bool) ([]domain.ConnectionRequest, error) {
	// The joined user is the other side: the requester for incoming rows,
	// the receiver for outgoing ones.
	q := `
		SELECT c.id, c.created_at, u.id, u.username, u.display_name
		FROM connections c
		JOIN users u ON u.id = c.requester_id
		WHERE c.status = 'pending' AND c.receiver_id = $1
		ORDER BY c.created_at DESC
	`
	if !incoming {
		q = `
			SELECT c.id, c.created_at, u.id, u.username, u.display_name
			FROM connections c
			JOIN users u ON u.id = c.receiver_id
			WHERE c.status = 'pending' AND c.requester_id = $1
			ORDER BY c.created_at DESC
		`
	}

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list connection requests: %w", err)
	}
	defer rows.Close()

	var out []domain.ConnectionRequest
	for rows.Next() {
		var reqIDUUID pgtype.UUID
		var createdAt time.Time
		var otherIDUUID pgtype.UUID
		var username, displayName string
		if err := rows.Scan(&reqIDUUID, &createdAt, &otherIDUUID, &username, &displayName); err != nil {
			return nil, fmt.Errorf("scan connection request: %w", err)
		}
		out = append(out, domain.ConnectionRequest{
			ID:        uuidOrEmpty(reqIDUUID),
			User:      domain.UserSummary{ID: uuidOrEmpty(otherIDUUID), Username: username, DisplayName: displayName},
			CreatedAt: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list connection requests: %w", err)
	}
	return out, nil
}
