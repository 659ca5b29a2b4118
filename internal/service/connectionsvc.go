package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"expensemate/internal/domain"
)

type ConnectionsStore interface {
	CreateRequest(ctx context.Context, requesterID, receiverID string) (string, time.Time, error)
	Accept(ctx context.Context, requestID, receiverID string, when time.Time) error
	Reject(ctx context.Context, requestID, receiverID string, when time.Time) error
	Remove(ctx context.Context, userID, otherID string) error
	ListOverview(ctx context.Context, userID string) (domain.ConnectionsOverview, error)
	AreConnected(ctx context.Context, userID, otherID string) (bool, error)
}

type ConnectionsService struct {
	Users       UsersStore
	Connections ConnectionsStore
	Now         func() time.Time
}

func (s *ConnectionsService) ListOverview(ctx context.Context, userID string) (domain.ConnectionsOverview, error) {
	return s.Connections.ListOverview(ctx, userID)
}

func (s *ConnectionsService) CreateRequest(ctx context.Context, requesterID, receiverUsername string) (domain.ConnectionRequest, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	receiverUsername = strings.TrimSpace(receiverUsername)
	if receiverUsername == "" {
		return domain.ConnectionRequest{}, domain.NewValidationError(map[string]string{"username": "required"})
	}

	target, err := s.Users.GetUserByLogin(ctx, receiverUsername)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ConnectionRequest{}, domain.ErrNotFound
		}
		return domain.ConnectionRequest{}, err
	}
	if target.ID == requesterID {
		return domain.ConnectionRequest{}, domain.NewValidationError(map[string]string{"username": "cannot connect to yourself"})
	}
	if target.Status == domain.UserStatusDisabled {
		return domain.ConnectionRequest{}, domain.ErrForbidden
	}

	id, createdAt, err := s.Connections.CreateRequest(ctx, requesterID, target.ID)
	if err != nil {
		return domain.ConnectionRequest{}, err
	}

	return domain.ConnectionRequest{
		ID:        id,
		User:      domain.UserSummary{ID: target.ID, Username: target.Username, DisplayName: target.DisplayName},
		CreatedAt: createdAt,
	}, nil
}

func (s *ConnectionsService) Accept(ctx context.Context, receiverID, requestID string) error {
	if s.Now == nil {
		s.Now = time.Now
	}
	return s.Connections.Accept(ctx, requestID, receiverID, s.Now())
}

func (s *ConnectionsService) Reject(ctx context.Context, receiverID, requestID string) error {
	if s.Now == nil {
		s.Now = time.Now
	}
	return s.Connections.Reject(ctx, requestID, receiverID, s.Now())
}

func (s *ConnectionsService) Remove(ctx context.Context, userID, otherID string) error {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return domain.NewValidationError(map[string]string{"user_id": "required"})
	}
	return s.Connections.Remove(ctx, userID, otherID)
}
