package service

import (
	"context"
	"strings"

	"expensemate/internal/domain"
)

type UsersSearchStore interface {
	SearchUsers(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.UserSummary, error)
}

type ProfileStore interface {
	SetDisplayName(ctx context.Context, userID, displayName string) error
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

type UsersService struct {
	Search  UsersSearchStore
	Profile ProfileStore
}

func (s *UsersService) SearchUsers(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.UserSummary, error) {
	q = strings.TrimSpace(q)
	if len(q) < 3 {
		return nil, domain.NewValidationError(map[string]string{"q": "must be at least 3 characters"})
	}
	return s.Search.SearchUsers(ctx, q, limit, excludeUserID)
}

func (s *UsersService) UpdateDisplayName(ctx context.Context, userID, displayName string) (domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || len(displayName) > 80 {
		return domain.User{}, domain.NewValidationError(map[string]string{"display_name": "must be 1-80 characters"})
	}

	if err := s.Profile.SetDisplayName(ctx, userID, displayName); err != nil {
		return domain.User{}, err
	}
	return s.Profile.GetUserByID(ctx, userID)
}
