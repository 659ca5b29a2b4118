package service

import (
	"context"

	"expensemate/internal/domain"
)

type AdminUsersStore interface {
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error)
	SetUserStatus(ctx context.Context, userID string, status domain.UserStatus) error
}

type AdminService struct {
	Users AdminUsersStore
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.Users.ListUsers(ctx, limit, offset)
}

func (s *AdminService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	return s.Users.SearchUsers(ctx, query, limit, offset)
}

func (s *AdminService) SetUserStatus(ctx context.Context, userID string, disabled bool) error {
	status := domain.UserStatusActive
	if disabled {
		status = domain.UserStatusDisabled
	}
	return s.Users.SetUserStatus(ctx, userID, status)
}
