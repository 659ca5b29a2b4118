package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensemate/internal/auth"
	"expensemate/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, username, displayName, passwordHash string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

type ExternalAccountsStore interface {
	CreateExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error)
	GetUserIDByProvider(ctx context.Context, provider, providerID string) (string, error)
}

// TokenVerifier abstracts the google/apple verification call so tests can
// supply canned claims.
type TokenVerifier func(ctx context.Context, tokenString, expectedAud string) (*auth.ExternalTokenClaims, error)

type AuthService struct {
	Users      UsersStore
	Sessions   SessionsStore
	External   ExternalAccountsStore
	SessionTTL time.Duration
	Now        func() time.Time

	GoogleClientID string
	AppleServiceID string
	VerifyGoogle   TokenVerifier
	VerifyApple    TokenVerifier
}

func (s *AuthService) Register(ctx context.Context, email, username, displayName, password, ip, userAgent string) (domain.User, string, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}

	u, err := s.Users.CreateUser(ctx, email, username, displayName, passwordHash)
	if err != nil {
		return domain.User{}, "", err
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.Now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	return u, sessID, nil
}

func (s *AuthService) Login(ctx context.Context, login, password, ip, userAgent string) (domain.User, string, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	login = strings.TrimSpace(login)

	u, err := s.Users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrInvalidCredentials
		}
		return domain.User{}, "", err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.Now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.Users.SetLastLogin(ctx, u.ID, s.Now())

	return u.User, sessID, nil
}

// LoginWithIDToken signs a user in through a verified google or apple id
// token. A matching external account logs straight in; otherwise the
// account is linked by verified email. Sign-up still happens through
// Register, so an unknown email is invalid credentials here.
func (s *AuthService) LoginWithIDToken(ctx context.Context, provider, tokenString, ip, userAgent string) (domain.User, string, error) {
	if s.Now == nil {
		s.Now = time.Now
	}

	var (
		verify TokenVerifier
		aud    string
	)
	switch provider {
	case "google":
		verify, aud = s.VerifyGoogle, s.GoogleClientID
		if verify == nil {
			verify = auth.VerifyGoogleIDToken
		}
	case "apple":
		verify, aud = s.VerifyApple, s.AppleServiceID
		if verify == nil {
			verify = auth.VerifyAppleIDToken
		}
	default:
		return domain.User{}, "", domain.NewValidationError(map[string]string{"provider": "must be google or apple"})
	}

	claims, err := verify(ctx, tokenString, aud)
	if err != nil {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}

	userID, err := s.External.GetUserIDByProvider(ctx, provider, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		userID, err = s.linkByEmail(ctx, provider, claims)
		if err != nil {
			return domain.User{}, "", err
		}
	default:
		return domain.User{}, "", err
	}

	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, "", err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.Now().Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.Users.SetLastLogin(ctx, u.ID, s.Now())

	return u, sessID, nil
}

func (s *AuthService) linkByEmail(ctx context.Context, provider string, claims *auth.ExternalTokenClaims) (string, error) {
	if claims.Email == "" {
		return "", domain.ErrInvalidCredentials
	}

	u, err := s.Users.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if _, err := s.External.CreateExternalAccount(ctx, u.ID, provider, claims.Subject, claims.Email); err != nil {
		// A concurrent login may have linked it first.
		if !errors.Is(err, domain.ErrExternalAccountExists) {
			return "", fmt.Errorf("link external account: %w", err)
		}
	}
	return u.ID, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.Now == nil {
		s.Now = time.Now
	}

	return s.Sessions.RevokeSession(ctx, sessionID, s.Now())
}

func (s *AuthService) GetUserForSession(ctx context.Context, sessionID string) (domain.User, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, domain.ErrForbidden
	}

	return u, nil
}
