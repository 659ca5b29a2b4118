package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensemate/internal/auth"
	"expensemate/internal/domain"
)

type stubUsersStore struct {
	users      map[string]domain.UserWithPassword
	byID       map[string]domain.User
	created    *domain.User
	lastLogin  string
	createErr  error
	getByEmail map[string]domain.UserWithPassword
}

func (s *stubUsersStore) CreateUser(ctx context.Context, email, username, displayName, passwordHash string) (domain.User, error) {
	if s.createErr != nil {
		return domain.User{}, s.createErr
	}
	u := domain.User{ID: "u-new", Email: email, Username: username, DisplayName: displayName, Status: domain.UserStatusActive}
	s.created = &u
	return u, nil
}

func (s *stubUsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUsersStore) GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error) {
	u, ok := s.users[login]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	u, ok := s.getByEmail[email]
	if !ok {
		return domain.UserWithPassword{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	s.lastLogin = userID
	return nil
}

type stubSessionsStore struct {
	created   bool
	createErr error
	session   domain.Session
	getErr    error
	revoked   string
}

func (s *stubSessionsStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = true
	return "sess-1", nil
}

func (s *stubSessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if s.getErr != nil {
		return domain.Session{}, s.getErr
	}
	return s.session, nil
}

func (s *stubSessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	s.revoked = sessionID
	return nil
}

type stubExternalStore struct {
	byProvider map[string]string
	linked     []string
	createErr  error
}

func (s *stubExternalStore) CreateExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	if s.createErr != nil {
		return domain.ExternalAccount{}, s.createErr
	}
	s.linked = append(s.linked, provider+":"+providerID+"->"+userID)
	return domain.ExternalAccount{UserID: userID, Provider: provider, ProviderID: providerID}, nil
}

func (s *stubExternalStore) GetUserIDByProvider(ctx context.Context, provider, providerID string) (string, error) {
	id, ok := s.byProvider[provider+":"+providerID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func activeUser(id, username, password string) domain.UserWithPassword {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return domain.UserWithPassword{
		User:         domain.User{ID: id, Username: username, Status: domain.UserStatusActive},
		PasswordHash: hash,
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := &stubUsersStore{users: map[string]domain.UserWithPassword{
		"alice": activeUser("u1", "alice", "secret"),
	}}
	sessions := &stubSessionsStore{}
	svc := &AuthService{Users: users, Sessions: sessions, SessionTTL: time.Hour}

	_, _, err := svc.Login(context.Background(), "alice", "wrong", "", "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if sessions.created {
		t.Fatal("no session should be created on failed login")
	}
}

func TestLoginUnknownUserHidesExistence(t *testing.T) {
	svc := &AuthService{Users: &stubUsersStore{users: map[string]domain.UserWithPassword{}}, Sessions: &stubSessionsStore{}, SessionTTL: time.Hour}

	_, _, err := svc.Login(context.Background(), "nobody", "pw", "", "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestLoginDisabledUser(t *testing.T) {
	u := activeUser("u1", "alice", "secret")
	u.Status = domain.UserStatusDisabled
	users := &stubUsersStore{users: map[string]domain.UserWithPassword{"alice": u}}
	svc := &AuthService{Users: users, Sessions: &stubSessionsStore{}, SessionTTL: time.Hour}

	_, _, err := svc.Login(context.Background(), "alice", "secret", "", "")
	if !errors.Is(err, domain.ErrUserDisabled) {
		t.Fatalf("expected disabled, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	users := &stubUsersStore{users: map[string]domain.UserWithPassword{
		"alice": activeUser("u1", "alice", "secret"),
	}}
	sessions := &stubSessionsStore{}
	svc := &AuthService{Users: users, Sessions: sessions, SessionTTL: time.Hour}

	u, sessID, err := svc.Login(context.Background(), "alice", "secret", "1.2.3.4", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || sessID != "sess-1" {
		t.Fatalf("unexpected login result: %s %s", u.ID, sessID)
	}
	if users.lastLogin != "u1" {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLoginWithIDTokenRejectsUnknownProvider(t *testing.T) {
	svc := &AuthService{Users: &stubUsersStore{}, Sessions: &stubSessionsStore{}, External: &stubExternalStore{}}
	_, _, err := svc.LoginWithIDToken(context.Background(), "github", "tok", "", "")
	expectValidation(t, err)
}

func TestLoginWithIDTokenExistingLink(t *testing.T) {
	users := &stubUsersStore{byID: map[string]domain.User{
		"u1": {ID: "u1", Username: "alice", Status: domain.UserStatusActive},
	}}
	external := &stubExternalStore{byProvider: map[string]string{"google:sub-1": "u1"}}
	sessions := &stubSessionsStore{}
	svc := &AuthService{
		Users: users, Sessions: sessions, External: external, SessionTTL: time.Hour,
		GoogleClientID: "client-id",
		VerifyGoogle: func(ctx context.Context, tokenString, expectedAud string) (*auth.ExternalTokenClaims, error) {
			return &auth.ExternalTokenClaims{Subject: "sub-1", Email: "alice@example.com"}, nil
		},
	}

	u, sessID, err := svc.LoginWithIDToken(context.Background(), "google", "tok", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || sessID != "sess-1" {
		t.Fatalf("unexpected result: %s %s", u.ID, sessID)
	}
	if len(external.linked) != 0 {
		t.Fatal("existing link should not be recreated")
	}
}

func TestLoginWithIDTokenLinksByEmail(t *testing.T) {
	users := &stubUsersStore{
		byID: map[string]domain.User{
			"u1": {ID: "u1", Username: "alice", Status: domain.UserStatusActive},
		},
		getByEmail: map[string]domain.UserWithPassword{
			"alice@example.com": {User: domain.User{ID: "u1", Status: domain.UserStatusActive}},
		},
	}
	external := &stubExternalStore{byProvider: map[string]string{}}
	svc := &AuthService{
		Users: users, Sessions: &stubSessionsStore{}, External: external, SessionTTL: time.Hour,
		AppleServiceID: "service-id",
		VerifyApple: func(ctx context.Context, tokenString, expectedAud string) (*auth.ExternalTokenClaims, error) {
			return &auth.ExternalTokenClaims{Subject: "sub-9", Email: "alice@example.com"}, nil
		},
	}

	u, _, err := svc.LoginWithIDToken(context.Background(), "apple", "tok", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected user %s", u.ID)
	}
	if len(external.linked) != 1 {
		t.Fatalf("expected one link, got %d", len(external.linked))
	}
}

func TestLoginWithIDTokenUnknownEmail(t *testing.T) {
	svc := &AuthService{
		Users: &stubUsersStore{getByEmail: map[string]domain.UserWithPassword{}}, Sessions: &stubSessionsStore{},
		External:       &stubExternalStore{byProvider: map[string]string{}},
		GoogleClientID: "client-id",
		VerifyGoogle: func(ctx context.Context, tokenString, expectedAud string) (*auth.ExternalTokenClaims, error) {
			return &auth.ExternalTokenClaims{Subject: "sub-1", Email: "new@example.com"}, nil
		},
	}

	_, _, err := svc.LoginWithIDToken(context.Background(), "google", "tok", "", "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}
