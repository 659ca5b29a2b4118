package service

import (
	"context"
	"testing"
	"time"

	"expensemate/internal/domain"
)

type stubSiteSettings struct {
	settings domain.SiteSettings
	gets     int
}

func (s *stubSiteSettings) GetSiteSettings(ctx context.Context) (domain.SiteSettings, error) {
	s.gets++
	return s.settings, nil
}

func (s *stubSiteSettings) SetMaintenanceMode(ctx context.Context, enabled bool) (domain.SiteSettings, error) {
	s.settings.MaintenanceMode = enabled
	return s.settings, nil
}

func TestSiteStatusCaches(t *testing.T) {
	store := &stubSiteSettings{settings: domain.SiteSettings{MaintenanceMode: true}}
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc := &SiteService{Store: store, CacheTTL: 10 * time.Second, Now: func() time.Time { return now }}

	for i := 0; i < 5; i++ {
		st, err := svc.Status(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !st.MaintenanceMode {
			t.Fatal("expected maintenance mode on")
		}
	}
	if store.gets != 1 {
		t.Fatalf("expected a single store read within the ttl, got %d", store.gets)
	}

	now = now.Add(11 * time.Second)
	if _, err := svc.Status(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.gets != 2 {
		t.Fatalf("expected a refresh after the ttl, got %d reads", store.gets)
	}
}

func TestSetMaintenanceModeRefreshesCache(t *testing.T) {
	store := &stubSiteSettings{}
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	svc := &SiteService{Store: store, CacheTTL: time.Minute, Now: func() time.Time { return now }}

	if _, err := svc.Status(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := svc.SetMaintenanceMode(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.MaintenanceMode {
		t.Fatal("expected maintenance mode on")
	}

	// The cached copy must reflect the write without another store read.
	st, err = svc.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.MaintenanceMode {
		t.Fatal("expected cached status to reflect the flip")
	}
	if store.gets != 1 {
		t.Fatalf("expected no extra store read, got %d", store.gets)
	}
}
