package service

import (
	"context"
	"sync"
	"time"

	"expensemate/internal/domain"
)

type SiteSettingsStore interface {
	GetSiteSettings(ctx context.Context) (domain.SiteSettings, error)
	SetMaintenanceMode(ctx context.Context, enabled bool) (domain.SiteSettings, error)
}

// SiteService fronts the maintenance switch with a short-lived cache so the
// gate middleware does not hit the database on every request.
type SiteService struct {
	Store    SiteSettingsStore
	CacheTTL time.Duration
	Now      func() time.Time

	mu        sync.Mutex
	cached    domain.SiteSettings
	fetchedAt time.Time
}

func (s *SiteService) ttl() time.Duration {
	if s.CacheTTL > 0 {
		return s.CacheTTL
	}
	return 5 * time.Second
}

func (s *SiteService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SiteService) Status(ctx context.Context) (domain.SiteSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.fetchedAt.IsZero() && now.Sub(s.fetchedAt) < s.ttl() {
		return s.cached, nil
	}

	settings, err := s.Store.GetSiteSettings(ctx)
	if err != nil {
		// Serve the stale value rather than failing every request while the
		// database hiccups.
		if !s.fetchedAt.IsZero() {
			return s.cached, nil
		}
		return domain.SiteSettings{}, err
	}

	s.cached = settings
	s.fetchedAt = now
	return settings, nil
}

// SetMaintenanceMode flips the switch and refreshes the cache so the change
// is visible immediately on this instance.
func (s *SiteService) SetMaintenanceMode(ctx context.Context, enabled bool) (domain.SiteSettings, error) {
	settings, err := s.Store.SetMaintenanceMode(ctx, enabled)
	if err != nil {
		return domain.SiteSettings{}, err
	}

	s.mu.Lock()
	s.cached = settings
	s.fetchedAt = s.now()
	s.mu.Unlock()

	return settings, nil
}
