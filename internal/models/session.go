package models

import "time"

// Session describes one viewer's filter session
type Session struct {
	ID             string    `json:"id"`
	CatalogVersion int64     `json:"catalog_version"`
	CatalogSource  string    `json:"catalog_source"`
	CreatedAt      time.Time `json:"created_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Subscribers    int       `json:"subscribers"`
}

// IsExpired checks if the idle TTL has elapsed at now
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// TimeRemaining returns the duration until expiry (0 if expired)
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
