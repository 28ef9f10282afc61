package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/certmap/internal/models"
)

// Expirer lists and removes expired sessions
type Expirer interface {
	GetExpired(ctx context.Context) ([]*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// Cleaner handles periodic cleanup of idle sessions
type Cleaner struct {
	sessions Expirer
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(sessions Expirer, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Cleaner{
		sessions: sessions,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup runs one cycle and returns how many sessions were removed
func (c *Cleaner) Cleanup(ctx context.Context) int {
	expired, err := c.sessions.GetExpired(ctx)
	if err != nil {
		slog.Error("failed to get expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	slog.Info("found expired sessions", "count", len(expired))

	removed := 0
	for _, s := range expired {
		if err := c.sessions.Delete(ctx, s.ID); err != nil {
			slog.Warn("failed to delete expired session", "id", s.ID, "error", err)
			continue
		}
		slog.Info("expired session deleted", "id", s.ID, "last_seen", s.LastSeenAt)
		removed++
	}
	return removed
}
