// Package cache decides when cached calendar data is fresh enough to serve
// and when a sync cycle must run first.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/logging"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
)

// DefaultStaleThreshold is how old a snapshot may be before a read triggers
// a fresh sync.
const DefaultStaleThreshold = 5 * time.Minute

// SnapshotStore reads cached snapshots.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, userID string) (*calendar.Snapshot, error)
}

// Syncer runs a full sync cycle for a user.
type Syncer interface {
	SyncUser(ctx context.Context, userID string) (*calendar.Snapshot, error)
}

// Gateway serves calendar snapshots, syncing on demand when the cache is
// missing or stale. Reads through the gateway never fail: when everything
// else goes wrong the caller gets the best data available, down to an empty
// snapshot.
type Gateway struct {
	store     SnapshotStore
	syncer    Syncer
	logger    *slog.Logger
	threshold time.Duration
	now       func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithStaleThreshold overrides the freshness threshold.
func WithStaleThreshold(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.threshold = d
		}
	}
}

// withClock overrides the clock. Test hook.
func withClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway creates a cache gateway.
func NewGateway(st SnapshotStore, sy Syncer, logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		store:     st,
		syncer:    sy,
		logger:    logger,
		threshold: DefaultStaleThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetFreshSnapshot returns the user's snapshot, running at most one sync
// when the cache is missing, holds no events, or is older than the
// threshold. An empty snapshot is never considered fresh: it may be the
// leftover of a cycle where every account failed, and the next read is the
// recovery point. A failed sync falls back to whatever was cached before,
// stale included; a user with no cache and a failed sync gets an empty
// snapshot.
func (g *Gateway) GetFreshSnapshot(ctx context.Context, userID string) *calendar.Snapshot {
	cached, err := g.store.GetSnapshot(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		g.logger.Error("failed to read cached snapshot", logging.Err(err),
			slog.String("user_id", userID))
	}

	if cached != nil && len(cached.Events) > 0 &&
		g.now().Sub(cached.LastSyncedAt) <= g.threshold {
		return cached
	}

	synced, err := g.syncer.SyncUser(ctx, userID)
	if err != nil {
		g.logger.Warn("on-demand sync failed, serving cached data", logging.Err(err),
			slog.String("user_id", userID))
		if cached != nil {
			return cached
		}
		return calendar.NewSnapshot()
	}
	return synced
}
