package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/hydra-router/internal/observability"
	"github.com/upb/hydra-router/internal/routing"
	"go.uber.org/zap"
)

// Snapshot is a point-in-time view of the reachable models
type Snapshot struct {
	Models      []string  `json:"models"`
	Source      string    `json:"source"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Catalog holds the latest snapshot. Readers never block a refresh for
// longer than the pointer swap.
type Catalog struct {
	source  Source
	store   Store
	metrics *observability.Metrics
	logger  *zap.Logger

	mu       sync.RWMutex
	snapshot Snapshot
	set      routing.ModelSet
}

// NewCatalog creates an empty catalog. store and metrics may be nil.
func NewCatalog(source Source, store Store, metrics *observability.Metrics, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		source:  source,
		store:   store,
		metrics: metrics,
		logger:  logger,
		set:     routing.NewModelSet(),
	}
}

// Refresh fetches a new snapshot from the source. On failure the previous
// snapshot stays in place and the error is returned.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.source == nil {
		return errors.New("catalog has no source")
	}

	models, err := c.source.ListModels(ctx)
	c.metrics.ObserveCatalogRefresh(len(models), err)
	if err != nil {
		c.logger.Warn("catalog refresh failed",
			zap.String("source", c.source.Name()),
			zap.Error(err),
		)
		return fmt.Errorf("refresh catalog from %s: %w", c.source.Name(), err)
	}

	snap := c.swap(Snapshot{
		Models:      models,
		Source:      c.source.Name(),
		RefreshedAt: time.Now().UTC(),
	})

	if c.store != nil {
		if err := c.store.Save(ctx, snap); err != nil {
			c.logger.Warn("failed to publish catalog snapshot", zap.Error(err))
		}
	}

	c.logger.Debug("catalog refreshed",
		zap.String("source", snap.Source),
		zap.Int("models", len(snap.Models)),
	)
	return nil
}

// Load seeds the catalog from the shared store
func (c *Catalog) Load(ctx context.Context) error {
	if c.store == nil {
		return ErrNoStore
	}
	snap, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog snapshot: %w", err)
	}
	c.swap(snap)
	return nil
}

// Warm refreshes from the source and falls back to the shared store when the
// source is unreachable. Used at startup.
func (c *Catalog) Warm(ctx context.Context) error {
	err := c.Refresh(ctx)
	if err == nil {
		return nil
	}
	if c.store == nil {
		return err
	}
	if loadErr := c.Load(ctx); loadErr != nil {
		return errors.Join(err, loadErr)
	}
	c.logger.Info("catalog seeded from shared snapshot", zap.Error(err))
	return nil
}

func (c *Catalog) swap(snap Snapshot) Snapshot {
	set := routing.NewModelSet(snap.Models...)
	snap.Models = set.Sorted()

	c.mu.Lock()
	c.snapshot = snap
	c.set = set
	c.mu.Unlock()
	return snap
}

// Available returns a copy of the current model set
func (c *Catalog) Available() routing.ModelSet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(routing.ModelSet, len(c.set))
	for name := range c.set {
		out[name] = struct{}{}
	}
	return out
}

// Snapshot returns a copy of the current snapshot
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.snapshot
	snap.Models = append([]string(nil), c.snapshot.Models...)
	return snap
}

// Stale reports whether the snapshot is missing or older than maxAge
func (c *Catalog) Stale(maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snapshot.RefreshedAt.IsZero() {
		return true
	}
	return time.Since(c.snapshot.RefreshedAt) > maxAge
}

// SourceName returns the configured source name
func (c *Catalog) SourceName() string {
	if c.source == nil {
		return ""
	}
	return c.source.Name()
}
