package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/metrics"
)

// Default cache settings
const (
	DefaultCacheSize = 64
	DefaultCacheTTL  = 5 * time.Minute
)

// Cache is a read-through, per-tier cache in front of a Source.
//
// A miss reloads the whole source once (concurrent misses share the load)
// and caches every tier it returns. Unknown tiers are cached too, so a
// stream of requests for a retired tier does not hammer the source.
type Cache struct {
	source Source
	tiers  *expirable.LRU[string, domain.TierDefinition]
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache creates a cache. Non-positive size or ttl select the defaults.
func NewCache(source Source, size int, ttl time.Duration, logger *slog.Logger) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		source: source,
		tiers:  expirable.NewLRU[string, domain.TierDefinition](size, nil, ttl),
		logger: logger,
	}
}

// Tier returns the definition for id. Errors only come from the source.
func (c *Cache) Tier(ctx context.Context, id string) (domain.TierDefinition, error) {
	if def, ok := c.tiers.Get(id); ok {
		return def, nil
	}

	snapshot, err := c.reload(ctx)
	if err != nil {
		return domain.TierDefinition{}, err
	}
	def := snapshot.Lookup(id)
	if !def.Known {
		c.tiers.Add(id, def)
	}
	return def, nil
}

// Snapshot loads a fresh copy of the full catalog and refreshes the cache.
func (c *Cache) Snapshot(ctx context.Context) (*domain.Catalog, error) {
	return c.reload(ctx)
}

// Invalidate drops every cached tier.
func (c *Cache) Invalidate() {
	c.tiers.Purge()
}

// Len returns the number of cached entries, including unknown tiers.
func (c *Cache) Len() int {
	return c.tiers.Len()
}

func (c *Cache) reload(ctx context.Context) (*domain.Catalog, error) {
	v, err, shared := c.group.Do("tiers", func() (interface{}, error) {
		defs, err := c.source.LoadTiers(ctx)
		if err != nil {
			metrics.CatalogReloaded(err)
			return nil, fmt.Errorf("load tiers: %w", err)
		}
		snapshot, err := domain.NewCatalog(defs)
		metrics.CatalogReloaded(err)
		if err != nil {
			return nil, fmt.Errorf("invalid tier catalog: %w", err)
		}
		for _, def := range snapshot.Tiers() {
			c.tiers.Add(def.ID, def)
		}
		return snapshot, nil
	})
	if err != nil {
		c.logger.Error("tier catalog reload failed", "error", err)
		return nil, err
	}
	if !shared {
		c.logger.Debug("tier catalog reloaded")
	}
	return v.(*domain.Catalog), nil
}
