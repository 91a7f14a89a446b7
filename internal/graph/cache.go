package graph

import (
	"context"
	"sync"
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/metrics"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/rank"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/route"

	"github.com/bluele/gcache"
	log "github.com/sirupsen/logrus"
)

const snapshotKey = "rank-graph"

type RankLister interface {
	ListActiveRanks(ctx context.Context) ([]rank.TaxiRank, error)
}

type RouteLister interface {
	ListActiveRoutes(ctx context.Context) ([]route.TransitRoute, error)
}

// Cache keeps the most recently built graph. Snapshots are built in full and
// then swapped in, so readers never see a partially built graph. A build that
// raced with Invalidate is returned to its caller but not cached.
type Cache struct {
	ranks  RankLister
	routes RouteLister
	store  gcache.Cache

	mu  sync.Mutex
	gen uint64
}

func NewCache(ranks RankLister, routes RouteLister, ttl time.Duration) *Cache {
	builder := gcache.New(1).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &Cache{ranks: ranks, routes: routes, store: builder.Build()}
}

func (c *Cache) Snapshot(ctx context.Context) (*Graph, error) {
	if cached, err := c.store.Get(snapshotKey); err == nil {
		return cached.(*Graph), nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	ranks, err := c.ranks.ListActiveRanks(ctx)
	if err != nil {
		return nil, err
	}
	routes, err := c.routes.ListActiveRoutes(ctx)
	if err != nil {
		return nil, err
	}
	g := Build(ranks, routes)
	metrics.GraphBuildsTotal.Inc()
	log.WithFields(log.Fields{"ranks": g.RankCount(), "edges": g.EdgeCount()}).Debug("rank graph built")

	c.mu.Lock()
	if c.gen == gen {
		_ = c.store.Set(snapshotKey, g)
	}
	c.mu.Unlock()
	return g, nil
}

// Invalidate drops the cached graph; the next Snapshot rebuilds it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.store.Remove(snapshotKey)
	c.mu.Unlock()
}
