package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/rank"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/route"
)

func ranks(ids ...string) []rank.TaxiRank {
	out := make([]rank.TaxiRank, 0, len(ids))
	for _, id := range ids {
		out = append(out, rank.TaxiRank{ID: id, Name: id, Active: true})
	}
	return out
}

func edge(id, from, to string, fare, minutes float64) route.TransitRoute {
	return route.TransitRoute{ID: id, OriginRankID: from, DestinationRankID: to, Fare: fare, DurationMinutes: minutes, RouteType: route.TypeTaxi, Active: true}
}

func TestBuildAndLookup(t *testing.T) {
	g := Build(ranks("A", "B", "C"), []route.TransitRoute{
		edge("r1", "A", "B", 10, 20),
		edge("r2", "B", "C", 15, 25),
	})

	if g.RankCount() != 3 || g.EdgeCount() != 2 {
		t.Fatalf("unexpected graph size %d/%d", g.RankCount(), g.EdgeCount())
	}
	if e, ok := g.Edge("A", "B"); !ok || e.RouteID != "r1" {
		t.Fatalf("expected A->B edge")
	}
	if _, ok := g.Edge("B", "A"); ok {
		t.Fatalf("graph must be directed")
	}
	if _, ok := g.Edge("A", "C"); ok {
		t.Fatalf("unexpected A->C edge")
	}
	if len(g.EdgesFrom("A")) != 1 || len(g.EdgesTo("C")) != 1 || len(g.EdgesFrom("C")) != 0 {
		t.Fatalf("unexpected adjacency")
	}
	if _, ok := g.Rank("B"); !ok {
		t.Fatalf("expected rank B")
	}
}

func TestEdgePrefersLowestFareThenDuration(t *testing.T) {
	g := Build(ranks("A", "B"), []route.TransitRoute{
		edge("expensive", "A", "B", 20, 10),
		edge("slow", "A", "B", 10, 40),
		edge("fast", "A", "B", 10, 30),
		edge("fast-b", "A", "B", 10, 30),
	})
	e, ok := g.Edge("A", "B")
	if !ok || e.RouteID != "fast" {
		t.Fatalf("expected cheapest then fastest edge, got %+v", e)
	}
	if len(g.EdgesFrom("A")) != 4 {
		t.Fatalf("parallel edges must be kept")
	}
	next := g.Neighbors("A")
	if len(next) != 1 || next[0].RouteID != "fast" {
		t.Fatalf("expected single best neighbour edge, got %+v", next)
	}
}

func TestBuildSkipsInactive(t *testing.T) {
	rs := ranks("A", "B", "C")
	rs[2].Active = false
	inactive := edge("r3", "A", "B", 1, 1)
	inactive.Active = false

	g := Build(rs, []route.TransitRoute{
		edge("r1", "A", "B", 10, 20),
		edge("r2", "B", "C", 15, 25),
		edge("r4", "A", "ghost", 1, 1),
		inactive,
	})
	if _, ok := g.Rank("C"); ok {
		t.Fatalf("inactive rank must be excluded")
	}
	if len(g.EdgesFrom("B")) != 0 {
		t.Fatalf("edges into inactive ranks must be excluded")
	}
	if e, _ := g.Edge("A", "B"); e.RouteID != "r1" {
		t.Fatalf("inactive route must be excluded")
	}
	if len(g.EdgesFrom("A")) != 1 {
		t.Fatalf("edges to unknown ranks must be excluded")
	}
	ids := g.Ranks()
	if len(ids) != 2 || ids[0].ID != "A" || ids[1].ID != "B" {
		t.Fatalf("expected ranks sorted by id, got %+v", ids)
	}
}

func TestEdgesFromReturnsCopy(t *testing.T) {
	g := Build(ranks("A", "B"), []route.TransitRoute{edge("r1", "A", "B", 10, 20)})
	edges := g.EdgesFrom("A")
	edges[0].Fare = 999
	if e, _ := g.Edge("A", "B"); e.Fare != 10 {
		t.Fatalf("graph must not be mutable through EdgesFrom")
	}
}

type fakeStore struct {
	mu       sync.Mutex
	ranks    []rank.TaxiRank
	routes   []route.TransitRoute
	loads    int
	rankErr  error
	routeErr error
}

func (f *fakeStore) ListActiveRanks(context.Context) ([]rank.TaxiRank, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return f.ranks, f.rankErr
}

func (f *fakeStore) ListActiveRoutes(context.Context) ([]route.TransitRoute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.routes, f.routeErr
}

func TestCacheSnapshotAndInvalidate(t *testing.T) {
	store := &fakeStore{ranks: ranks("A", "B"), routes: []route.TransitRoute{edge("r1", "A", "B", 10, 20)}}
	cache := NewCache(store, store, 0)

	g1, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	g2, _ := cache.Snapshot(context.Background())
	if g1 != g2 || store.loads != 1 {
		t.Fatalf("expected cached snapshot, loads=%d", store.loads)
	}

	store.routes = append(store.routes, edge("r2", "B", "A", 5, 5))
	cache.Invalidate()
	g3, _ := cache.Snapshot(context.Background())
	if g3 == g1 || store.loads != 2 {
		t.Fatalf("expected rebuild after invalidate")
	}
	if _, ok := g3.Edge("B", "A"); !ok {
		t.Fatalf("rebuilt graph must include new route")
	}
	if _, ok := g1.Edge("B", "A"); ok {
		t.Fatalf("old snapshot must be unchanged")
	}
}

func TestCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	cache := NewCache(&fakeStore{rankErr: boom}, &fakeStore{}, 0)
	if _, err := cache.Snapshot(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected rank error")
	}
	cache = NewCache(&fakeStore{}, &fakeStore{routeErr: boom}, 0)
	if _, err := cache.Snapshot(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected route error")
	}
}

func TestCacheConcurrentReaders(t *testing.T) {
	store := &fakeStore{ranks: ranks("A", "B"), routes: []route.TransitRoute{edge("r1", "A", "B", 10, 20)}}
	cache := NewCache(store, store, 0)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				cache.Invalidate()
			}
			g, err := cache.Snapshot(context.Background())
			if err != nil {
				t.Errorf("snapshot: %v", err)
				return
			}
			if _, ok := g.Edge("A", "B"); !ok {
				t.Errorf("snapshot missing edge")
			}
		}(i)
	}
	wg.Wait()
}
