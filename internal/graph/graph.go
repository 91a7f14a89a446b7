// Package graph holds the directed, weighted network of taxi ranks that journey
// planning searches over. A Graph is immutable once built and safe to share
// between concurrent planning requests.
package graph

import (
	"sort"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/rank"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/route"
)

type Edge struct {
	RouteID          string          `json:"route_id"`
	From             string          `json:"from_rank_id"`
	To               string          `json:"to_rank_id"`
	Fare             float64         `json:"fare"`
	DurationMinutes  float64         `json:"duration_minutes"`
	DistanceKm       float64         `json:"distance_km"`
	FrequencyMinutes int             `json:"frequency_minutes"`
	RouteType        route.RouteType `json:"route_type"`
	IsDirect         bool            `json:"is_direct"`
}

// cheaper orders parallel edges: lowest fare, then shortest duration, then route id.
func cheaper(a, b Edge) bool {
	if a.Fare != b.Fare {
		return a.Fare < b.Fare
	}
	if a.DurationMinutes != b.DurationMinutes {
		return a.DurationMinutes < b.DurationMinutes
	}
	return a.RouteID < b.RouteID
}

type pair struct{ from, to string }

type Graph struct {
	ranks map[string]rank.TaxiRank
	ids   []string
	out   map[string][]Edge
	in    map[string][]Edge
	best  map[pair]Edge
	// next holds the best edge to each neighbour, ordered by neighbour id.
	next map[string][]Edge
}

// Build assembles a graph from active ranks and active routes. Routes whose
// endpoints are not both active ranks are left out.
func Build(ranks []rank.TaxiRank, routes []route.TransitRoute) *Graph {
	g := &Graph{
		ranks: make(map[string]rank.TaxiRank, len(ranks)),
		out:   make(map[string][]Edge),
		in:    make(map[string][]Edge),
		best:  make(map[pair]Edge),
		next:  make(map[string][]Edge),
	}
	for _, r := range ranks {
		if !r.Active {
			continue
		}
		g.ranks[r.ID] = r
		g.ids = append(g.ids, r.ID)
	}
	sort.Strings(g.ids)

	for _, rt := range routes {
		if !rt.Active || rt.OriginRankID == rt.DestinationRankID {
			continue
		}
		if _, ok := g.ranks[rt.OriginRankID]; !ok {
			continue
		}
		if _, ok := g.ranks[rt.DestinationRankID]; !ok {
			continue
		}
		e := Edge{
			RouteID:          rt.ID,
			From:             rt.OriginRankID,
			To:               rt.DestinationRankID,
			Fare:             rt.Fare,
			DurationMinutes:  rt.DurationMinutes,
			DistanceKm:       rt.DistanceKm,
			FrequencyMinutes: rt.FrequencyMinutes,
			RouteType:        rt.RouteType,
			IsDirect:         rt.IsDirect,
		}
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)

		key := pair{e.From, e.To}
		if cur, ok := g.best[key]; !ok || cheaper(e, cur) {
			g.best[key] = e
		}
	}

	for from, edges := range g.out {
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return cheaper(edges[i], edges[j])
		})
		var next []Edge
		for _, e := range edges {
			if len(next) == 0 || next[len(next)-1].To != e.To {
				next = append(next, g.best[pair{from, e.To}])
			}
		}
		g.next[from] = next
	}
	for _, edges := range g.in {
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].From != edges[j].From {
				return edges[i].From < edges[j].From
			}
			return cheaper(edges[i], edges[j])
		})
	}
	return g
}

func (g *Graph) Rank(id string) (rank.TaxiRank, bool) {
	r, ok := g.ranks[id]
	return r, ok
}

// Ranks returns the active ranks ordered by id.
func (g *Graph) Ranks() []rank.TaxiRank {
	out := make([]rank.TaxiRank, 0, len(g.ids))
	for _, id := range g.ids {
		out = append(out, g.ranks[id])
	}
	return out
}

// EdgesFrom returns every outgoing edge of rankID, parallel edges included.
func (g *Graph) EdgesFrom(rankID string) []Edge {
	return append([]Edge(nil), g.out[rankID]...)
}

func (g *Graph) EdgesTo(rankID string) []Edge {
	return append([]Edge(nil), g.in[rankID]...)
}

// Edge returns the preferred edge from origin to dest when several exist.
func (g *Graph) Edge(origin, dest string) (Edge, bool) {
	e, ok := g.best[pair{origin, dest}]
	return e, ok
}

// Neighbors returns one edge per reachable neighbour of rankID (the one Edge
// would return), ordered by neighbour id. The slice must not be modified.
func (g *Graph) Neighbors(rankID string) []Edge {
	return g.next[rankID]
}

func (g *Graph) RankCount() int { return len(g.ids) }

func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.out {
		n += len(edges)
	}
	return n
}
