package planner

import (
	"fmt"
	"math"
	"sort"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/graph"
)

const fareEpsilon = 1e-9

// label is the best known min-hop path from the origin to one rank.
type label struct {
	ranks    []string
	edges    []graph.Edge
	fare     float64
	duration float64
}

func (l *label) extend(e graph.Edge) *label {
	ranks := make([]string, len(l.ranks)+1)
	copy(ranks, l.ranks)
	ranks[len(l.ranks)] = e.To
	edges := make([]graph.Edge, len(l.edges)+1)
	copy(edges, l.edges)
	edges[len(l.edges)] = e
	return &label{ranks: ranks, edges: edges, fare: l.fare + e.Fare, duration: l.duration + e.DurationMinutes}
}

// better orders paths of equal hop count: lower fare, then lower duration,
// then the lexicographically smaller rank sequence.
func (l *label) better(o *label) bool {
	if math.Abs(l.fare-o.fare) > fareEpsilon {
		return l.fare < o.fare
	}
	if math.Abs(l.duration-o.duration) > fareEpsilon {
		return l.duration < o.duration
	}
	for i := range l.ranks {
		if l.ranks[i] != o.ranks[i] {
			return l.ranks[i] < o.ranks[i]
		}
	}
	return false
}

// Search finds the best journey from origin to dest using at most maxHops
// edges. A direct edge always wins; otherwise the graph is expanded one hop
// level at a time and the first level that reaches dest decides the hop count.
// Within a level each rank keeps only its best path, which is enough because
// any min-hop path is simple and the ordering is preserved under extension.
// maxExplored bounds the number of edge relaxations; zero means unbounded.
func Search(g *graph.Graph, origin, dest string, maxHops, maxExplored int) PlanResult {
	if maxHops <= 0 {
		return noRoute(origin, dest, maxHops, fmt.Sprintf("no route found within %d hops", maxHops))
	}
	if e, ok := g.Edge(origin, dest); ok {
		return buildResult(origin, dest, maxHops, []graph.Edge{e})
	}

	reached := map[string]*label{origin: {ranks: []string{origin}}}
	frontier := []string{origin}
	explored := 0

	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		level := make(map[string]*label)
		for _, node := range frontier {
			cur := reached[node]
			for _, e := range g.Neighbors(node) {
				if _, seen := reached[e.To]; seen {
					continue
				}
				explored++
				if maxExplored > 0 && explored > maxExplored {
					return noRoute(origin, dest, maxHops, fmt.Sprintf("search abandoned after exploring %d paths", maxExplored))
				}
				cand := cur.extend(e)
				if best, ok := level[e.To]; !ok || cand.better(best) {
					level[e.To] = cand
				}
			}
		}

		if l, ok := level[dest]; ok {
			return buildResult(origin, dest, maxHops, l.edges)
		}

		frontier = frontier[:0]
		for id, l := range level {
			reached[id] = l
			frontier = append(frontier, id)
		}
		sort.Strings(frontier)
	}
	return noRoute(origin, dest, maxHops, fmt.Sprintf("no route found within %d hops", maxHops))
}

func noRoute(origin, dest string, maxHops int, reason string) PlanResult {
	return PlanResult{
		JourneyType:       TypeNoRouteFound,
		OriginRankID:      origin,
		DestinationRankID: dest,
		Segments:          []Segment{},
		MaxHops:           maxHops,
		Reason:            reason,
	}
}

func buildResult(origin, dest string, maxHops int, edges []graph.Edge) PlanResult {
	res := PlanResult{
		JourneyType:       TypeConnected,
		OriginRankID:      origin,
		DestinationRankID: dest,
		Segments:          make([]Segment, 0, len(edges)),
		HopCount:          len(edges),
		MaxHops:           maxHops,
	}
	if len(edges) == 1 {
		res.JourneyType = TypeDirect
	}
	for i, e := range edges {
		seg := Segment{
			SequenceOrder:   i + 1,
			RouteID:         e.RouteID,
			FromRankID:      e.From,
			ToRankID:        e.To,
			Fare:            e.Fare,
			DurationMinutes: e.DurationMinutes,
			DistanceKm:      e.DistanceKm,
		}
		if i > 0 {
			seg.WaitingTimeMinutes = float64(e.FrequencyMinutes) / 2
		}
		res.TotalFare += seg.Fare
		res.TotalDurationMinutes += seg.DurationMinutes
		res.TotalDistanceKm += seg.DistanceKm
		res.TotalWaitingMinutes += seg.WaitingTimeMinutes
		res.Segments = append(res.Segments, seg)
	}
	return res
}
