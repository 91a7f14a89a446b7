package planner

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/graph"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/rank"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/route"
)

func testRanks(ids ...string) []rank.TaxiRank {
	out := make([]rank.TaxiRank, 0, len(ids))
	for i, id := range ids {
		out = append(out, rank.TaxiRank{ID: id, Name: id, Lat: -26.2 + float64(i)*0.1, Lng: 28.0, Active: true})
	}
	return out
}

func r(id, from, to string, fare, minutes float64) route.TransitRoute {
	return route.TransitRoute{ID: id, OriginRankID: from, DestinationRankID: to, Fare: fare, DurationMinutes: minutes, DistanceKm: minutes / 2, RouteType: route.TypeTaxi, Active: true}
}

func TestSearchDirect(t *testing.T) {
	g := graph.Build(testRanks("A", "B", "C"), []route.TransitRoute{
		r("ab", "A", "B", 10, 20),
		r("bc", "B", "C", 1, 1),
		r("ca", "C", "A", 1, 1),
	})
	res := Search(g, "A", "B", 3, 0)
	if res.JourneyType != TypeDirect || res.HopCount != 1 || res.Segments[0].RouteID != "ab" {
		t.Fatalf("expected direct plan, got %+v", res)
	}
	if res.Segments[0].SequenceOrder != 1 || res.Segments[0].WaitingTimeMinutes != 0 {
		t.Fatalf("unexpected segment %+v", res.Segments[0])
	}
}

func TestSearchConnectedTwoHops(t *testing.T) {
	g := graph.Build(testRanks("A", "B", "C"), []route.TransitRoute{
		r("ab", "A", "B", 10, 20),
		r("bc", "B", "C", 15, 25),
	})
	res := Search(g, "A", "C", 2, 0)
	if res.JourneyType != TypeConnected || res.HopCount != 2 {
		t.Fatalf("expected connected plan, got %+v", res)
	}
	if res.TotalFare != 25 || res.TotalDurationMinutes != 45 {
		t.Fatalf("unexpected totals fare=%v duration=%v", res.TotalFare, res.TotalDurationMinutes)
	}
	if res.Segments[0].RouteID != "ab" || res.Segments[1].RouteID != "bc" {
		t.Fatalf("segments out of order: %+v", res.Segments)
	}
	if res.Segments[0].SequenceOrder != 1 || res.Segments[1].SequenceOrder != 2 {
		t.Fatalf("unexpected sequence order")
	}
	if !reflect.DeepEqual(res.RankPath(), []string{"A", "B", "C"}) {
		t.Fatalf("unexpected rank path %v", res.RankPath())
	}
}

func TestSearchIsDirected(t *testing.T) {
	g := graph.Build(testRanks("A", "B", "C"), []route.TransitRoute{
		r("ab", "A", "B", 10, 20),
		r("bc", "B", "C", 15, 25),
	})
	if res := Search(g, "C", "A", 3, 0); res.JourneyType != TypeNoRouteFound {
		t.Fatalf("reverse journey must not assume symmetry, got %+v", res)
	}
}

func TestSearchNoRoute(t *testing.T) {
	g := graph.Build(testRanks("A", "B", "C", "D"), []route.TransitRoute{
		r("ab", "A", "B", 10, 20),
		r("bc", "B", "C", 15, 25),
		r("cd", "C", "D", 15, 25),
		r("ac", "A", "C", 5, 5),
	})

	for _, maxHops := range []int{0, -1} {
		res := Search(g, "A", "C", maxHops, 0)
		if res.JourneyType != TypeNoRouteFound || res.TotalFare != 0 || len(res.Segments) != 0 || res.HopCount != 0 {
			t.Fatalf("maxHops=%d: expected no route, got %+v", maxHops, res)
		}
	}

	res := Search(g, "B", "D", 1, 0)
	if res.JourneyType != TypeNoRouteFound || res.Reason != "no route found within 1 hops" {
		t.Fatalf("expected hop-bounded failure, got %+v", res)
	}
	if res.Segments == nil {
		t.Fatalf("segments must be an empty list, not nil")
	}
	if res := Search(g, "B", "D", 2, 0); res.HopCount != 2 {
		t.Fatalf("expected path once the bound allows it, got %+v", res)
	}
}

func TestSearchPrefersFewerHopsThenFare(t *testing.T) {
	g := graph.Build(testRanks("A", "B", "C", "D", "E"), []route.TransitRoute{
		// three hops, cheap
		r("ab", "A", "B", 1, 1),
		r("bc", "B", "C", 1, 1),
		r("ce", "C", "E", 1, 1),
		// two hops, expensive
		r("ad", "A", "D", 50, 50),
		r("de", "D", "E", 50, 50),
	})
	res := Search(g, "A", "E", 3, 0)
	if res.HopCount != 2 || res.TotalFare != 100 {
		t.Fatalf("expected minimum hop count regardless of fare, got %+v", res)
	}
}

func TestSearchTieBreaks(t *testing.T) {
	cases := []struct {
		name   string
		routes []route.TransitRoute
		want   []string
	}{
		{
			name: "lowest fare",
			routes: []route.TransitRoute{
				r("ab", "A", "B", 10, 10), r("bd", "B", "D", 10, 10),
				r("ac", "A", "C", 5, 30), r("cd", "C", "D", 5, 30),
			},
			want: []string{"A", "C", "D"},
		},
		{
			name: "lowest duration",
			routes: []route.TransitRoute{
				r("ab", "A", "B", 10, 30), r("bd", "B", "D", 10, 30),
				r("ac", "A", "C", 10, 10), r("cd", "C", "D", 10, 10),
			},
			want: []string{"A", "C", "D"},
		},
		{
			name: "rank sequence",
			routes: []route.TransitRoute{
				r("ac", "A", "C", 10, 10), r("cd", "C", "D", 10, 10),
				r("ab", "A", "B", 10, 10), r("bd", "B", "D", 10, 10),
			},
			want: []string{"A", "B", "D"},
		},
	}
	for _, tc := range cases {
		g := graph.Build(testRanks("A", "B", "C", "D"), tc.routes)
		res := Search(g, "A", "D", 3, 0)
		if !reflect.DeepEqual(res.RankPath(), tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, res.RankPath())
		}
	}
}

func TestSearchUsesCheapestParallelEdge(t *testing.T) {
	g := graph.Build(testRanks("A", "B", "C"), []route.TransitRoute{
		r("ab-1", "A", "B", 12, 10),
		r("ab-2", "A", "B", 8, 30),
		r("bc", "B", "C", 5, 5),
	})
	res := Search(g, "A", "C", 3, 0)
	if res.Segments[0].RouteID != "ab-2" || res.TotalFare != 13 {
		t.Fatalf("expected cheapest parallel edge, got %+v", res)
	}
}

func TestSearchWaitingTime(t *testing.T) {
	ab := r("ab", "A", "B", 10, 20)
	ab.FrequencyMinutes = 30
	bc := r("bc", "B", "C", 15, 25)
	bc.FrequencyMinutes = 20
	g := graph.Build(testRanks("A", "B", "C"), []route.TransitRoute{ab, bc})

	res := Search(g, "A", "C", 3, 0)
	if res.Segments[0].WaitingTimeMinutes != 0 || res.Segments[1].WaitingTimeMinutes != 10 {
		t.Fatalf("unexpected waiting times %+v", res.Segments)
	}
	if res.TotalWaitingMinutes != 10 || res.TotalDurationMinutes != 45 {
		t.Fatalf("waiting time must be reported separately from duration: %+v", res)
	}
	if res.TotalDistanceKm != 22.5 {
		t.Fatalf("unexpected distance %v", res.TotalDistanceKm)
	}
}

func TestSearchIgnoresCycles(t *testing.T) {
	g := graph.Build(testRanks("A", "B", "C", "D"), []route.TransitRoute{
		r("ab", "A", "B", 1, 1),
		r("ba", "B", "A", 0, 0),
		r("bc", "B", "C", 1, 1),
		r("cb", "C", "B", 0, 0),
		r("cd", "C", "D", 1, 1),
	})
	res := Search(g, "A", "D", 6, 0)
	if !reflect.DeepEqual(res.RankPath(), []string{"A", "B", "C", "D"}) {
		t.Fatalf("expected simple path, got %v", res.RankPath())
	}
}

func TestSearchExplorationCap(t *testing.T) {
	var ids []string
	var routes []route.TransitRoute
	for i := 0; i < 30; i++ {
		ids = append(ids, fmt.Sprintf("R%02d", i))
	}
	for i := 0; i < 29; i++ {
		for j := 0; j < 29; j++ {
			if i != j {
				routes = append(routes, r(fmt.Sprintf("%d-%d", i, j), ids[i], ids[j], 1, 1))
			}
		}
	}
	g := graph.Build(testRanks(ids...), routes)

	res := Search(g, "R00", "R29", 3, 10)
	if res.JourneyType != TypeNoRouteFound || res.Reason != "search abandoned after exploring 10 paths" {
		t.Fatalf("expected exploration cap to stop the search, got %+v", res)
	}
}
