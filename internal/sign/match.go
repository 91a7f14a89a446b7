package sign

import (
	"strings"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/graph"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"
)

// Match attaches a sign to the nearest active rank within radiusKm and, when
// the sign's free-text endpoints name ranks on one of that rank's edges, to
// that route. Either result may be empty.
func Match(g *graph.Graph, s HikingSign, radiusKm float64) (rankID, routeID string) {
	nearest, ok, err := geo.Nearest(s.Location(), radiusKm*1000, g.Ranks())
	if err != nil || !ok {
		return "", ""
	}
	rankID = nearest.Item.ID

	candidates := append(g.EdgesFrom(rankID), g.EdgesTo(rankID)...)
	best, bestScore := graph.Edge{}, 0
	for _, e := range candidates {
		score := 0
		if from, ok := g.Rank(e.From); ok && namesMatch(from.Name, s.FromLocation) {
			score++
		}
		if to, ok := g.Rank(e.To); ok && namesMatch(to.Name, s.ToLocation) {
			score++
		}
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && e.RouteID < best.RouteID) {
			best, bestScore = e, score
		}
	}
	return rankID, best.RouteID
}

// namesMatch is a case-insensitive substring test in either direction.
func namesMatch(rankName, text string) bool {
	a := strings.ToLower(strings.TrimSpace(rankName))
	b := strings.ToLower(strings.TrimSpace(text))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
