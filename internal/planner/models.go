package planner

import "github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"

type JourneyType string

const (
	TypeDirect       JourneyType = "direct"
	TypeConnected    JourneyType = "connected"
	TypeNoRouteFound JourneyType = "no_route_found"
)

// Endpoint names a rank directly or gives a coordinate to snap to the nearest
// active rank. Exactly one of RankID and Point is set.
type Endpoint struct {
	RankID string     `json:"rank_id,omitempty"`
	Point  *geo.Point `json:"point,omitempty"`
}

type Request struct {
	Origin      Endpoint `json:"origin"`
	Destination Endpoint `json:"destination"`
	// MaxHops defaults to the configured bound when nil.
	MaxHops *int `json:"max_hops,omitempty"`
}

type Segment struct {
	SequenceOrder      int     `json:"sequence_order"`
	RouteID            string  `json:"route_id"`
	FromRankID         string  `json:"from_rank_id"`
	ToRankID           string  `json:"to_rank_id"`
	Fare               float64 `json:"fare"`
	DurationMinutes    float64 `json:"duration_minutes"`
	DistanceKm         float64 `json:"distance_km"`
	WaitingTimeMinutes float64 `json:"waiting_time_minutes"`
}

type PlanResult struct {
	JourneyType          JourneyType `json:"journey_type"`
	OriginRankID         string      `json:"origin_rank_id"`
	DestinationRankID    string      `json:"destination_rank_id"`
	Segments             []Segment   `json:"segments"`
	TotalFare            float64     `json:"total_fare"`
	TotalDurationMinutes float64     `json:"total_duration_minutes"`
	TotalDistanceKm      float64     `json:"total_distance_km"`
	TotalWaitingMinutes  float64     `json:"total_waiting_minutes"`
	HopCount             int         `json:"hop_count"`
	MaxHops              int         `json:"max_hops"`
	OriginSnapKm         *float64    `json:"origin_snap_km,omitempty"`
	DestinationSnapKm    *float64    `json:"destination_snap_km,omitempty"`
	Reason               string      `json:"reason,omitempty"`
}

// RankPath returns the ordered rank ids visited by the plan.
func (p PlanResult) RankPath() []string {
	if len(p.Segments) == 0 {
		return nil
	}
	path := []string{p.Segments[0].FromRankID}
	for _, s := range p.Segments {
		path = append(path, s.ToRankID)
	}
	return path
}
