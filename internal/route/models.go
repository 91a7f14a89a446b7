package route

import "time"

type RouteType string

const (
	TypeTaxi    RouteType = "taxi"
	TypeBus     RouteType = "bus"
	TypeMixed   RouteType = "mixed"
	TypeWalking RouteType = "walking"
)

// TransitRoute is a directed, priced connection between two ranks.
type TransitRoute struct {
	ID                string    `json:"id"`
	OriginRankID      string    `json:"origin_rank_id"`
	DestinationRankID string    `json:"destination_rank_id"`
	Fare              float64   `json:"fare"`
	DurationMinutes   float64   `json:"duration_minutes"`
	DistanceKm        float64   `json:"distance_km"`
	RouteType         RouteType `json:"route_type"`
	IsDirect          bool      `json:"is_direct"`
	FrequencyMinutes  int       `json:"frequency_minutes"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type CreateRouteInput struct {
	OriginRankID      string    `json:"origin_rank_id" validate:"required"`
	DestinationRankID string    `json:"destination_rank_id" validate:"required"`
	Fare              float64   `json:"fare" validate:"gte=0"`
	DurationMinutes   float64   `json:"duration_minutes" validate:"gte=0"`
	DistanceKm        float64   `json:"distance_km" validate:"gte=0"`
	RouteType         RouteType `json:"route_type" validate:"omitempty,oneof=taxi bus mixed walking"`
	IsDirect          *bool     `json:"is_direct"`
	FrequencyMinutes  int       `json:"frequency_minutes" validate:"gte=0"`
	// Bidirectional also creates the return edge with the same attributes.
	Bidirectional bool `json:"bidirectional"`
}

// RoutePatch holds the mutable attributes of a route. Endpoints are fixed once
// a route exists so journeys referencing it keep a continuous chain.
type RoutePatch struct {
	Fare             *float64   `json:"fare,omitempty" validate:"omitempty,gte=0"`
	DurationMinutes  *float64   `json:"duration_minutes,omitempty" validate:"omitempty,gte=0"`
	DistanceKm       *float64   `json:"distance_km,omitempty" validate:"omitempty,gte=0"`
	RouteType        *RouteType `json:"route_type,omitempty" validate:"omitempty,oneof=taxi bus mixed walking"`
	IsDirect         *bool      `json:"is_direct,omitempty"`
	FrequencyMinutes *int       `json:"frequency_minutes,omitempty" validate:"omitempty,gte=0"`
}

func (p RoutePatch) Apply(r *TransitRoute) {
	if p.Fare != nil {
		r.Fare = *p.Fare
	}
	if p.DurationMinutes != nil {
		r.DurationMinutes = *p.DurationMinutes
	}
	if p.DistanceKm != nil {
		r.DistanceKm = *p.DistanceKm
	}
	if p.RouteType != nil {
		r.RouteType = *p.RouteType
	}
	if p.IsDirect != nil {
		r.IsDirect = *p.IsDirect
	}
	if p.FrequencyMinutes != nil {
		r.FrequencyMinutes = *p.FrequencyMinutes
	}
}

type Withdrawal struct {
	Route TransitRoute `json:"route"`
	// CancelledJourneyIDs are planned journeys cancelled because they used the route.
	CancelledJourneyIDs []string `json:"cancelled_journey_ids"`
}
