package sign

import (
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"
)

// HikingSign is a community report of the fare posted at a location.
type HikingSign struct {
	ID                string     `json:"id"`
	UserID            *string    `json:"user_id,omitempty"`
	Lat               float64    `json:"lat"`
	Lng               float64    `json:"lng"`
	Description       string     `json:"description"`
	FromLocation      string     `json:"from_location"`
	ToLocation        string     `json:"to_location"`
	FareAmount        float64    `json:"fare_amount"`
	PhotoURL          string     `json:"photo_url,omitempty"`
	VerificationCount int        `json:"verification_count"`
	IsVerified        bool       `json:"is_verified"`
	VerificationDate  *time.Time `json:"verification_date,omitempty"`
	LastUpdatedBy     *string    `json:"last_updated_by,omitempty"`
	MatchedRankID     *string    `json:"matched_rank_id,omitempty"`
	MatchedRouteID    *string    `json:"matched_route_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (s HikingSign) LocationKey() string { return s.ID }
func (s HikingSign) Location() geo.Point { return geo.Point{Lat: s.Lat, Lon: s.Lng} }
func (s HikingSign) IsActive() bool      { return true }

type SubmitInput struct {
	UserID       string  `json:"user_id"`
	Lat          float64 `json:"lat" validate:"latitude"`
	Lng          float64 `json:"lng" validate:"longitude"`
	Description  string  `json:"description"`
	FromLocation string  `json:"from_location"`
	ToLocation   string  `json:"to_location"`
	FareAmount   float64 `json:"fare_amount" validate:"gte=0"`
	PhotoURL     string  `json:"photo_url" validate:"omitempty,url"`
}

type NearbySign struct {
	HikingSign
	DistanceKm float64 `json:"distance_km"`
}
