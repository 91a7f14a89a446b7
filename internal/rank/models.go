package rank

import (
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"
)

type TaxiRank struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	City      string    `json:"city"`
	Province  string    `json:"province"`
	Capacity  int       `json:"capacity"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r TaxiRank) LocationKey() string { return r.ID }
func (r TaxiRank) Location() geo.Point { return geo.Point{Lat: r.Lat, Lon: r.Lng} }
func (r TaxiRank) IsActive() bool      { return r.Active }

type CreateRankInput struct {
	Name     string  `json:"name" validate:"required"`
	Lat      float64 `json:"lat" validate:"latitude"`
	Lng      float64 `json:"lng" validate:"longitude"`
	City     string  `json:"city"`
	Province string  `json:"province"`
	Capacity int     `json:"capacity" validate:"gte=0"`
}

// RankPatch lists every field of a rank that may be changed after creation.
// Nil fields are left untouched.
type RankPatch struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Lat      *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng      *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	City     *string  `json:"city,omitempty"`
	Province *string  `json:"province,omitempty"`
	Capacity *int     `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	Active   *bool    `json:"active,omitempty"`
}

func (p RankPatch) Apply(r *TaxiRank) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Lat != nil {
		r.Lat = *p.Lat
	}
	if p.Lng != nil {
		r.Lng = *p.Lng
	}
	if p.City != nil {
		r.City = *p.City
	}
	if p.Province != nil {
		r.Province = *p.Province
	}
	if p.Capacity != nil {
		r.Capacity = *p.Capacity
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
}

type NearbyRank struct {
	TaxiRank
	DistanceKm float64 `json:"distance_km"`
}
