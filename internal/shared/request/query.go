package request

import (
	"strconv"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

// NearbyQuery reads lat, lon and radius_m from the query string.
func NearbyQuery(c *fiber.Ctx, defaultRadiusM float64) (geo.Point, float64, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return geo.Point{}, 0, apperr.Validation(apperr.CodeInvalidCoordinate, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return geo.Point{}, 0, apperr.Validation(apperr.CodeInvalidCoordinate, "lon must be a number")
	}
	radius := defaultRadiusM
	if raw := c.Query("radius_m"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			return geo.Point{}, 0, apperr.Validation(apperr.CodeInvalidInput, "radius_m must be a non-negative number")
		}
	}
	point := geo.Point{Lat: lat, Lon: lon}
	if err := point.Validate(); err != nil {
		return geo.Point{}, 0, err
	}
	return point, radius, nil
}
