// Package geo answers nearest-district queries over a fixed set of district centroids.
package geo

import (
	"math"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ValidateCoordinates rejects NaN, infinite and out-of-range coordinates.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return &model.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return &model.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"}
	}
	return nil
}

func roundTenth(km float64) float64 {
	return math.Round(km*10) / 10
}
