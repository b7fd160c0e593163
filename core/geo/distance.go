// Package geo provides pure great-circle distance and travel-time
// estimation functions used by the matcher, travel cache and route planner.
package geo

import (
	"errors"
	"math"

	"github.com/serenity-care/dispatch/core/model"
)

// ErrNoCoordinates is returned when a computation involves a subject whose
// address has not been geocoded. Callers must exclude the subject rather
// than fall back to a default position.
var ErrNoCoordinates = errors.New("geo: missing coordinates")

// earthRadiusMiles is the mean Earth radius used by the haversine formula.
const earthRadiusMiles = 3959.0

// speed table in mph per travel mode
var modeSpeeds = map[model.Mode]float64{
	model.ModeDriving: 25,
	model.ModeTransit: 15,
	model.ModeWalking: 3,
}

// Distance computes the great-circle distance in miles between two valid
// coordinate pairs, rounded to two decimal places.
func Distance(a, b model.Coordinates) (float64, error) {
	if !a.Valid || !b.Valid {
		return 0, ErrNoCoordinates
	}
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(earthRadiusMiles*c*100) / 100, nil
}

// TravelMinutes estimates travel time for the given distance and mode using
// a fixed average-speed table, rounded up to the nearest whole minute.
// Unknown modes default to driving.
func TravelMinutes(miles float64, mode model.Mode) int {
	speed, ok := modeSpeeds[mode]
	if !ok {
		speed = modeSpeeds[model.ModeDriving]
	}
	if miles <= 0 {
		return 0
	}
	return int(math.Ceil(miles / speed * 60))
}
