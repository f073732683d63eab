// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"math"
)

const (
	EarthRadius = 6371000.0 // meters
)

// Coordinate represents a geographic coordinate. Acc is the horizontal accuracy in meters, if known.
type Coordinate struct {
	Lat float64
	Lon float64
	Acc float64

	CacheHit bool
	Found    bool
}

// Point returns the coordinate reduced to its position.
func (c Coordinate) Point() Coordinate {
	return Coordinate{Lat: c.Lat, Lon: c.Lon}
}

// DistanceTo returns the great-circle distance in meters between two coordinates. We are using the
// Haversine formula to calculate the distance between two points on a sphere (in our case: Earth).
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	dLat := (c.Lat - other.Lat) * math.Pi / 180
	dLon := (c.Lon - other.Lon) * math.Pi / 180
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}
