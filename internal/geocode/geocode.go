// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"

	"github.com/wneessen/trailmap/internal/geobus"
)

// Address is a postal address resolved for a coordinate.
type Address struct {
	AddressFound bool
	CacheHit     bool
	Latitude     float64
	Longitude    float64
	Altitude     float64
	DisplayName  string
	Country      string
	State        string
	Municipality string
	CityDistrict string
	Postcode     string
	City         string
	Suburb       string
	Street       string
	HouseNumber  string
}

// Geocoder resolves coordinates to addresses and free-text place queries to coordinates. Search
// reports an unknown place with Found set to false rather than with an error.
type Geocoder interface {
	Name() string
	Reverse(ctx context.Context, coords geobus.Coordinate) (Address, error)
	Search(ctx context.Context, query string) (geobus.Coordinate, error)
}
