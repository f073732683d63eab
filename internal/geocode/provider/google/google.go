// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"googlemaps.github.io/maps"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/geocode"
	"github.com/wneessen/trailmap/internal/http"
)

const name = "google-maps"

var (
	ErrMissingAPIKey = errors.New("google maps geocoder requires an API key")
	ErrNilHTTPClient = errors.New("http client must not be nil")
)

// Google geocodes through the Google Maps Geocoding API.
type Google struct {
	client *maps.Client
	lang   language.Tag
}

// New returns a Google geocoder that sends its requests through the given HTTP client.
func New(client *http.Client, lang language.Tag, apiKey string) (*Google, error) {
	if client == nil {
		return nil, ErrNilHTTPClient
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	mapsClient, err := maps.NewClient(maps.WithAPIKey(apiKey), maps.WithHTTPClient(client.Client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return &Google{client: mapsClient, lang: lang}, nil
}

func (g *Google) Name() string {
	return name
}

func (g *Google) Reverse(ctx context.Context, coords geobus.Coordinate) (geocode.Address, error) {
	req := &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: coords.Lat, Lng: coords.Lon},
		Language: g.lang.String(),
	}
	results, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return geocode.Address{}, fmt.Errorf("failed to reverse geocode with Google Maps API: %w", err)
	}
	if len(results) == 0 {
		return geocode.Address{}, nil
	}

	result := results[0]
	address := geocode.Address{
		AddressFound: true,
		DisplayName:  result.FormattedAddress,
		Latitude:     result.Geometry.Location.Lat,
		Longitude:    result.Geometry.Location.Lng,
	}
	for _, component := range result.AddressComponents {
		for _, kind := range component.Types {
			switch kind {
			case "street_number":
				address.HouseNumber = component.LongName
			case "route":
				address.Street = component.LongName
			case "sublocality", "sublocality_level_1":
				address.Suburb = component.LongName
			case "locality", "postal_town":
				if address.City == "" {
					address.City = component.LongName
				}
			case "administrative_area_level_2":
				address.Municipality = component.LongName
			case "administrative_area_level_1":
				address.State = component.LongName
			case "postal_code":
				address.Postcode = component.LongName
			case "country":
				address.Country = component.LongName
			}
		}
	}

	return address, nil
}

func (g *Google) Search(ctx context.Context, query string) (geobus.Coordinate, error) {
	req := &maps.GeocodingRequest{
		Address:  query,
		Language: g.lang.String(),
	}
	results, err := g.client.Geocode(ctx, req)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to geocode with Google Maps API: %w", err)
	}
	if len(results) == 0 {
		return geobus.Coordinate{}, nil
	}

	location := results[0].Geometry.Location
	return geobus.Coordinate{Lat: location.Lat, Lon: location.Lng, Found: true}, nil
}
