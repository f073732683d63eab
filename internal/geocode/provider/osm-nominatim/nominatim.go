// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package nominatim

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/geocode"
	"github.com/wneessen/trailmap/internal/http"
)

const (
	APISearchEndpoint  = "https://nominatim.openstreetmap.org/search"
	APIReverseEndpoint = "https://nominatim.openstreetmap.org/reverse"
	APITimeout         = time.Second * 10

	// RequestInterval is the minimum spacing between requests the Nominatim usage policy allows.
	RequestInterval = time.Second

	name = "osm-nominatim"
)

// Nominatim geocodes through the public OpenStreetMap Nominatim API. The client should be rate
// limited to RequestInterval.
type Nominatim struct {
	http *http.Client
	lang language.Tag
}

type ReverseResult struct {
	APILat      string  `json:"lat"`
	APILon      string  `json:"lon"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
	Error       string  `json:"error"`
}

type SearchResult struct {
	APILat      string `json:"lat"`
	APILon      string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type Address struct {
	HouseNumber  string `json:"house_number"`
	Road         string `json:"road"`
	Pedestrian   string `json:"pedestrian"`
	Path         string `json:"path"`
	Suburb       string `json:"suburb"`
	Municipality string `json:"municipality"`
	CityDistrict string `json:"city_district"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Hamlet       string `json:"hamlet"`
	State        string `json:"state"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
}

func New(client *http.Client, lang language.Tag) *Nominatim {
	return &Nominatim{
		lang: lang,
		http: client,
	}
}

func (n *Nominatim) Name() string {
	return name
}

// Reverse resolves the address at coords. Places without an address, like open water, are
// reported as not found.
func (n *Nominatim) Reverse(ctx context.Context, coords geobus.Coordinate) (geocode.Address, error) {
	var result ReverseResult
	query := n.query()
	query.Set("lat", strconv.FormatFloat(coords.Lat, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(coords.Lon, 'f', 6, 64))

	if _, err := n.http.GetWithTimeout(ctx, APIReverseEndpoint, &result, query, nil, APITimeout); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to fetch reverse address details from Nominatim API: %w", err)
	}
	if result.Error != "" {
		return geocode.Address{}, nil
	}

	lat, lon, err := parseCoordinates(result.APILat, result.APILon)
	if err != nil {
		return geocode.Address{}, err
	}
	addr := result.Address
	return geocode.Address{
		AddressFound: true,
		Latitude:     lat,
		Longitude:    lon,
		DisplayName:  result.DisplayName,
		Country:      addr.Country,
		State:        addr.State,
		Municipality: addr.Municipality,
		CityDistrict: addr.CityDistrict,
		Postcode:     addr.Postcode,
		City:         cmp.Or(addr.City, addr.Town, addr.Village, addr.Hamlet),
		Suburb:       addr.Suburb,
		Street:       cmp.Or(addr.Road, addr.Pedestrian, addr.Path),
		HouseNumber:  addr.HouseNumber,
	}, nil
}

// Search returns the best match for a free-text place query.
func (n *Nominatim) Search(ctx context.Context, place string) (geobus.Coordinate, error) {
	var result []SearchResult
	query := n.query()
	query.Set("limit", "1")
	query.Set("q", place)

	if _, err := n.http.GetWithTimeout(ctx, APISearchEndpoint, &result, query, nil, APITimeout); err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to fetch address details from Nominatim API: %w", err)
	}
	if len(result) < 1 {
		return geobus.Coordinate{}, nil
	}

	lat, lon, err := parseCoordinates(result[0].APILat, result[0].APILon)
	if err != nil {
		return geobus.Coordinate{}, err
	}
	return geobus.Coordinate{Lat: lat, Lon: lon, Found: true}, nil
}

func (n *Nominatim) query() url.Values {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("accept-language", n.lang.String())
	return query
}

// parseCoordinates converts the string encoded coordinates of a Nominatim response.
func parseCoordinates(lat, lon string) (float64, float64, error) {
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse latitude from Nominatim API response: %w", err)
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse longitude from Nominatim API response: %w", err)
	}
	return latitude, longitude, nil
}
