// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/http"
)

const (
	APIEndpoint   = "https://reallyfreegeoip.org/json/"
	LookupTimeout = time.Second * 5
	name          = "geoip"
)

var ErrNilHTTPClient = errors.New("http client is required")

// GeolocationGeoIPProvider locates the host by its public IP address. The result is coarse, at best
// the postal code area of the network's point of presence.
type GeolocationGeoIPProvider struct {
	name     string
	http     *http.Client
	period   time.Duration
	ttl      time.Duration
	failures int
	locateFn func(ctx context.Context) (geobus.Coordinate, error)
}

type APIResult struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country_name"`
	RegionCode  string  `json:"region_code,omitempty"`
	Region      string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	TimeZone    string  `json:"time_zone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func NewGeolocationGeoIPProvider(http *http.Client) (*GeolocationGeoIPProvider, error) {
	if http == nil {
		return nil, ErrNilHTTPClient
	}
	provider := &GeolocationGeoIPProvider{
		name:   name,
		http:   http,
		period:   30 * time.Minute,
		ttl:      60 * time.Minute,
		failures: geobus.MaxProviderFailures,
	}
	provider.locateFn = provider.locate
	return provider, nil
}

func (p *GeolocationGeoIPProvider) Name() string {
	return p.name
}

// LookupStream polls the GeoIP API and emits a result whenever the reported position changes. The
// stream is closed after too many failed lookups in a row.
func (p *GeolocationGeoIPProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		failures := geobus.Failures{Limit: p.failures}
		firstRun := true

		for {
			if !firstRun {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
				}
			}
			firstRun = false

			coord, err := p.locateFn(ctx)
			if err != nil || !coord.Valid() {
				if failures.Fail() {
					return
				}
				continue
			}
			failures.Reset()

			if state.HasChanged(coord) {
				state.Update(coord)
				select {
				case <-ctx.Done():
					return
				case out <- p.createResult(key, coord):
				}
			}
		}
	}()
	return out
}

func (p *GeolocationGeoIPProvider) createResult(key string, coord geobus.Coordinate) geobus.Result {
	return geobus.Result{
		Key:            key,
		Lat:            coord.Lat,
		Lon:            coord.Lon,
		AccuracyMeters: coord.Acc,
		Source:         p.name,
		At:             time.Now(),
		TTL:            p.ttl,
	}
}

func (p *GeolocationGeoIPProvider) locate(ctx context.Context) (geobus.Coordinate, error) {
	result := new(APIResult)
	if _, err := p.http.GetWithTimeout(ctx, APIEndpoint, result, nil, nil, LookupTimeout); err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	return geobus.Coordinate{
		Lat: geobus.Truncate(result.Latitude, geobus.TruncPrecision),
		Lon: geobus.Truncate(result.Longitude, geobus.TruncPrecision),
		Acc: accuracy(result),
	}, nil
}

// accuracy estimates the accuracy from the most specific area the API could name.
func accuracy(result *APIResult) float64 {
	switch {
	case result.ZipCode != "":
		return geobus.AccuracyZip
	case result.City != "":
		return geobus.AccuracyCity
	case result.RegionCode != "":
		return geobus.AccuracyRegion
	case result.CountryCode != "":
		return geobus.AccuracyCountry
	default:
		return geobus.AccuracyUnknown
	}
}
