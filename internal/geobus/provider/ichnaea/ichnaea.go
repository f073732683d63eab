// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ichnaea

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/http"
)

const (
	// DefaultEndpoint is the BeaconDB geolocate API.
	DefaultEndpoint = "https://api.beacondb.net/v1/geolocate"

	lookupTimeout = time.Second * 5
	wifiScanTime  = time.Minute * 2
	name          = "ichnaea"
)

var ErrNilHTTPClient = errors.New("http client is required")

// scanner is the subset of the nl80211 client the provider needs to list nearby access points.
type scanner interface {
	Interfaces() ([]*wifi.Interface, error)
	AccessPoints(ifi *wifi.Interface) ([]*wifi.BSS, error)
}

// GeolocationICHNAEAProvider resolves the position through an ICHNAEA compatible network location
// service (BeaconDB by default), feeding it the Wi-Fi access points visible to the station
// interfaces of this host.
type GeolocationICHNAEAProvider struct {
	name     string
	endpoint string
	http     *http.Client
	wlan     scanner
	period   time.Duration
	ttl      time.Duration
	failures int
	locateFn func(ctx context.Context) (lat, lon, acc float64, err error)

	apLock  sync.RWMutex
	aps     []WirelessNetwork
	scanned bool
}

type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
	Frequency      int    `json:"frequency,omitempty"`
}

type apiRequest struct {
	ConsiderIP   bool              `json:"considerIp"`
	Accesspoints []WirelessNetwork `json:"wifiAccessPoints,omitempty"`
}

// NewGeolocationICHNAEAProvider returns a provider querying endpoint, or DefaultEndpoint if it
// is empty.
func NewGeolocationICHNAEAProvider(http *http.Client, endpoint string) (*GeolocationICHNAEAProvider, error) {
	if http == nil {
		return nil, ErrNilHTTPClient
	}
	wlan, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create wifi client: %w", err)
	}
	provider := newProvider(http, wlan)
	if endpoint != "" {
		provider.endpoint = endpoint
	}
	return provider, nil
}

func newProvider(http *http.Client, wlan scanner) *GeolocationICHNAEAProvider {
	provider := &GeolocationICHNAEAProvider{
		name:     name,
		endpoint: DefaultEndpoint,
		http:     http,
		wlan:     wlan,
		period:   time.Minute * 5,
		ttl:      time.Hour * 1,
		failures: geobus.MaxProviderFailures,
	}
	provider.locateFn = provider.locate
	return provider
}

func (p *GeolocationICHNAEAProvider) Name() string {
	return p.name
}

// LookupStream asks the location service for the current position every period, and right away
// when the set of visible access points changed, which usually means we moved. A result is
// emitted whenever the position changed. The stream is closed after too many failed lookups in
// a row.
func (p *GeolocationICHNAEAProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	moved := make(chan struct{}, 1)
	go p.monitorWifiAccessPoints(ctx, moved)
	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		failures := geobus.Failures{Limit: p.failures}

		for {
			lat, lon, acc, err := p.locateFn(ctx)
			coord := geobus.Coordinate{Lat: lat, Lon: lon, Acc: acc}
			if err != nil {
				if failures.Fail() {
					return
				}
			} else {
				failures.Reset()
			}
			if err == nil && state.HasChanged(coord) {
				state.Update(coord)
				select {
				case <-ctx.Done():
					return
				case out <- p.createResult(key, coord):
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			case <-moved:
			}
		}
	}()
	return out
}

// createResult composes and returns a Result using provided geolocation data and metadata.
func (p *GeolocationICHNAEAProvider) createResult(key string, coord geobus.Coordinate) geobus.Result {
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

// monitorWifiAccessPoints rescans the visible access points every wifiScanTime. When a scan differs
// from the previous one, moved is signalled without blocking.
func (p *GeolocationICHNAEAProvider) monitorWifiAccessPoints(ctx context.Context, moved chan<- struct{}) {
	firstRun := true
	for {
		if !firstRun {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wifiScanTime):
			}
		}
		firstRun = false

		list, err := p.wifiAccessPoints()
		if err != nil {
			continue
		}
		p.apLock.Lock()
		changed := p.scanned && !sameNetworks(p.aps, list)
		p.aps, p.scanned = list, true
		p.apLock.Unlock()

		if changed {
			select {
			case moved <- struct{}{}:
			default:
			}
		}
	}
}

func (p *GeolocationICHNAEAProvider) accessPoints() []WirelessNetwork {
	p.apLock.RLock()
	defer p.apLock.RUnlock()
	return p.aps
}

// wifiAccessPoints lists the access points visible to all station interfaces. Hidden networks and
// networks that opted out of mapping via the "_nomap" suffix are skipped.
func (p *GeolocationICHNAEAProvider) wifiAccessPoints() ([]WirelessNetwork, error) {
	var checkIfaces []*wifi.Interface
	var list []WirelessNetwork

	ifaces, err := p.wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		checkIfaces = append(checkIfaces, iface)
	}
	if len(checkIfaces) == 0 {
		return nil, nil
	}

	for _, iface := range checkIfaces {
		aps, err := p.wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		for _, ap := range aps {
			if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, "_nomap") {
				continue
			}
			list = append(list, WirelessNetwork{
				SignalStrength: ap.Signal / 100,
				MACAddress:     ap.BSSID.String(),
				LastSeen:       ap.LastSeen.Milliseconds(),
				Frequency:      ap.Frequency,
			})
		}
	}

	return list, nil
}

func (p *GeolocationICHNAEAProvider) locate(ctx context.Context) (lat, lon, acc float64, err error) {
	req := apiRequest{
		ConsiderIP:   true,
		Accesspoints: p.accessPoints(),
	}
	bodyBuffer := bytes.NewBuffer(nil)
	if err = json.NewEncoder(bodyBuffer).Encode(req); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to encode wifi list to JSON: %w", err)
	}

	result := new(APIResult)
	if _, err = p.http.PostWithTimeout(ctx, p.endpoint, result, bodyBuffer,
		map[string]string{"Content-Type": "application/json"}, lookupTimeout); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	return geobus.Truncate(result.Location.Latitude, geobus.TruncPrecision),
		geobus.Truncate(result.Location.Longitude, geobus.TruncPrecision),
		geobus.Truncate(result.Accuracy, geobus.TruncPrecision), nil
}

// sameNetworks reports whether both scans saw the same access points.
func sameNetworks(a, b []WirelessNetwork) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, network := range a {
		seen[network.MACAddress] = struct{}{}
	}
	for _, network := range b {
		if _, ok := seen[network.MACAddress]; !ok {
			return false
		}
	}
	return true
}
