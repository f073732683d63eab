// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/metrics"
)

// coordPrecision is the precision used to quantize coordinates (0.01 degrees ≈ 1.1 km)
const coordPrecision = 1e-2

type cacheKey struct {
	Provider string
	LatQ     int32
	LonQ     int32
}

type searchKey struct {
	Provider string
	Query    string
}

type cacheEntry struct {
	Address Address
	Expiry  time.Time
}

type searchEntry struct {
	Coords geobus.Coordinate
	Expiry time.Time
}

// CachedGeocoder wraps a Geocoder and caches its answers. Hits and misses expire after separate
// TTLs, so an unknown place is asked for again sooner.
type CachedGeocoder struct {
	coder   Geocoder
	ttlHit  time.Duration
	ttlMiss time.Duration

	mu       sync.RWMutex
	cache    map[cacheKey]cacheEntry
	searches map[searchKey]searchEntry
}

func NewCachedGeocoder(coder Geocoder, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:    coder,
		ttlHit:   ttlHit,
		ttlMiss:  ttlMiss,
		cache:    make(map[cacheKey]cacheEntry),
		searches: make(map[searchKey]searchEntry),
	}
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

func (c *CachedGeocoder) Reverse(ctx context.Context, coords geobus.Coordinate) (Address, error) {
	key := newKey(c.coder.Name(), coords.Lat, coords.Lon)

	c.mu.RLock()
	entry, ok := c.cache[key]
	if ok && time.Now().Before(entry.Expiry) {
		addr := entry.Address
		c.mu.RUnlock()
		addr.CacheHit = true
		c.count("reverse", "cache_hit")
		return addr, nil
	}
	c.mu.RUnlock()

	addr, err := c.coder.Reverse(ctx, coords)
	if err != nil {
		c.count("reverse", "error")
		return addr, err
	}
	c.count("reverse", "fetched")

	c.mu.Lock()
	defer c.mu.Unlock()

	ttl := c.ttlHit
	if !addr.AddressFound {
		ttl = c.ttlMiss
	}
	c.cache[key] = cacheEntry{
		Address: addr,
		Expiry:  time.Now().Add(ttl),
	}

	return addr, nil
}

// Search looks up a place. Queries differing only in case or surrounding whitespace share a
// cache entry.
func (c *CachedGeocoder) Search(ctx context.Context, query string) (geobus.Coordinate, error) {
	key := searchKey{Provider: c.coder.Name(), Query: strings.ToLower(strings.TrimSpace(query))}

	c.mu.RLock()
	entry, ok := c.searches[key]
	if ok && time.Now().Before(entry.Expiry) {
		coords := entry.Coords
		c.mu.RUnlock()
		coords.CacheHit = true
		c.count("search", "cache_hit")
		return coords, nil
	}
	c.mu.RUnlock()

	coords, err := c.coder.Search(ctx, query)
	if err != nil {
		c.count("search", "error")
		return coords, err
	}
	c.count("search", "fetched")

	c.mu.Lock()
	defer c.mu.Unlock()

	ttl := c.ttlHit
	if !coords.Found {
		ttl = c.ttlMiss
	}
	c.searches[key] = searchEntry{
		Coords: coords,
		Expiry: time.Now().Add(ttl),
	}

	return coords, nil
}

func (c *CachedGeocoder) count(kind, result string) {
	metrics.GeocodeRequests.WithLabelValues(c.coder.Name(), kind, result).Inc()
}

func quantizeCoord(val float64) int32 {
	return int32(math.Round(val / coordPrecision))
}

func newKey(provider string, lat, lon float64) cacheKey {
	return cacheKey{
		Provider: provider,
		LatQ:     quantizeCoord(lat),
		LonQ:     quantizeCoord(lon),
	}
}
