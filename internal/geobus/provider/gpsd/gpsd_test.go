// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/trailmap/internal/geobus"
)

const (
	testLat = 40.7185
	testLon = -74.0025
)

func TestNewGeolocationGPSDProvider(t *testing.T) {
	t.Run("new GPSd provider succeeds", func(t *testing.T) {
		provider := NewGeolocationGPSDProvider("gps.example.com:2947")
		if provider == nil {
			t.Fatal("expected provider to be non-nil")
		}
		if provider.addr != "gps.example.com:2947" {
			t.Errorf("expected address to be %s, got %s", "gps.example.com:2947", provider.addr)
		}
	})
	t.Run("empty address falls back to default", func(t *testing.T) {
		provider := NewGeolocationGPSDProvider("")
		if provider.addr != DefaultAddr {
			t.Errorf("expected address to be %s, got %s", DefaultAddr, provider.addr)
		}
	})
}

func TestGeolocationGPSDProvider_Name(t *testing.T) {
	provider := NewGeolocationGPSDProvider("")
	if !strings.EqualFold(provider.Name(), name) {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
}

func TestGeolocationGPSDProvider_createResult(t *testing.T) {
	provider := NewGeolocationGPSDProvider("")
	at := time.Date(2025, 11, 24, 10, 44, 41, 0, time.UTC)
	result := provider.createResult("test", geobus.Coordinate{Lat: testLat, Lon: testLon, Acc: geobus.AccuracyGPS}, at)
	if result.Lat != testLat {
		t.Errorf("expected latitude to be %f, got %f", testLat, result.Lat)
	}
	if result.Lon != testLon {
		t.Errorf("expected longitude to be %f, got %f", testLon, result.Lon)
	}
	if result.Key != "test" {
		t.Errorf("expected key to be %s, got %s", "test", result.Key)
	}
	if result.AccuracyMeters != geobus.AccuracyGPS {
		t.Errorf("expected accuracy to be %d, got %f", geobus.AccuracyGPS, result.AccuracyMeters)
	}
	if result.Source != provider.Name() {
		t.Errorf("expected source to be %s, got %s", provider.Name(), result.Source)
	}
	if !result.At.Equal(at) {
		t.Errorf("expected timestamp to be %s, got %s", at, result.At)
	}
	if result.TTL != provider.ttl {
		t.Errorf("expected TTL to be %d, got %d", provider.ttl, result.TTL)
	}
	if provider.createResult("test", geobus.Coordinate{}, time.Time{}).At.IsZero() {
		t.Error("expected missing timestamp to be replaced")
	}
}

func TestFixFromTPV(t *testing.T) {
	tests := []struct {
		name string
		tpv  gpsd.TPVReport
		acc  float64
		has  bool
	}{
		{
			"Epx/Epy are combined",
			gpsd.TPVReport{Mode: gpsd.Mode3D, Lat: 51, Lon: 7, Epx: 8.1, Epy: 11.4},
			math.Hypot(8.1, 11.4), true,
		},
		{"fallback to 3d fix accuracy", gpsd.TPVReport{Mode: gpsd.Mode3D, Lat: 51, Lon: 7}, fallbackAccuracy3DFix, true},
		{"fallback to 2d fix accuracy", gpsd.TPVReport{Mode: gpsd.Mode2D, Lat: 51, Lon: 7}, fallbackAccuracy2DFix, true},
		{"no fix", gpsd.TPVReport{Mode: gpsd.NoFix, Lat: 51, Lon: 7}, fallbackAccuracyNoFix, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fix := fixFromTPV(&tc.tpv)
			if fix.Lat != 51 || fix.Lon != 7 {
				t.Errorf("expected position 51,7, got %f,%f", fix.Lat, fix.Lon)
			}
			if fix.Acc != tc.acc {
				t.Errorf("expected accuracy to be %f, got %f", tc.acc, fix.Acc)
			}
			if fix.Has2DFix() != tc.has {
				t.Errorf("expected 2D fix to be %t", tc.has)
			}
		})
	}
}

func TestGeolocationGPSDProvider_LookupStream(t *testing.T) {
	t.Run("connecting fails on first run but then succeeds", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			runCount := 0
			provider := NewGeolocationGPSDProvider("")
			provider.period = time.Millisecond * 10
			provider.watchFn = func(ctx context.Context, emit func(Fix)) error {
				runCount++
				if runCount == 1 {
					return errors.New("intentionally failing")
				}
				emit(Fix{Lat: 1, Lon: 2, Acc: 3, Mode: gpsd.Mode3D})
				<-ctx.Done()
				return ctx.Err()
			}

			out := provider.LookupStream(ctx, "test")
			var result geobus.Result
			select {
			case result = <-out:
				cancel()
			case <-ctx.Done():
				t.Fatalf("context done before result: %v", ctx.Err())
			}
			synctest.Wait()

			if result.Lat != 1.0 {
				t.Errorf("expected latitude to be %f, got %f", 1.0, result.Lat)
			}
			if result.Lon != 2.0 {
				t.Errorf("expected longitude to be %f, got %f", 2.0, result.Lon)
			}
			if result.AccuracyMeters != 3.0 {
				t.Errorf("expected accuracy to be %f, got %f", 3.0, result.AccuracyMeters)
			}
			if runCount != 2 {
				t.Errorf("expected two connection attempts, got %d", runCount)
			}
		})
	})
	t.Run("fixes without 2D fix and unchanged positions are skipped", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			provider := NewGeolocationGPSDProvider("")
			provider.watchFn = func(ctx context.Context, emit func(Fix)) error {
				emit(Fix{Lat: 9, Lon: 9, Mode: gpsd.NoFix})
				emit(Fix{Lat: 1, Lon: 2, Acc: 3, Mode: gpsd.Mode2D})
				emit(Fix{Lat: 1, Lon: 2, Acc: 3, Mode: gpsd.Mode3D})
				emit(Fix{Lat: 1.5, Lon: 2, Acc: 3, Mode: gpsd.Mode3D})
				<-ctx.Done()
				return ctx.Err()
			}

			out := provider.LookupStream(ctx, "test")
			var results []geobus.Result
			for len(results) < 2 {
				results = append(results, <-out)
			}
			cancel()
			synctest.Wait()

			if results[0].Lat != 1 || results[1].Lat != 1.5 {
				t.Errorf("unexpected results: %+v", results)
			}
			if _, ok := <-out; ok {
				t.Error("expected stream to be closed after cancel")
			}
		})
	})
	t.Run("stream is closed once gpsd stays unreachable", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			runCount := 0
			provider := NewGeolocationGPSDProvider("")
			provider.period = time.Millisecond * 10
			provider.watchFn = func(context.Context, func(Fix)) error {
				runCount++
				return errors.New("intentionally failing")
			}

			for range provider.LookupStream(ctx, "test") {
				t.Error("expected no result from an unreachable gpsd")
			}
			if runCount != geobus.MaxProviderFailures {
				t.Errorf("expected %d connection attempts, got %d", geobus.MaxProviderFailures, runCount)
			}
		})
	})
}
