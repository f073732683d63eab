// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/trailmap/internal/geobus"
)

const (
	name = "gpsd"

	DefaultAddr = "localhost:2947"

	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
)

// Fix represents a single TPV report from gpsd.
type Fix struct {
	Lat  float64
	Lon  float64
	Alt  float64
	Acc  float64
	Mode gpsd.Mode
	At   time.Time
}

// Has2DFix reports whether the fix has at least a 2D fix.
func (f Fix) Has2DFix() bool {
	return f.Mode >= gpsd.Mode2D
}

// GeolocationGPSDProvider streams position fixes from a gpsd daemon. Unlike the other providers it
// does not poll: every TPV report gpsd sends is turned into a result as long as it carries a 2D fix
// and the position moved.
type GeolocationGPSDProvider struct {
	name    string
	addr    string
	period  time.Duration
	ttl      time.Duration
	failures int
	watchFn  func(ctx context.Context, emit func(Fix)) error
}

func NewGeolocationGPSDProvider(addr string) *GeolocationGPSDProvider {
	if addr == "" {
		addr = DefaultAddr
	}
	provider := &GeolocationGPSDProvider{
		name:   name,
		addr:   addr,
		period:   time.Second * 30,
		ttl:      time.Minute * 2,
		failures: geobus.MaxProviderFailures,
	}
	provider.watchFn = provider.watch
	return provider
}

func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

// LookupStream watches gpsd until the context is cancelled. Lost connections are re-established
// after the provider period. The stream is closed once too many connections in a row ended without
// a single report.
func (p *GeolocationGPSDProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)

	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		fixes := make(chan Fix, 1)
		failures := geobus.Failures{Limit: p.failures}

		for {
			reported := false
			watchDone := make(chan error, 1)
			watchCtx, watchCancel := context.WithCancel(ctx)
			go func() {
				watchDone <- p.watchFn(watchCtx, func(fix Fix) {
					select {
					case <-watchCtx.Done():
					case fixes <- fix:
					}
				})
			}()

		watch:
			for {
				select {
				case <-ctx.Done():
					watchCancel()
					<-watchDone
					return
				case <-watchDone:
					break watch
				case fix := <-fixes:
					reported = true
					if !fix.Has2DFix() {
						continue
					}
					coord := geobus.Coordinate{
						Lat: geobus.Truncate(fix.Lat, geobus.TruncPrecision),
						Lon: geobus.Truncate(fix.Lon, geobus.TruncPrecision),
						Acc: fix.Acc,
					}
					if !state.HasChanged(coord) {
						continue
					}
					state.Update(coord)

					select {
					case <-ctx.Done():
						watchCancel()
						<-watchDone
						return
					case out <- p.createResult(key, coord, fix.At):
					}
				}
			}
			watchCancel()
			if reported {
				failures.Reset()
			} else if failures.Fail() {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()

	return out
}

// createResult composes and returns a Result using provided geolocation data and metadata.
func (p *GeolocationGPSDProvider) createResult(key string, coord geobus.Coordinate, at time.Time) geobus.Result {
	if at.IsZero() {
		at = time.Now()
	}
	return geobus.Result{
		Key:            key,
		Lat:            coord.Lat,
		Lon:            coord.Lon,
		AccuracyMeters: coord.Acc,
		Source:         p.name,
		At:             at,
		TTL:            p.ttl,
	}
}

// watch connects to gpsd and forwards every TPV report until the connection ends or the context
// is cancelled. go-gpsd has no Close(), so a cancelled watch leaves the connection to be torn down
// by gpsd once the process exits.
func (p *GeolocationGPSDProvider) watch(ctx context.Context, emit func(Fix)) error {
	session, err := gpsd.Dial(p.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to gpsd at %q: %w", p.addr, err)
	}
	session.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok {
			return
		}
		emit(fixFromTPV(tpv))
	})

	done := session.Watch()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func fixFromTPV(tpv *gpsd.TPVReport) Fix {
	return Fix{
		Lat:  tpv.Lat,
		Lon:  tpv.Lon,
		Alt:  tpv.Alt,
		Acc:  horizontalAccuracyMeters(tpv),
		Mode: tpv.Mode,
		At:   tpv.Time,
	}
}

func horizontalAccuracyMeters(tpv *gpsd.TPVReport) float64 {
	switch {
	case tpv.Epx > 0 && tpv.Epy > 0:
		// sqrt(epx² + epy²)
		return math.Hypot(tpv.Epx, tpv.Epy)
	case tpv.Mode == gpsd.Mode3D:
		return fallbackAccuracy3DFix
	case tpv.Mode == gpsd.Mode2D:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}
