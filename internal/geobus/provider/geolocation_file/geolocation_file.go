// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/trailmap/internal/geobus"
)

const (
	name = "geolocation_file"

	// DefaultAccuracy applies to lines without an accuracy column. The file is treated as the most
	// accurate source available.
	DefaultAccuracy = 5

	pollPeriod = time.Second * 10
	fixTTL     = time.Hour
)

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// GeolocationFileProvider follows a position file. Every line holds a fix as "lat,lon" or
// "lat,lon,accuracy" with the accuracy in meters. The last valid line is the current position, so
// the file can be maintained by hand or be appended to by a track logger. The file is only read
// again after its size or modification time changed.
type GeolocationFileProvider struct {
	name     string
	path     string
	period   time.Duration
	ttl      time.Duration
	failures int
	statFn   func() (fileStamp, error)
	locateFn func() (geobus.Coordinate, error)
}

// fileStamp identifies a version of the position file.
type fileStamp struct {
	modTime time.Time
	size    int64
}

func NewGeolocationFileProvider(path string) *GeolocationFileProvider {
	provider := &GeolocationFileProvider{
		name:   name,
		path:   path,
		period:   pollPeriod,
		ttl:      fixTTL,
		failures: geobus.MaxProviderFailures,
	}
	provider.statFn = provider.stat
	provider.locateFn = provider.readFile
	return provider
}

func (p *GeolocationFileProvider) Name() string {
	return p.name
}

// LookupStream emits the newest position of the file whenever it moved. The stream is closed once
// ctx is cancelled or the file could not be read too many times in a row.
func (p *GeolocationFileProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		var seen fileStamp
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

			stamp, err := p.statFn()
			if err != nil {
				if failures.Fail() {
					return
				}
				continue
			}
			if stamp == seen {
				failures.Reset()
				continue
			}
			coord, err := p.locateFn()
			if err != nil {
				if failures.Fail() {
					return
				}
				continue
			}
			failures.Reset()
			seen = stamp

			if !state.HasChanged(coord) {
				continue
			}
			state.Update(coord)
			select {
			case <-ctx.Done():
				return
			case out <- p.createResult(key, coord):
			}
		}
	}()
	return out
}

func (p *GeolocationFileProvider) createResult(key string, coord geobus.Coordinate) geobus.Result {
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

func (p *GeolocationFileProvider) stat() (fileStamp, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return fileStamp{}, fmt.Errorf("failed to stat geolocation file %q: %w", p.path, err)
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, nil
}

// readFile returns the last valid fix of the file. Comment lines starting with "#" and lines that
// do not parse to a valid coordinate are skipped.
func (p *GeolocationFileProvider) readFile() (geobus.Coordinate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}

	var last geobus.Coordinate
	found := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coord, ok := parseLine(line); ok {
			last, found = coord, true
		}
	}
	if !found {
		return geobus.Coordinate{}, ErrNoCoordinates
	}
	return last, nil
}

func parseLine(line string) (geobus.Coordinate, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 2 && len(fields) != 3 {
		return geobus.Coordinate{}, false
	}
	values := make([]float64, len(fields))
	for i, field := range fields {
		val, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return geobus.Coordinate{}, false
		}
		values[i] = val
	}

	coord := geobus.Coordinate{Lat: values[0], Lon: values[1], Acc: DefaultAccuracy}
	if len(values) == 3 {
		if values[2] <= 0 {
			return geobus.Coordinate{}, false
		}
		coord.Acc = values[2]
	}
	return coord, coord.Valid()
}
