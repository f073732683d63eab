// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/wneessen/trailmap/internal/logger"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second

	// MaxProviderFailures is the number of consecutive failed lookups after which a provider
	// closes its stream.
	MaxProviderFailures = 5
	// DefaultMaxAttempts is the number of consecutive streams without a result after which the
	// orchestrator gives up on a provider.
	DefaultMaxAttempts = 3
)

const (
	AccuracyGPS     = 10
	AccuracyWifi    = 100
	AccuracyZip     = 3000
	AccuracyCity    = 15000
	AccuracyRegion  = 100000
	AccuracyCountry = 500000
	AccuracyUnknown = 1000000
	TruncPrecision  = 6
)

var (
	ErrNilLogger          = errors.New("logger is required")
	ErrProvidersExhausted = errors.New("all geolocation providers failed")
)

// Provider defines an interface for geolocation service providers.
// It supports retrieving streamed results for a given key.
type Provider interface {
	Name() string
	LookupStream(ctx context.Context, key string) <-chan Result
}

// GeoBus coordinates the publishing and subscribing of geolocation results between providers and consumers.
// For every key it keeps the currently authoritative result: a fix from a less accurate source never
// replaces a live fix from a more accurate one until the latter expires.
type GeoBus struct {
	mu          sync.RWMutex
	logger      *logger.Logger
	best        map[string]Result
	subscribers map[string]map[chan Result]struct{}
}

// Result represents a geolocation result with associated metadata.
type Result struct {
	Key            string
	Lat, Lon       float64
	Alt            float64
	AccuracyMeters float64
	Source         string
	At             time.Time
	TTL            time.Duration
}

// Coordinate returns the position and accuracy of the result.
func (r Result) Coordinate() Coordinate {
	return Coordinate{Lat: r.Lat, Lon: r.Lon, Acc: r.AccuracyMeters}
}

// Supersedes reports whether r may replace prev as the authoritative result. Newer fixes from the same
// source always do; other sources must be at least as accurate.
func (r Result) Supersedes(prev Result) bool {
	if prev.Key == "" || prev.IsExpired() {
		return true
	}
	if r.At.Before(prev.At) {
		return false
	}
	if r.Source == prev.Source {
		return true
	}
	return r.AccuracyMeters <= prev.AccuracyMeters
}

// IsExpired checks if the Result has exceeded its time-to-live (TTL) based on the current time and the timestamp.
func (r Result) IsExpired() bool {
	return r.TTL > 0 && time.Since(r.At) > r.TTL
}

// New initializes and returns a new instance of GeoBus to handle geolocation result coordination.
func New(log *logger.Logger) (*GeoBus, error) {
	if log == nil {
		return nil, ErrNilLogger
	}
	return &GeoBus{
		logger:      log,
		best:        make(map[string]Result),
		subscribers: make(map[string]map[chan Result]struct{}),
	}, nil
}

func (b *GeoBus) NewOrchestrator(provider []Provider) *Orchestrator {
	return &Orchestrator{
		Bus:         b,
		Providers:   provider,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Subscribe adds a subscriber for updates associated with the given key and buffer size, returning a result
// channel and an unsubscribe function. The channel is closed by the unsubscribe function.
func (b *GeoBus) Subscribe(key string, size int) (<-chan Result, func()) {
	if size < 1 {
		size = 1
	}
	resultChan := make(chan Result, size)
	b.mu.Lock()
	if _, ok := b.subscribers[key]; !ok {
		b.subscribers[key] = make(map[chan Result]struct{})
	}

	b.subscribers[key][resultChan] = struct{}{}
	if best, ok := b.best[key]; ok && !best.IsExpired() {
		resultChan <- best
	}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.subscribers[key]; ok {
				delete(subs, resultChan)
				if len(subs) == 0 {
					delete(b.subscribers, key)
				}
			}
			b.mu.Unlock()
			close(resultChan)
		})
	}

	return resultChan, unsub
}

// Publish stores the result as the authoritative one for its key and broadcasts it, unless a better
// result is still live.
func (b *GeoBus) Publish(r Result) {
	if r.AccuracyMeters <= 0 {
		return
	}
	if !r.Coordinate().Valid() {
		b.logger.Debug("ignoring geolocation result with invalid coordinates", "source", r.Source)
		return
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.best[r.Key]
	if !r.Supersedes(prev) {
		return
	}
	b.best[r.Key] = r
	b.broadcastResult(r)
}

func (b *GeoBus) broadcastResult(r Result) {
	subs, ok := b.subscribers[r.Key]
	if !ok {
		return
	}
	for ch := range subs {
		select {
		case ch <- r:
		default:
			b.logger.Warn("subscriber too slow, dropping geolocation result", "source", r.Source)
		}
	}
}

func (b *GeoBus) Best(key string) (Result, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.best[key]
	return r, ok && !r.IsExpired()
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}

func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
