// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package position turns the raw result stream of the location providers into a filtered stream
// of position updates.
package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/logger"
	"github.com/wneessen/trailmap/internal/metrics"
)

var (
	// ErrUnavailable wraps every failure of the location source reported to a subscriber.
	ErrUnavailable = errors.New("location unavailable")

	ErrNilCallback    = errors.New("update and error callbacks are required")
	ErrNilLocator     = errors.New("locator is required")
	ErrInvalidOptions = errors.New("invalid subscription options")
)

// DefaultOptions are the options used for live tracking: precise providers only, at least
// 10 meters and 10 minutes between two accepted fixes.
var DefaultOptions = Options{
	HighAccuracy: true,
	MinDistance:  10,
	MinInterval:  10 * time.Minute,
}

// Options configures a position subscription. A fix is accepted only if it is at least
// MinDistance meters away from AND at least MinInterval later than the previously accepted one.
type Options struct {
	HighAccuracy bool
	MinDistance  float64
	MinInterval  time.Duration
}

// Validate checks the options for negative thresholds.
func (o Options) Validate() error {
	if o.MinDistance < 0 {
		return fmt.Errorf("%w: negative minimum distance %f", ErrInvalidOptions, o.MinDistance)
	}
	if o.MinInterval < 0 {
		return fmt.Errorf("%w: negative minimum interval %s", ErrInvalidOptions, o.MinInterval)
	}
	return nil
}

// Locator opens a raw result stream. The stream ends when ctx is cancelled; a stream that ends
// before that is treated as a failure of the location source.
type Locator interface {
	Locate(ctx context.Context, highAccuracy bool) (<-chan geobus.Result, error)
}

// Subscription delivers filtered position updates from a Locator.
type Subscription struct {
	locator Locator
	logger  *logger.Logger
}

// Handle controls a started subscription.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// mu is held while a callback runs
	mu      sync.Mutex
	stopped bool
}

// filter applies the distance and interval thresholds of Options.
type filter struct {
	opts   Options
	last   geobus.Coordinate
	lastAt time.Time
	seen   bool
}

func New(locator Locator, log *logger.Logger) (*Subscription, error) {
	if locator == nil {
		return nil, ErrNilLocator
	}
	if log == nil {
		return nil, geobus.ErrNilLogger
	}
	return &Subscription{locator: locator, logger: log}, nil
}

// Start opens the location stream and begins delivering accepted fixes to onUpdate, one call per
// fix in stream order. If the stream fails, onError is called once with an error wrapping
// ErrUnavailable and the subscription stops itself. Callbacks run on the delivery goroutine and
// must not call Stop on the returned Handle.
func (s *Subscription) Start(ctx context.Context, opts Options, onUpdate func(geobus.Coordinate),
	onError func(error),
) (*Handle, error) {
	if onUpdate == nil || onError == nil {
		return nil, ErrNilCallback
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	results, err := s.locator.Locate(ctx, opts.HighAccuracy)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	handle := &Handle{cancel: cancel, done: make(chan struct{})}
	go handle.deliver(ctx, s.logger, results, filter{opts: opts}, onUpdate, onError)
	return handle, nil
}

// Stop ends the subscription. It is safe to call more than once. When Stop returns, no callback
// is running and none will be started.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.cancel()
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()
	})
}

// Done is closed once the delivery goroutine has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) deliver(ctx context.Context, log *logger.Logger, results <-chan geobus.Result, f filter,
	onUpdate func(geobus.Coordinate), onError func(error),
) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				h.fail(fmt.Errorf("%w: location stream ended", ErrUnavailable), onError)
				return
			}
			metrics.FixesReceived.Inc()

			at := r.At
			if at.IsZero() {
				at = time.Now()
			}
			coord := r.Coordinate()
			if !f.accept(coord, at) {
				log.Debug("position fix filtered", slog.String("source", r.Source),
					slog.Float64("lat", coord.Lat), slog.Float64("lon", coord.Lon))
				continue
			}
			metrics.FixesAccepted.Inc()

			h.mu.Lock()
			if !h.stopped {
				onUpdate(coord)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Handle) fail(err error, onError func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	h.cancel()
	metrics.SubscriptionErrors.Inc()
	onError(err)
}

// accept reports whether the fix passes both thresholds and records it as the last accepted one.
// The first fix is always accepted.
func (f *filter) accept(c geobus.Coordinate, at time.Time) bool {
	if f.seen {
		if f.last.DistanceTo(c) < f.opts.MinDistance {
			return false
		}
		if at.Sub(f.lastAt) < f.opts.MinInterval {
			return false
		}
	}
	f.last, f.lastAt, f.seen = c, at, true
	return true
}
