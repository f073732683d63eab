// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wneessen/trailmap/internal/metrics"
)

// Orchestrator coordinates the tracking and publication of geolocation results from multiple
// providers through a GeoBus.
type Orchestrator struct {
	Bus       *GeoBus
	Providers []Provider

	// MaxAttempts is the number of consecutive lookups that fail or end without a result before a
	// provider is given up. Zero retries forever.
	MaxAttempts int
}

// Track initiates concurrent geolocation tracking for a given key across multiple providers in the
// Orchestrator. It blocks until the context is cancelled or every provider has been given up, in
// which case ErrProvidersExhausted is returned.
func (o *Orchestrator) Track(ctx context.Context, key string) error {
	var wg sync.WaitGroup
	for _, p := range o.Providers {
		wg.Go(func() {
			o.trackProvider(ctx, p, key)
		})
	}
	wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return ErrProvidersExhausted
}

// trackProvider continuously tracks a Provider for geolocation data, publishing results to
// the GeoBus and implementing backoff. It returns once ctx is cancelled or the provider failed
// MaxAttempts times in a row.
func (o *Orchestrator) trackProvider(ctx context.Context, p Provider, key string) {
	backoff := initialBackoff
	failures := Failures{Limit: o.MaxAttempts}
	retry := func() bool {
		if failures.Fail() {
			o.Bus.logger.Warn("giving up on geolocation provider", slog.String("provider", p.Name()))
			return false
		}
		metrics.ProviderRestarts.WithLabelValues(p.Name()).Inc()
		if !sleepOrDone(ctx, backoff) {
			return false
		}
		backoff = nextBackoff(backoff)
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		lookupChan := o.safeLookup(ctx, p, key)
		if lookupChan == nil {
			if !retry() {
				return
			}
			continue
		}

	stream:
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-lookupChan:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					o.Bus.logger.Debug("geolocation provider stream ended", slog.String("provider", p.Name()))
					if !retry() {
						return
					}
					break stream
				}
				o.Bus.Publish(r)
				metrics.ProviderFixes.WithLabelValues(p.Name()).Inc()
				backoff = initialBackoff
				failures.Reset()
			}
		}
	}
}

// safeLookup safely invokes the LookupStream method on a Provider and recovers from potential panics.
// Returns a read-only channel of Result or nil if the operation fails.
func (o *Orchestrator) safeLookup(ctx context.Context, provider Provider, key string) (ch <-chan Result) {
	defer func() {
		if r := recover(); r != nil {
			o.Bus.logger.Error("geolocation provider panicked", slog.String("provider", provider.Name()),
				slog.Any("panic", r))
			ch = nil
		}
	}()
	return provider.LookupStream(ctx, key)
}
