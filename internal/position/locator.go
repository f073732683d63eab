// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package position

import (
	"context"
	"errors"

	"github.com/wneessen/trailmap/internal/geobus"
)

const (
	busKey        = "trailmap"
	busBufferSize = 8
)

var ErrNoProviders = errors.New("no location providers configured")

// BusLocator feeds a subscription from a GeoBus. Precise providers are always tracked, coarse
// network providers only when high accuracy is not requested.
type BusLocator struct {
	bus     *geobus.GeoBus
	precise []geobus.Provider
	coarse  []geobus.Provider
}

func NewBusLocator(bus *geobus.GeoBus, precise, coarse []geobus.Provider) *BusLocator {
	return &BusLocator{bus: bus, precise: precise, coarse: coarse}
}

// Locate subscribes to the bus and starts tracking the selected providers. The returned channel
// is closed once ctx is cancelled or every selected provider has been given up.
func (l *BusLocator) Locate(ctx context.Context, highAccuracy bool) (<-chan geobus.Result, error) {
	providers := append([]geobus.Provider{}, l.precise...)
	if !highAccuracy {
		providers = append(providers, l.coarse...)
	}
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	results, unsub := l.bus.Subscribe(busKey, busBufferSize)
	orchestrator := l.bus.NewOrchestrator(providers)
	go func() {
		// a closed channel with a live ctx is what the subscription reports as unavailable
		_ = orchestrator.Track(ctx, busKey)
		unsub()
	}()
	return results, nil
}
