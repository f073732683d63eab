// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package permission decides whether the current process may access the user's location.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	DBusListNamesAddress = "org.freedesktop.DBus.ListNames"
	GeoclueAgentDBusName = "org.freedesktop.GeoClue2.DemoAgent"
)

// State is the outcome of a location access request.
type State int

const (
	Unknown State = iota
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Gate asks the platform for location access. RequestAccess may block while the platform prompts
// the user and must honor context cancellation. Every call asks again; results are not cached.
type Gate interface {
	RequestAccess(ctx context.Context) (State, error)
}

// Unconditional is the Gate for platforms without a permission model. It always grants access.
type Unconditional struct{}

func (Unconditional) RequestAccess(context.Context) (State, error) {
	return Granted, nil
}

// GeoClueAgent grants access only if a GeoClue authorization agent is registered on the session
// bus. Without an agent GeoClue refuses to hand out positions, so we treat its absence as a denial.
type GeoClueAgent struct {
	listNames func(ctx context.Context) ([]string, error)
}

// NewGeoClueAgent returns a GeoClueAgent gate querying the session bus.
func NewGeoClueAgent() *GeoClueAgent {
	return &GeoClueAgent{listNames: sessionBusNames}
}

// RequestAccess looks up the agent exactly once. A failing bus query results in Denied and the
// wrapped error.
func (g *GeoClueAgent) RequestAccess(ctx context.Context) (State, error) {
	names, err := g.listNames(ctx)
	if err != nil {
		return Denied, fmt.Errorf("failed to look up GeoClue agent: %w", err)
	}
	for _, v := range names {
		if strings.EqualFold(v, GeoclueAgentDBusName) {
			return Granted, nil
		}
	}
	return Denied, nil
}

func sessionBusNames(ctx context.Context) (list []string, err error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close session bus: %w", closeErr))
		}
	}()

	if err = conn.BusObject().CallWithContext(ctx, DBusListNamesAddress, 0).Store(&list); err != nil {
		return nil, fmt.Errorf("failed to call DBus ListNames: %w", err)
	}
	return list, nil
}
