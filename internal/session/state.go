// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package session

import (
	"time"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/permission"
	"github.com/wneessen/trailmap/internal/power"
)

// Phase is the lifecycle phase of a tracking session.
type Phase int

const (
	Idle Phase = iota
	AwaitingPermission
	Tracking
	Stopped
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingPermission:
		return "awaiting_permission"
	case Tracking:
		return "tracking"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Viewport is the visible map region, given by its center and its extent in degrees.
type Viewport struct {
	Center        geobus.Coordinate `json:"center"`
	LatitudeSpan  float64           `json:"latitude_span"`
	LongitudeSpan float64           `json:"longitude_span"`
}

// Valid reports whether the center is a valid coordinate and both spans are positive and fit on
// the globe.
func (v Viewport) Valid() bool {
	return v.Center.Valid() &&
		v.LatitudeSpan > 0 && v.LatitudeSpan <= 180 &&
		v.LongitudeSpan > 0 && v.LongitudeSpan <= 360
}

// WithCenter returns a copy of the viewport moved to c.
func (v Viewport) WithCenter(c geobus.Coordinate) Viewport {
	v.Center = c.Point()
	return v
}

// State is a read-only snapshot of a session. Seq increases with every published snapshot.
type State struct {
	ID         string
	Seq        uint64
	Phase      Phase
	Permission permission.State
	Err        error
	Viewport   Viewport
	Path       []geobus.Coordinate
	Power      power.Status
	LastFix    time.Time
}

// Latest returns the newest trail point.
func (s State) Latest() (geobus.Coordinate, bool) {
	if len(s.Path) == 0 {
		return geobus.Coordinate{}, false
	}
	return s.Path[len(s.Path)-1], true
}
