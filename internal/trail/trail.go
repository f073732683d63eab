// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package trail accumulates the ordered list of positions a tracking session has recorded.
package trail

import (
	"github.com/wneessen/trailmap/internal/geobus"
)

// initialCapacity is a rough guess of the points a typical session records before its first reset.
const initialCapacity = 64

// Trail is an ordered, append-only sequence of recorded points. It can only be cleared as a whole
// by reseeding it with a single point. A Trail is not safe for concurrent use.
type Trail struct {
	points []geobus.Coordinate
}

// New returns an empty Trail.
func New() *Trail {
	return &Trail{points: make([]geobus.Coordinate, 0, initialCapacity)}
}

// Append adds a point to the end of the trail. Consecutive duplicates are kept.
func (t *Trail) Append(c geobus.Coordinate) {
	t.points = append(t.points, c.Point())
}

// Reset clears the trail and seeds it with exactly one point.
func (t *Trail) Reset(seed geobus.Coordinate) {
	clear(t.points)
	t.points = append(t.points[:0], seed.Point())
}

// Path returns a copy of the recorded points, oldest first. Later changes to the trail do not
// affect the returned slice.
func (t *Trail) Path() []geobus.Coordinate {
	path := make([]geobus.Coordinate, len(t.points))
	copy(path, t.points)
	return path
}

// Latest returns the most recently recorded point.
func (t *Trail) Latest() (geobus.Coordinate, bool) {
	if len(t.points) == 0 {
		return geobus.Coordinate{}, false
	}
	return t.points[len(t.points)-1], true
}

func (t *Trail) Len() int {
	return len(t.points)
}
