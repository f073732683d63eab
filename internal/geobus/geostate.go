// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

// GeolocationState tracks the last coordinate a provider emitted, so providers only emit on change.
type GeolocationState struct {
	last     Coordinate
	haveLast bool
}

// HasChanged reports whether the position differs from the last stored coordinate. An accuracy
// change alone does not count as a change.
func (s *GeolocationState) HasChanged(c Coordinate) bool {
	if !s.haveLast {
		return true
	}
	return s.last.Lat != c.Lat || s.last.Lon != c.Lon
}

// Update stores the given coordinate as the last known one.
func (s *GeolocationState) Update(c Coordinate) {
	s.last = c
	s.haveLast = true
}

// Failures counts the consecutive failed attempts of a provider. A zero Limit never gives up.
type Failures struct {
	Limit int
	count int
}

// Fail records a failed attempt and reports whether the limit has been reached.
func (f *Failures) Fail() bool {
	f.count++
	return f.Limit > 0 && f.count >= f.Limit
}

// Reset clears the count after a successful attempt.
func (f *Failures) Reset() {
	f.count = 0
}
