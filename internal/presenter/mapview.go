// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/session"
)

const (
	StyleDay   = "day"
	StyleNight = "night"
)

// MapPoint is a coordinate in the map render input.
type MapPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapViewport is the visible region in the map render input.
type MapViewport struct {
	Center         MapPoint `json:"center"`
	LatitudeDelta  float64  `json:"latitude_delta"`
	LongitudeDelta float64  `json:"longitude_delta"`
}

// Marker is a trail point drawn on the map. Rotation is in degrees.
type Marker struct {
	MapPoint
	Rotation int `json:"rotation"`
}

// Polyline is the stroke the trail is drawn with.
type Polyline struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// MapView is the render input for a map surface: the viewport, the trail as a polyline and one
// marker per trail point.
type MapView struct {
	Phase    string      `json:"phase"`
	Style    string      `json:"style"`
	Viewport MapViewport `json:"viewport"`
	Polyline Polyline    `json:"polyline"`
	Path     []MapPoint  `json:"path"`
	Markers  []Marker    `json:"markers"`
	Banner   string      `json:"banner,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// MapView renders a session snapshot as map render input.
func (p *Presenter) MapView(state session.State, banner bool) MapView {
	center := state.Viewport.Center
	view := MapView{
		Phase: state.Phase.String(),
		Style: StyleNight,
		Viewport: MapViewport{
			Center:         mapPoint(center),
			LatitudeDelta:  state.Viewport.LatitudeSpan,
			LongitudeDelta: state.Viewport.LongitudeSpan,
		},
		Polyline: p.polyline,
		Path:     make([]MapPoint, 0, len(state.Path)),
		Markers:  make([]Marker, 0, len(state.Path)),
		Error:    p.errorMessage(state.Err),
	}
	if isDaytime(center.Lat, center.Lon, p.now()) {
		view.Style = StyleDay
	}
	for i, c := range state.Path {
		view.Path = append(view.Path, mapPoint(c))
		view.Markers = append(view.Markers, Marker{MapPoint: mapPoint(c), Rotation: i % 360})
	}
	if banner {
		view.Banner = p.PowerMessage(state.Power)
	}
	return view
}

func mapPoint(c geobus.Coordinate) MapPoint {
	return MapPoint{Latitude: c.Lat, Longitude: c.Lon}
}
