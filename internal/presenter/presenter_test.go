// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vorlif/spreak"

	"github.com/wneessen/trailmap/internal/config"
	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/geocode"
	"github.com/wneessen/trailmap/internal/i18n"
	"github.com/wneessen/trailmap/internal/permission"
	"github.com/wneessen/trailmap/internal/power"
	"github.com/wneessen/trailmap/internal/session"
)

var (
	noon     = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	midnight = time.Date(2025, time.June, 1, 23, 30, 0, 0, time.UTC)
	addr     = geocode.Address{
		AddressFound: true,
		City:         "Berlin",
		Country:      "Germany",
		DisplayName:  "Friedrichstraße 67, 10117 Berlin, Germany",
	}
	tracking = session.State{
		ID:         "test",
		Phase:      session.Tracking,
		Permission: permission.Granted,
		Viewport: session.Viewport{
			Center:        geobus.Coordinate{Lat: 52.5, Lon: 13.25},
			LatitudeSpan:  0.05,
			LongitudeSpan: 0.05,
		},
		Path: []geobus.Coordinate{
			{Lat: 52.4, Lon: 13.2},
			{Lat: 52.5, Lon: 13.25},
		},
		Power: power.Enabled,
	}
)

func TestNew(t *testing.T) {
	t.Run("creating a new presenter succeeds", func(t *testing.T) {
		conf, lang := testConfLang(t, "en")
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		if pres == nil {
			t.Fatal("expected presenter to be non-nil")
		}
	})
	t.Run("creating presenter with invalid templates fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
			wantErr    string
		}{
			{"text parse", func(conf *config.Config) { conf.Templates.Text = "{{invalid" }, "failed to parse"},
			{"tooltip parse", func(conf *config.Config) { conf.Templates.Tooltip = "{{invalid" }, "failed to parse"},
			{"text render", func(conf *config.Config) { conf.Templates.Text = "{{.Data}}" }, "failed to render"},
			{"tooltip render", func(conf *config.Config) { conf.Templates.Tooltip = "{{.Data}}" }, "failed to render"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t, "en")
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error to contain %q, got %q", tt.wantErr, err)
				}
			})
		}
	})
}

func TestPresenter_BuildContext(t *testing.T) {
	t.Run("building context succeeds", func(t *testing.T) {
		pres := testPresenter(t, "en", noon)
		ctx := pres.BuildContext(tracking, addr)
		if ctx.Phase != "Tracking" || ctx.PhaseIcon != PhaseIcons[session.Tracking] {
			t.Errorf("unexpected phase: %q %q", ctx.Phase, ctx.PhaseIcon)
		}
		if ctx.Latitude != 52.5 || ctx.Longitude != 13.25 {
			t.Errorf("expected viewport center, got %f,%f", ctx.Latitude, ctx.Longitude)
		}
		if ctx.Points != 2 {
			t.Errorf("expected 2 points, got %d", ctx.Points)
		}
		if ctx.Power != "Enabled" {
			t.Errorf("expected power to be Enabled, got %q", ctx.Power)
		}
		if ctx.Address.City != addr.City {
			t.Errorf("expected address city to be %q, got %q", addr.City, ctx.Address.City)
		}
		if !ctx.IsDaytime {
			t.Error("expected daytime at noon")
		}
		if ctx.Error != "" {
			t.Errorf("expected no error, got %q", ctx.Error)
		}
	})
	t.Run("building context is localized", func(t *testing.T) {
		pres := testPresenter(t, "de", midnight)
		state := tracking
		state.Power = power.QueryFailed
		ctx := pres.BuildContext(state, addr)
		if ctx.Phase != "Verfolgung aktiv" {
			t.Errorf("expected german phase, got %q", ctx.Phase)
		}
		if ctx.Power != "Abfrage fehlgeschlagen" {
			t.Errorf("expected german power status, got %q", ctx.Power)
		}
		if ctx.IsDaytime {
			t.Error("expected night at midnight")
		}
	})
	t.Run("error causes are described", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want string
		}{
			{"permission denied", session.ErrPermissionDenied, "Location permission denied"},
			{"location unavailable", fmt.Errorf("%w: gpsd gone", session.ErrLocationUnavailable), "Location unavailable"},
			{"other", errors.New("broken"), "broken"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				pres := testPresenter(t, "en", noon)
				state := tracking
				state.Phase = session.Error
				state.Err = tc.err
				if got := pres.BuildContext(state, addr).Error; got != tc.want {
					t.Errorf("expected error message %q, got %q", tc.want, got)
				}
			})
		}
	})
}

func TestPresenter_Render(t *testing.T) {
	t.Run("rendering succeeds", func(t *testing.T) {
		pres := testPresenter(t, "en", noon)
		out, err := pres.Render(pres.BuildContext(tracking, addr))
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if len(out) != 2 {
			t.Errorf("expected output map to have length 2, got %d", len(out))
		}
		wantText := "📍 52.5000, 13.2500"
		wantTooltip := "Location: Friedrichstraße 67, 10117 Berlin, Germany\n" +
			"Trail points: 2\n" +
			"Last fix: never\n" +
			"Battery saver: Enabled"
		if out["text"] != wantText {
			t.Errorf("expected text output to be %q, got %q", wantText, out["text"])
		}
		if out["tooltip"] != wantTooltip {
			t.Errorf("expected tooltip output to be %q, got %q", wantTooltip, out["tooltip"])
		}
	})
}

func TestPresenter_Waybar(t *testing.T) {
	t.Run("waybar output carries the phase", func(t *testing.T) {
		pres := testPresenter(t, "en", noon)
		out, err := pres.Waybar(tracking, addr, false)
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if out.Class != "tracking" || out.Alt != "tracking" {
			t.Errorf("unexpected class/alt: %q %q", out.Class, out.Alt)
		}
		data, err := json.Marshal(out)
		if err != nil {
			t.Fatalf("failed to marshal output: %s", err)
		}
		for _, key := range []string{`"text":`, `"tooltip":`, `"class":`, `"alt":`} {
			if !strings.Contains(string(data), key) {
				t.Errorf("expected JSON output to contain %s, got %s", key, data)
			}
		}
	})
	t.Run("banner replaces the text", func(t *testing.T) {
		pres := testPresenter(t, "en", noon)
		out, err := pres.Waybar(tracking, addr, true)
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if out.Text != "Battery saver mode is enabled" {
			t.Errorf("expected banner text, got %q", out.Text)
		}
		if out.Class != "tracking banner" {
			t.Errorf("expected banner class, got %q", out.Class)
		}
	})
	t.Run("errors are shown in the tooltip", func(t *testing.T) {
		pres := testPresenter(t, "en", noon)
		state := tracking
		state.Phase = session.Error
		state.Err = session.ErrPermissionDenied
		out, err := pres.Waybar(state, geocode.Address{}, false)
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if !strings.HasPrefix(out.Tooltip, "Location permission denied\n") {
			t.Errorf("expected tooltip to start with the error, got %q", out.Tooltip)
		}
		if out.Class != "error" {
			t.Errorf("expected error class, got %q", out.Class)
		}
	})
}

func TestPresenter_PowerMessage(t *testing.T) {
	tests := []struct {
		status power.Status
		want   string
	}{
		{power.Enabled, "Battery saver mode is enabled"},
		{power.Disabled, "Battery saver mode is disabled"},
		{power.QueryFailed, "Battery saver status unavailable"},
		{power.Unknown, "Battery saver status unavailable"},
	}
	pres := testPresenter(t, "en", noon)
	for _, tc := range tests {
		t.Run(tc.status.String(), func(t *testing.T) {
			if got := pres.PowerMessage(tc.status); got != tc.want {
				t.Errorf("expected message %q, got %q", tc.want, got)
			}
		})
	}
	t.Run("german", func(t *testing.T) {
		pres := testPresenter(t, "de", noon)
		if got := pres.PowerMessage(power.Disabled); got != "Energiesparmodus ist deaktiviert" {
			t.Errorf("expected german message, got %q", got)
		}
	})
}

func TestPresenter_MapView(t *testing.T) {
	t.Run("map view carries viewport path and markers", func(t *testing.T) {
		pres := testPresenter(t, "en", noon)
		view := pres.MapView(tracking, false)
		if view.Viewport.Center != (MapPoint{Latitude: 52.5, Longitude: 13.25}) {
			t.Errorf("unexpected viewport center: %+v", view.Viewport.Center)
		}
		if view.Viewport.LatitudeDelta != 0.05 || view.Viewport.LongitudeDelta != 0.05 {
			t.Errorf("unexpected viewport spans: %+v", view.Viewport)
		}
		if len(view.Path) != 2 || len(view.Markers) != 2 {
			t.Fatalf("expected 2 path points and markers, got %d and %d", len(view.Path), len(view.Markers))
		}
		if view.Path[0] != (MapPoint{Latitude: 52.4, Longitude: 13.2}) {
			t.Errorf("unexpected first path point: %+v", view.Path[0])
		}
		if view.Markers[1].Rotation != 1 {
			t.Errorf("expected second marker rotation to be 1, got %d", view.Markers[1].Rotation)
		}
		if view.Style != StyleDay {
			t.Errorf("expected day style, got %q", view.Style)
		}
		if view.Banner != "" {
			t.Errorf("expected no banner, got %q", view.Banner)
		}
		if view.Polyline != (Polyline{Color: "#FF0000", Width: 3}) {
			t.Errorf("expected default polyline stroke, got %+v", view.Polyline)
		}
	})
	t.Run("polyline stroke follows the config", func(t *testing.T) {
		conf, loc := testConfLang(t, "en")
		conf.Output.PolylineColor = "#0055ff"
		conf.Output.PolylineWidth = 5
		pres, err := New(conf, loc)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		view := pres.MapView(tracking, false)
		if view.Polyline != (Polyline{Color: "#0055ff", Width: 5}) {
			t.Errorf("unexpected polyline stroke: %+v", view.Polyline)
		}
		data, err := json.Marshal(view)
		if err != nil {
			t.Fatalf("failed to marshal map view: %s", err)
		}
		if want := `"polyline":{"color":"#0055ff","width":5}`; !strings.Contains(string(data), want) {
			t.Errorf("expected JSON to contain %s, got %s", want, data)
		}
	})
	t.Run("marker rotation wraps at a full turn", func(t *testing.T) {
		pres := testPresenter(t, "en", midnight)
		state := tracking
		state.Path = make([]geobus.Coordinate, 362)
		view := pres.MapView(state, true)
		if view.Markers[359].Rotation != 359 || view.Markers[360].Rotation != 0 || view.Markers[361].Rotation != 1 {
			t.Errorf("unexpected marker rotations: %d %d %d", view.Markers[359].Rotation,
				view.Markers[360].Rotation, view.Markers[361].Rotation)
		}
		if view.Style != StyleNight {
			t.Errorf("expected night style, got %q", view.Style)
		}
		if view.Banner != "Battery saver mode is enabled" {
			t.Errorf("expected banner, got %q", view.Banner)
		}
	})
	t.Run("map view marshals flat markers", func(t *testing.T) {
		pres := testPresenter(t, "en", noon)
		data, err := json.Marshal(pres.MapView(tracking, false))
		if err != nil {
			t.Fatalf("failed to marshal map view: %s", err)
		}
		want := `{"latitude":52.4,"longitude":13.2,"rotation":0}`
		if !strings.Contains(string(data), want) {
			t.Errorf("expected JSON to contain %s, got %s", want, data)
		}
	})
}

func TestIsDaytime(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
		now  time.Time
		want bool
	}{
		{"berlin noon", 52.5, 13.25, noon, true},
		{"berlin midnight", 52.5, 13.25, midnight, false},
		{"polar night", -89, 0, noon, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDaytime(tc.lat, tc.lon, tc.now); got != tc.want {
				t.Errorf("expected daytime to be %t, got %t", tc.want, got)
			}
		})
	}
}

func testConfLang(t *testing.T, lang string) (*config.Config, *spreak.Localizer) {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to create config: %s", err)
	}
	loc, err := i18n.New(lang)
	if err != nil {
		t.Fatalf("failed to create localizer: %s", err)
	}
	return conf, loc
}

func testPresenter(t *testing.T, lang string, now time.Time) *Presenter {
	t.Helper()
	conf, loc := testConfLang(t, lang)
	pres, err := New(conf, loc)
	if err != nil {
		t.Fatalf("failed to create presenter: %s", err)
	}
	pres.now = func() time.Time { return now }
	return pres
}
