// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package trail

import (
	"testing"

	"github.com/wneessen/trailmap/internal/geobus"
)

func TestNew(t *testing.T) {
	tr := New()
	if tr == nil {
		t.Fatal("expected trail to be non-nil")
	}
	if tr.Len() != 0 {
		t.Errorf("expected new trail to be empty, got %d points", tr.Len())
	}
	if _, ok := tr.Latest(); ok {
		t.Error("expected empty trail to have no latest point")
	}
}

func TestTrail_Append(t *testing.T) {
	t.Run("points are kept in order", func(t *testing.T) {
		tr := New()
		want := make([]geobus.Coordinate, 0, 200)
		for i := range 200 {
			c := geobus.Coordinate{Lat: float64(i) / 10, Lon: float64(i) / 20}
			want = append(want, c)
			tr.Append(c)
		}
		if tr.Len() != len(want) {
			t.Fatalf("expected %d points, got %d", len(want), tr.Len())
		}
		for i, c := range tr.Path() {
			if c != want[i] {
				t.Errorf("point %d: expected %+v, got %+v", i, want[i], c)
			}
		}
		latest, ok := tr.Latest()
		if !ok || latest != want[len(want)-1] {
			t.Errorf("expected latest point to be %+v, got %+v", want[len(want)-1], latest)
		}
	})
	t.Run("duplicate points are appended", func(t *testing.T) {
		tr := New()
		c := geobus.Coordinate{Lat: 28.70, Lon: 77.10}
		tr.Append(c)
		tr.Append(c)
		if tr.Len() != 2 {
			t.Errorf("expected 2 points, got %d", tr.Len())
		}
	})
	t.Run("only the position is recorded", func(t *testing.T) {
		tr := New()
		tr.Append(geobus.Coordinate{Lat: 1, Lon: 2, Acc: 10, Found: true})
		latest, _ := tr.Latest()
		if latest != (geobus.Coordinate{Lat: 1, Lon: 2}) {
			t.Errorf("expected recorded point to only carry the position, got %+v", latest)
		}
	})
}

func TestTrail_Reset(t *testing.T) {
	tr := New()
	for i := range 10 {
		tr.Append(geobus.Coordinate{Lat: float64(i), Lon: float64(i)})
	}
	seed := geobus.Coordinate{Lat: 12.97, Lon: 77.59}
	tr.Reset(seed)
	if tr.Len() != 1 {
		t.Fatalf("expected 1 point after reset, got %d", tr.Len())
	}
	if latest, _ := tr.Latest(); latest != seed {
		t.Errorf("expected latest point to be the seed, got %+v", latest)
	}

	tr.Append(geobus.Coordinate{Lat: 12.98, Lon: 77.60})
	path := tr.Path()
	if len(path) != 2 || path[0] != seed {
		t.Errorf("expected trail to continue after the seed, got %+v", path)
	}
}

func TestTrail_Path(t *testing.T) {
	t.Run("snapshot is not affected by later appends", func(t *testing.T) {
		tr := New()
		tr.Append(geobus.Coordinate{Lat: 1, Lon: 1})
		snapshot := tr.Path()
		tr.Append(geobus.Coordinate{Lat: 2, Lon: 2})
		if len(snapshot) != 1 {
			t.Errorf("expected snapshot to keep 1 point, got %d", len(snapshot))
		}
	})
	t.Run("snapshot is not affected by a reset", func(t *testing.T) {
		tr := New()
		tr.Append(geobus.Coordinate{Lat: 1, Lon: 1})
		tr.Append(geobus.Coordinate{Lat: 2, Lon: 2})
		snapshot := tr.Path()
		tr.Reset(geobus.Coordinate{Lat: 3, Lon: 3})
		if snapshot[0].Lat != 1 || snapshot[1].Lat != 2 {
			t.Errorf("expected snapshot to be unchanged, got %+v", snapshot)
		}
	})
	t.Run("modifying the snapshot does not change the trail", func(t *testing.T) {
		tr := New()
		tr.Append(geobus.Coordinate{Lat: 1, Lon: 1})
		snapshot := tr.Path()
		snapshot[0].Lat = 99
		if latest, _ := tr.Latest(); latest.Lat != 1 {
			t.Errorf("expected trail to be unchanged, got %+v", latest)
		}
	})
	t.Run("empty trail returns empty path", func(t *testing.T) {
		if path := New().Path(); len(path) != 0 {
			t.Errorf("expected empty path, got %d points", len(path))
		}
	})
}
