// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package power

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/wneessen/trailmap/internal/logger"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Unknown, "unknown"},
		{Enabled, "enabled"},
		{Disabled, "disabled"},
		{QueryFailed, "query failed"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.status.String(); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestStatic_Query(t *testing.T) {
	if got := Static(Unknown).Query(t.Context()); got != Unknown {
		t.Errorf("expected %s, got %s", Unknown, got)
	}
	if got := Static(Enabled).Query(t.Context()); got != Enabled {
		t.Errorf("expected %s, got %s", Enabled, got)
	}
}

func TestNewProfiles(t *testing.T) {
	t.Run("new profiles probe succeeds", func(t *testing.T) {
		probe, err := NewProfiles(testLogger())
		if err != nil {
			t.Fatalf("failed to create probe: %s", err)
		}
		if probe.activeProfile == nil {
			t.Error("expected probe to query the system bus")
		}
	})
	t.Run("nil logger fails", func(t *testing.T) {
		if _, err := NewProfiles(nil); !errors.Is(err, ErrNilLogger) {
			t.Errorf("expected error to be %s, got %s", ErrNilLogger, err)
		}
	})
}

func TestProfiles_Query(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		err     error
		want    Status
	}{
		{"power saver is enabled", "power-saver", nil, Enabled},
		{"balanced is disabled", "balanced", nil, Disabled},
		{"performance is disabled", "performance", nil, Disabled},
		{"bus failure", "", errors.New("intentionally failing"), QueryFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			probe := &Profiles{
				logger: testLogger(),
				activeProfile: func(context.Context) (string, error) {
					return tc.profile, tc.err
				},
			}
			if got := probe.Query(t.Context()); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func testLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelDebug, io.Discard)
}
