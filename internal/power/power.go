// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package power reports whether the platform's battery saver mode is active.
package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/trailmap/internal/logger"
)

const (
	dbusPropertiesGet = "org.freedesktop.DBus.Properties.Get"
	activeProfileProp = "ActiveProfile"
	powerSaverProfile = "power-saver"
)

var (
	ErrNilLogger         = errors.New("logger is required")
	ErrUnexpectedProfile = errors.New("unexpected ActiveProfile value")
)

// daemons lists the bus names of the power-profiles daemon, newest first. Releases before 0.20
// only register the legacy name.
var daemons = []daemon{
	{name: "org.freedesktop.UPower.PowerProfiles", path: "/org/freedesktop/UPower/PowerProfiles"},
	{name: "net.hadess.PowerProfiles", path: "/net/hadess/PowerProfiles"},
}

type daemon struct {
	name string
	path dbus.ObjectPath
}

// Status is the battery saver status as last reported by the platform.
type Status int

const (
	Unknown Status = iota
	Enabled
	Disabled
	QueryFailed
)

func (s Status) String() string {
	switch s {
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	case QueryFailed:
		return "query failed"
	default:
		return "unknown"
	}
}

// Probe performs a one-shot query of the battery saver status. Query never fails; problems are
// reported as QueryFailed.
type Probe interface {
	Query(ctx context.Context) Status
}

// Static is a Probe that always reports the same status. It stands in for platforms without a
// power API or when probing is disabled.
type Static Status

func (s Static) Query(context.Context) Status {
	return Status(s)
}

// Profiles queries the active profile of the power-profiles daemon on the system bus.
type Profiles struct {
	logger        *logger.Logger
	activeProfile func(ctx context.Context) (string, error)
}

func NewProfiles(log *logger.Logger) (*Profiles, error) {
	if log == nil {
		return nil, ErrNilLogger
	}
	return &Profiles{logger: log, activeProfile: systemBusActiveProfile}, nil
}

// Query maps the "power-saver" profile to Enabled and every other profile to Disabled.
func (p *Profiles) Query(ctx context.Context) Status {
	profile, err := p.activeProfile(ctx)
	if err != nil {
		p.logger.Warn("failed to query battery saver status", logger.Err(err))
		return QueryFailed
	}
	p.logger.Debug("power profile queried", slog.String("profile", profile))
	if profile == powerSaverProfile {
		return Enabled
	}
	return Disabled
}

func systemBusActiveProfile(ctx context.Context) (profile string, err error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close system bus: %w", closeErr))
		}
	}()

	var errs []error
	for _, d := range daemons {
		profile, err = readActiveProfile(ctx, conn, d)
		if err == nil {
			return profile, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

func readActiveProfile(ctx context.Context, conn *dbus.Conn, d daemon) (string, error) {
	var value dbus.Variant
	if err := conn.Object(d.name, d.path).CallWithContext(ctx, dbusPropertiesGet, 0, d.name,
		activeProfileProp).Store(&value); err != nil {
		return "", fmt.Errorf("failed to read %s.%s: %w", d.name, activeProfileProp, err)
	}
	profile, ok := value.Value().(string)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedProfile, value.Signature())
	}
	return profile, nil
}
