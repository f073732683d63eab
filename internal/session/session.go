// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package session implements the live tracking session. A session asks for location access,
// subscribes to position updates, records the trail and keeps the map viewport centered on the
// most recent point.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/logger"
	"github.com/wneessen/trailmap/internal/metrics"
	"github.com/wneessen/trailmap/internal/permission"
	"github.com/wneessen/trailmap/internal/position"
	"github.com/wneessen/trailmap/internal/power"
	"github.com/wneessen/trailmap/internal/trail"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrAlreadyStarted      = errors.New("session already started")
	ErrNotTracking         = errors.New("session is not tracking")
	ErrNotActive           = errors.New("session is not active")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrInvalidViewport     = errors.New("invalid viewport")

	ErrNilGate       = errors.New("permission gate is required")
	ErrNilSubscriber = errors.New("position subscriber is required")
)

// Subscriber opens position subscriptions. It is satisfied by *position.Subscription.
type Subscriber interface {
	Start(ctx context.Context, opts position.Options, onUpdate func(geobus.Coordinate),
		onError func(error)) (*position.Handle, error)
}

// Config holds the collaborators and settings of a session. Probe may be nil, in which case the
// battery saver status stays unknown.
type Config struct {
	Gate            permission.Gate
	Subscriber      Subscriber
	Probe           power.Probe
	Options         position.Options
	DefaultViewport Viewport
	Logger          *logger.Logger
}

// Session is a single tracking run. It moves from Idle through AwaitingPermission to Tracking and
// ends in Stopped or Error. A stopped or failed session cannot be restarted.
type Session struct {
	id              string
	logger          *logger.Logger
	gate            permission.Gate
	subscriber      Subscriber
	probe           power.Probe
	opts            position.Options
	defaultViewport Viewport

	mu         sync.Mutex
	phase      Phase
	permission permission.State
	err        error
	viewport   Viewport
	trail      *trail.Trail
	power      power.Status
	lastFix    time.Time
	seq        uint64
	handle     *position.Handle
	cancel     context.CancelFunc
	subs       map[chan State]struct{}
}

func New(conf Config) (*Session, error) {
	if conf.Logger == nil {
		return nil, geobus.ErrNilLogger
	}
	if conf.Gate == nil {
		return nil, ErrNilGate
	}
	if conf.Subscriber == nil {
		return nil, ErrNilSubscriber
	}
	if err := conf.Options.Validate(); err != nil {
		return nil, err
	}
	if !conf.DefaultViewport.Valid() {
		return nil, fmt.Errorf("%w: default viewport %+v", ErrInvalidViewport, conf.DefaultViewport)
	}
	if conf.Probe == nil {
		conf.Probe = power.Static(power.Unknown)
	}

	id := uuid.NewString()
	return &Session{
		id:              id,
		logger:          &logger.Logger{Logger: conf.Logger.With(slog.String("session", id))},
		gate:            conf.Gate,
		subscriber:      conf.Subscriber,
		probe:           conf.Probe,
		opts:            conf.Options,
		defaultViewport: conf.DefaultViewport,
		viewport:        conf.DefaultViewport,
		trail:           trail.New(),
		subs:            make(map[chan State]struct{}),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// Start requests location access and queries the battery saver status. Both run in the
// background; their outcome is visible through State and Subscribe. The subscription opened
// after a grant lives until Stop is called or ctx is cancelled.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Idle {
		return ErrAlreadyStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.permission = permission.Unknown
	s.transition(AwaitingPermission)

	go s.requestPermission(ctx)
	go s.queryPower(ctx)
	return nil
}

// Select re-centers the session on a searched place. The trail is replaced by the selected
// point and the viewport falls back to the default span.
func (s *Session) Select(c geobus.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Tracking {
		return ErrNotTracking
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %f,%f", ErrInvalidCoordinate, c.Lat, c.Lon)
	}

	s.trail.Reset(c)
	s.viewport = s.defaultViewport.WithCenter(c)
	s.logger.Debug("place selected", slog.Float64("lat", c.Lat), slog.Float64("lon", c.Lon))
	s.publish()
	return nil
}

// SetViewport replaces the viewport after the user moved or zoomed the map. The trail is not
// touched.
func (s *Session) SetViewport(v Viewport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Tracking {
		return ErrNotTracking
	}
	if !v.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidViewport, v)
	}

	v.Center = v.Center.Point()
	s.viewport = v
	s.publish()
	return nil
}

// Stop ends the session. Once Stop returns no position update will change the trail anymore. A
// session in the Error phase stays there. Stop must not be called from a position callback.
func (s *Session) Stop() {
	s.mu.Lock()
	switch s.phase {
	case Stopped:
		s.mu.Unlock()
		return
	case Error:
	default:
		s.transition(Stopped)
	}
	handle, cancel := s.handle, s.cancel
	s.handle, s.cancel = nil, nil
	s.mu.Unlock()

	// the handle waits for a running callback, which needs s.mu
	if handle != nil {
		handle.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

// RefreshPower queries the battery saver status again, e.g. after the system resumed from sleep.
func (s *Session) RefreshPower(ctx context.Context) error {
	s.mu.Lock()
	phase := s.phase
	s.mu.Unlock()
	if phase == Idle || phase == Stopped {
		return ErrNotActive
	}
	s.queryPower(ctx)
	return nil
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe returns a channel receiving a snapshot after every change, starting with the current
// one. A subscriber that falls behind loses intermediate snapshots but always receives the most
// recent one. The returned function unsubscribes and closes the channel.
func (s *Session) Subscribe(size int) (<-chan State, func()) {
	if size < 1 {
		size = 1
	}
	ch := make(chan State, size)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.snapshot()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) requestPermission(ctx context.Context) {
	state, err := s.gate.RequestAccess(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != AwaitingPermission {
		s.logger.Debug("discarding permission result", slog.String("phase", s.phase.String()))
		return
	}
	s.permission = state
	if state != permission.Granted {
		if err != nil {
			s.fail(fmt.Errorf("%w: %w", ErrPermissionDenied, err))
			return
		}
		s.fail(ErrPermissionDenied)
		return
	}

	handle, err := s.subscriber.Start(ctx, s.opts, s.onUpdate, s.onError)
	if err != nil {
		s.fail(fmt.Errorf("%w: %w", ErrLocationUnavailable, err))
		return
	}
	s.handle = handle
	s.transition(Tracking)
}

func (s *Session) queryPower(ctx context.Context) {
	status := s.probe.Query(ctx)
	metrics.PowerQueries.WithLabelValues(status.String()).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Stopped {
		s.logger.Debug("discarding battery saver status", slog.String("status", status.String()))
		return
	}
	s.power = status
	s.publish()
}

func (s *Session) onUpdate(c geobus.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Tracking {
		return
	}

	s.trail.Append(c)
	s.viewport = s.viewport.WithCenter(c)
	s.lastFix = time.Now()
	metrics.TrailPoints.Set(float64(s.trail.Len()))
	s.publish()
}

func (s *Session) onError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Tracking {
		return
	}
	// the subscription has already detached itself
	s.handle = nil
	s.fail(fmt.Errorf("%w: %w", ErrLocationUnavailable, err))
}

// fail moves the session into the Error phase. Viewport and trail are kept.
func (s *Session) fail(err error) {
	s.err = err
	s.logger.Error("tracking session failed", logger.Err(err))
	s.transition(Error)
}

func (s *Session) transition(phase Phase) {
	s.logger.Info("tracking session changed phase", slog.String("from", s.phase.String()),
		slog.String("to", phase.String()))
	s.phase = phase
	metrics.Transitions.WithLabelValues(phase.String()).Inc()
	s.publish()
}

// publish hands a fresh snapshot to all subscribers. It must be called with s.mu held.
func (s *Session) publish() {
	s.seq++
	if len(s.subs) == 0 {
		return
	}
	state := s.snapshot()
	for ch := range s.subs {
		select {
		case ch <- state:
			continue
		default:
		}
		// drop the oldest queued snapshot to make room for the latest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}

func (s *Session) snapshot() State {
	return State{
		ID:         s.id,
		Seq:        s.seq,
		Phase:      s.phase,
		Permission: s.permission,
		Err:        s.err,
		Viewport:   s.viewport,
		Path:       s.trail.Path(),
		Power:      s.power,
		LastFix:    s.lastFix,
	}
}
