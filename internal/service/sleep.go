// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/trailmap/internal/logger"
)

const (
	logindInterface = "org.freedesktop.login1.Manager"
	logindMember    = "PrepareForSleep"

	resumeDebounce    = 2 * time.Second
	resumeSettleDelay = 3 * time.Second
	signalBufferSize  = 8
	busRetryDelay     = 5 * time.Second
)

// monitorSleepResume refreshes the battery saver status whenever the system resumes from sleep.
// Lost system bus connections are re-established until ctx is cancelled.
func (s *Service) monitorSleepResume(ctx context.Context) {
	var lastResume time.Time
	for {
		err := s.watchPrepareForSleep(ctx, func(sleeping bool) {
			if sleeping || time.Since(lastResume) < resumeDebounce {
				return
			}
			lastResume = time.Now()
			s.handleResume(ctx)
		})
		if err != nil {
			s.logger.Debug("sleep monitoring interrupted", logger.Err(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(busRetryDelay):
		}
	}
}

// watchPrepareForSleep subscribes to the logind PrepareForSleep signal and calls onSignal with its
// argument until ctx is cancelled or the connection is lost.
func (s *Service) watchPrepareForSleep(ctx context.Context, onSignal func(sleeping bool)) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Error("failed to close system bus connection", logger.Err(err))
		}
	}()

	if err = conn.AddMatchSignal(dbus.WithMatchInterface(logindInterface),
		dbus.WithMatchMember(logindMember)); err != nil {
		return fmt.Errorf("failed to subscribe to %s.%s: %w", logindInterface, logindMember, err)
	}
	sigCh := make(chan *dbus.Signal, signalBufferSize)
	conn.Signal(sigCh)
	defer conn.RemoveSignal(sigCh)
	s.logger.Debug("subscribed to dbus signal", slog.String("interface", logindInterface),
		slog.String("member", logindMember))

	for {
		select {
		case <-ctx.Done():
			return nil
		case sgn, ok := <-sigCh:
			if !ok {
				return fmt.Errorf("system bus connection closed")
			}
			if sleeping, ok := prepareForSleepArg(sgn); ok {
				onSignal(sleeping)
			}
		}
	}
}

// prepareForSleepArg extracts the boolean argument of a PrepareForSleep signal. It is true when
// the system is about to sleep and false after it resumed.
func prepareForSleepArg(sgn *dbus.Signal) (sleeping, ok bool) {
	if sgn == nil || sgn.Name != logindInterface+"."+logindMember || len(sgn.Body) != 1 {
		return false, false
	}
	sleeping, ok = sgn.Body[0].(bool)
	return sleeping, ok
}

// handleResume asks the session for a fresh battery saver status, since the active power profile
// often changes across suspend.
func (s *Service) handleResume(ctx context.Context) {
	sess := s.currentSession()
	if sess == nil {
		return
	}

	// Give the power-profiles daemon time to settle
	select {
	case <-ctx.Done():
		return
	case <-time.After(resumeSettleDelay):
	}

	s.logger.Debug("resumed from sleep, refreshing battery saver status")
	if err := sess.RefreshPower(ctx); err != nil {
		s.logger.Debug("battery saver status not refreshed", logger.Err(err))
	}
}
