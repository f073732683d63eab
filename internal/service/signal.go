// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wneessen/trailmap/internal/session"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals toggles the battery saver banner on SIGUSR1 and logs the session state on SIGUSR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.toggleBanner()
				s.printState(ctx)
			case syscall.SIGUSR2:
				s.logState()
			}
		}
	}
}

func (s *Service) logState() {
	var state session.State
	if sess := s.currentSession(); sess != nil {
		state = sess.State()
	}
	var errMsg string
	if state.Err != nil {
		errMsg = state.Err.Error()
	}
	s.logger.Info("current tracking session state",
		slog.String("session", state.ID),
		slog.String("phase", state.Phase.String()),
		slog.String("permission", state.Permission.String()),
		slog.String("power", state.Power.String()),
		slog.Int("points", len(state.Path)),
		slog.Float64("latitude", state.Viewport.Center.Lat),
		slog.Float64("longitude", state.Viewport.Center.Lon),
		slog.String("address", s.currentAddress().DisplayName),
		slog.String("error", errMsg),
	)
}
