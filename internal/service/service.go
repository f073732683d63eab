// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/trailmap/internal/config"
	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/geocode"
	"github.com/wneessen/trailmap/internal/logger"
	"github.com/wneessen/trailmap/internal/metrics"
	"github.com/wneessen/trailmap/internal/position"
	"github.com/wneessen/trailmap/internal/presenter"
	"github.com/wneessen/trailmap/internal/session"
)

const (
	OutputFormatMap = "map"

	stateBufferSize = 8
	cacheHitTTL     = time.Hour * 24
	cacheMissTTL    = time.Minute * 10
	geocodeTimeout  = time.Second * 15

	metricsPath            = "/metrics"
	metricsHeaderTimeout   = time.Second * 5
	metricsShutdownTimeout = time.Second * 5
)

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	t         *spreak.Localizer
	geobus    *geobus.GeoBus
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	SignalSrc signalSource

	output       io.Writer
	input        io.Reader
	monitorSleep bool

	geocoder geocode.Geocoder
	locator  position.Locator

	sessionLock sync.RWMutex
	session     *session.Session

	outputLock sync.Mutex

	addressLock sync.RWMutex
	address     geocode.Address
	addressFor  geobus.Coordinate

	bannerLock sync.RWMutex
	showBanner bool
}

func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	bus, err := geobus.New(log)
	if err != nil {
		return nil, fmt.Errorf("failed to create geobus: %w", err)
	}
	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Service{
		config:       conf,
		logger:       log,
		t:            t,
		geobus:       bus,
		presenter:    pres,
		scheduler:    scheduler,
		SignalSrc:    stdLibSignalSource{},
		output:       os.Stdout,
		input:        os.Stdin,
		monitorSleep: !conf.Power.Disable,
	}, nil
}

// Run starts the tracking session and all background workers. It blocks until ctx is cancelled,
// then stops the session and shuts the scheduler down.
func (s *Service) Run(ctx context.Context) error {
	if s.geocoder == nil {
		coder, err := s.selectGeocodeProvider(s.config, s.logger, s.t.Language())
		if err != nil {
			return fmt.Errorf("failed to create geocode provider: %w", err)
		}
		s.geocoder = coder
	}
	if s.locator == nil {
		precise, coarse, err := s.selectGeobusProviders()
		if err != nil {
			return fmt.Errorf("failed to create geobus orchestrator: %w", err)
		}
		s.locator = position.NewBusLocator(s.geobus, precise, coarse)
	}

	sess, err := s.createSession()
	if err != nil {
		return fmt.Errorf("failed to create tracking session: %w", err)
	}
	s.sessionLock.Lock()
	s.session = sess
	s.sessionLock.Unlock()

	states, unsubscribe := sess.Subscribe(stateBufferSize)
	defer unsubscribe()
	go s.processStates(ctx, states)

	if err = s.createScheduledJob(ctx, s.config.Intervals.Output, s.printState, "state_output_job"); err != nil {
		return err
	}
	s.scheduler.Start()

	if s.config.Metrics.Listen != "" {
		go s.serveMetrics(ctx)
	}
	if s.monitorSleep {
		go s.monitorSleepResume(ctx)
	}
	if s.input != nil {
		go s.processCommands(ctx, s.input)
	}

	if err = sess.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracking session: %w", err)
	}
	s.logger.Info("tracking session started", slog.String("session", sess.ID()))

	// Wait for the context to cancel
	<-ctx.Done()
	sess.Stop()
	return s.scheduler.Shutdown()
}

func (s *Service) createSession() (*session.Session, error) {
	sub, err := position.New(s.locator, s.logger)
	if err != nil {
		return nil, err
	}
	lat, lon, err := s.config.ViewportCenter()
	if err != nil {
		return nil, err
	}
	probe, err := s.selectPowerProbe()
	if err != nil {
		return nil, err
	}

	minDistance, minInterval := s.config.TrackingFilter()
	return session.New(session.Config{
		Gate:       s.selectPermissionGate(),
		Subscriber: sub,
		Probe:      probe,
		Options: position.Options{
			HighAccuracy: s.config.Tracking.Accuracy == "high",
			MinDistance:  minDistance,
			MinInterval:  minInterval,
		},
		DefaultViewport: session.Viewport{
			Center:        geobus.Coordinate{Lat: lat, Lon: lon},
			LatitudeSpan:  s.config.Viewport.LatitudeSpan,
			LongitudeSpan: s.config.Viewport.LongitudeSpan,
		},
		Logger: s.logger,
	})
}

func (s *Service) currentSession() *session.Session {
	s.sessionLock.RLock()
	defer s.sessionLock.RUnlock()
	return s.session
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// processStates prints every snapshot published by the session, resolving the address of the
// viewport center first.
func (s *Service) processStates(ctx context.Context, states <-chan session.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			s.resolveAddress(ctx, state.Viewport.Center)
			s.print(state)
		}
	}
}

// resolveAddress reverse geocodes center unless the current address already belongs to it. On
// failure the previous address is kept.
func (s *Service) resolveAddress(ctx context.Context, center geobus.Coordinate) {
	s.addressLock.RLock()
	known := s.address.AddressFound && s.addressFor == center
	s.addressLock.RUnlock()
	if known {
		return
	}

	ctxGeo, cancelGeo := context.WithTimeout(ctx, geocodeTimeout)
	defer cancelGeo()
	address, err := s.geocoder.Reverse(ctxGeo, center)
	if err != nil {
		s.logger.Error("failed to reverse geocode viewport center", logger.Err(err),
			slog.Float64("lat", center.Lat), slog.Float64("lon", center.Lon))
		return
	}

	s.addressLock.Lock()
	s.address = address
	s.addressFor = center
	s.addressLock.Unlock()
	s.logger.Debug("address successfully resolved", slog.String("address", address.DisplayName),
		slog.Bool("cache_hit", address.CacheHit))
}

func (s *Service) currentAddress() geocode.Address {
	s.addressLock.RLock()
	defer s.addressLock.RUnlock()
	return s.address
}

// printState outputs the current session state. It is run by the output job and after user
// interaction.
func (s *Service) printState(context.Context) {
	sess := s.currentSession()
	if sess == nil {
		return
	}
	s.print(sess.State())
}

// print renders a snapshot in the configured output format and writes it as a single JSON line.
func (s *Service) print(state session.State) {
	s.bannerLock.RLock()
	banner := s.showBanner
	s.bannerLock.RUnlock()

	var output any
	switch s.config.Output.Format {
	case OutputFormatMap:
		output = s.presenter.MapView(state, banner)
	default:
		waybar, err := s.presenter.Waybar(state, s.currentAddress(), banner)
		if err != nil {
			s.logger.Error("failed to render output", logger.Err(err))
			return
		}
		output = waybar
	}

	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if err := json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode output", logger.Err(err))
	}
}

func (s *Service) setBanner(show bool) {
	s.bannerLock.Lock()
	s.showBanner = show
	s.bannerLock.Unlock()
}

func (s *Service) toggleBanner() {
	s.bannerLock.Lock()
	s.showBanner = !s.showBanner
	s.bannerLock.Unlock()
}

// serveMetrics exposes the Prometheus metrics until ctx is cancelled.
func (s *Service) serveMetrics(ctx context.Context) {
	mux := stdhttp.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler())
	server := &stdhttp.Server{
		Addr:              s.config.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: metricsHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			s.logger.Error("failed to shut down metrics server", logger.Err(err))
		}
	}()

	s.logger.Info("serving metrics", slog.String("listen", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		s.logger.Error("metrics server failed", logger.Err(err))
	}
}
