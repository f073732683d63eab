// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wneessen/trailmap/internal/config"
	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/logger"
	"github.com/wneessen/trailmap/internal/session"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing command argument")
	ErrPlaceNotFound   = errors.New("place not found")
	ErrNoSession       = errors.New("no tracking session running")
)

// processCommands reads one command per line from input until it is exhausted or ctx is cancelled.
// Failed commands are logged and do not end the loop.
func (s *Service) processCommands(ctx context.Context, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.execCommand(ctx, line); err != nil {
			s.logger.Error("failed to execute command", slog.String("command", line), logger.Err(err))
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("failed to read commands", logger.Err(err))
	}
}

// execCommand runs a single command line:
//
//	search <free text>                     center on a searched place
//	goto <lat>,<lon>                       center on a coordinate
//	view <lat>,<lon>[,<latSpan>,<lonSpan>] move or zoom the viewport
//	battery                                show the battery saver banner
//	stop                                   end the tracking session
func (s *Service) execCommand(ctx context.Context, line string) error {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	args = strings.TrimSpace(args)

	sess := s.currentSession()
	if sess == nil {
		return ErrNoSession
	}

	switch strings.ToLower(name) {
	case "search":
		if args == "" {
			return fmt.Errorf("%w: search requires a query", ErrMissingArgument)
		}
		ctxSearch, cancelSearch := context.WithTimeout(ctx, geocodeTimeout)
		defer cancelSearch()
		coords, err := s.geocoder.Search(ctxSearch, args)
		if err != nil {
			return fmt.Errorf("failed to search for %q: %w", args, err)
		}
		if !coords.Found {
			return fmt.Errorf("%w: %q", ErrPlaceNotFound, args)
		}
		return sess.Select(coords)
	case "goto":
		lat, lon, err := config.ParseLatLon(args)
		if err != nil {
			return err
		}
		return sess.Select(geobus.Coordinate{Lat: lat, Lon: lon})
	case "view":
		viewport, err := parseViewport(args, sess.State().Viewport)
		if err != nil {
			return err
		}
		return sess.SetViewport(viewport)
	case "battery":
		s.setBanner(true)
		s.printState(ctx)
		return nil
	case "stop":
		sess.Stop()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// parseViewport parses "lat,lon" or "lat,lon,latSpan,lonSpan". Omitted spans are taken from current.
func parseViewport(args string, current session.Viewport) (session.Viewport, error) {
	parts := strings.Split(args, ",")
	switch len(parts) {
	case 2:
	case 4:
		latSpan, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return current, fmt.Errorf("invalid latitude span in %q: %w", args, err)
		}
		lonSpan, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return current, fmt.Errorf("invalid longitude span in %q: %w", args, err)
		}
		current.LatitudeSpan, current.LongitudeSpan = latSpan, lonSpan
	default:
		return current, fmt.Errorf("%w: view requires lat,lon[,latSpan,lonSpan]", ErrMissingArgument)
	}

	lat, lon, err := config.ParseLatLon(parts[0] + "," + parts[1])
	if err != nil {
		return current, err
	}
	current.Center = geobus.Coordinate{Lat: lat, Lon: lon}
	return current, nil
}
