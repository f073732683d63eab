// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/wneessen/trailmap/internal/config"
	"github.com/wneessen/trailmap/internal/geobus"
	"github.com/wneessen/trailmap/internal/geobus/provider/geoip"
	"github.com/wneessen/trailmap/internal/geobus/provider/geolocation_file"
	"github.com/wneessen/trailmap/internal/geobus/provider/gpsd"
	"github.com/wneessen/trailmap/internal/geobus/provider/ichnaea"
	"github.com/wneessen/trailmap/internal/geocode"
	"github.com/wneessen/trailmap/internal/geocode/provider/google"
	nominatim "github.com/wneessen/trailmap/internal/geocode/provider/osm-nominatim"
	"github.com/wneessen/trailmap/internal/http"
	"github.com/wneessen/trailmap/internal/logger"
	"github.com/wneessen/trailmap/internal/permission"
	"github.com/wneessen/trailmap/internal/power"
)

// selectGeobusProviders returns the enabled location providers, split into precise ones and
// coarse network based ones.
func (s *Service) selectGeobusProviders() (precise, coarse []geobus.Provider, err error) {
	httpClient := http.New(s.logger)

	if !s.config.GeoLocation.DisableGeolocationFile {
		precise = append(precise, geolocation_file.NewGeolocationFileProvider(s.config.GeoLocation.File))
	}

	if !s.config.GeoLocation.DisableGPSD {
		precise = append(precise, gpsd.NewGeolocationGPSDProvider(s.config.GeoLocation.GPSDAddr))
	}

	if !s.config.GeoLocation.DisableICHNAEA {
		mls, err := ichnaea.NewGeolocationICHNAEAProvider(httpClient, s.config.GeoLocation.ICHNAEAEndpoint)
		if err != nil {
			s.logger.Error("failed to create ICHNAEA provider", logger.Err(err))
		} else {
			coarse = append(coarse, mls)
		}
	}

	if !s.config.GeoLocation.DisableGeoIP {
		gip, err := geoip.NewGeolocationGeoIPProvider(httpClient)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GeoIP provider: %w", err)
		}
		coarse = append(coarse, gip)
	}

	if len(precise) == 0 && len(coarse) == 0 {
		return nil, nil, fmt.Errorf("no geolocation providers enabled")
	}

	return precise, coarse, nil
}

func (s *Service) selectGeocodeProvider(conf *config.Config, log *logger.Logger, lang language.Tag) (geocode.Geocoder, error) {
	var geocoder geocode.Geocoder

	switch strings.ToLower(conf.GeoCoder.Provider) {
	case "nominatim":
		geocoder = geocode.NewCachedGeocoder(nominatim.New(http.NewRateLimited(log, nominatim.RequestInterval), lang),
			cacheHitTTL, cacheMissTTL)
	case "google":
		coder, err := google.New(http.New(log), lang, conf.GeoCoder.APIKey)
		if err != nil {
			return nil, err
		}
		geocoder = geocode.NewCachedGeocoder(coder, cacheHitTTL, cacheMissTTL)
	default:
		return nil, fmt.Errorf("unsupported geocoder type: %s", conf.GeoCoder.Provider)
	}

	return geocoder, nil
}

func (s *Service) selectPermissionGate() permission.Gate {
	switch s.config.Permission.Mode {
	case "geoclue":
		return permission.NewGeoClueAgent()
	default:
		return permission.Unconditional{}
	}
}

func (s *Service) selectPowerProbe() (power.Probe, error) {
	if s.config.Power.Disable {
		return power.Static(power.Unknown), nil
	}
	probe, err := power.NewProfiles(s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create power probe: %w", err)
	}
	return probe, nil
}
