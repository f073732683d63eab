// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kkyr/fig"
)

const (
	configEnv = "TRAILMAP"

	// checkTag is the struct tag used for validator rules. fig already claims the "validate" tag.
	checkTag = "check"

	DefaultTextTpl    = "{{.PhaseIcon}} {{floatFormat .Latitude 4}}, {{floatFormat .Longitude 4}}"
	DefaultTooltipTpl = "{{loc \"location\"}}: {{trunc .Address.DisplayName 48}}\n" +
		"{{loc \"points\"}}: {{.Points}}\n" +
		"{{loc \"lastfix\"}}: {{natural .LastFix}}\n" +
		"{{loc \"batterysaver\"}}: {{.Power}}"
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Tracking struct {
		// Allowed values: high, balanced
		Accuracy string `fig:"accuracy" default:"high" check:"oneof=high balanced"`
		// fig replaces zero values with the default, so a negative value switches a filter off
		MinDistance float64       `fig:"min_distance" default:"10"`
		MinInterval time.Duration `fig:"min_interval" default:"10m"`
	} `fig:"tracking"`

	Viewport struct {
		// Center is given as "latitude,longitude"
		Center        string  `fig:"center" default:"28.7041,77.1025"`
		LatitudeSpan  float64 `fig:"latitude_span" default:"0.05" check:"gt=0,lte=180"`
		LongitudeSpan float64 `fig:"longitude_span" default:"0.05" check:"gt=0,lte=360"`
	} `fig:"viewport"`

	Intervals struct {
		Output time.Duration `fig:"output" default:"30s" check:"gt=0"`
	} `fig:"intervals"`

	Output struct {
		// Allowed values: waybar, map
		Format string `fig:"format" default:"waybar" check:"oneof=waybar map"`
		// Stroke of the trail polyline in the map render input
		PolylineColor string  `fig:"polyline_color" default:"#FF0000" check:"hexcolor"`
		PolylineWidth float64 `fig:"polyline_width" default:"3" check:"gt=0"`
	} `fig:"output"`

	Templates struct {
		Text    string `fig:"text"`
		Tooltip string `fig:"tooltip"`
	} `fig:"templates"`

	GeoLocation struct {
		File                   string `fig:"file"`
		GPSDAddr               string `fig:"gpsd_addr" default:"localhost:2947" check:"hostname_port"`
		DisableGPSD            bool   `fig:"disable_gpsd"`
		DisableGeolocationFile bool   `fig:"disable_geolocation_file"`
		DisableICHNAEA         bool   `fig:"disable_ichnaea"`
		ICHNAEAEndpoint        string `fig:"ichnaea_endpoint" check:"omitempty,http_url"`
		DisableGeoIP           bool   `fig:"disable_geoip"`
	} `fig:"geolocation"`

	GeoCoder struct {
		// Allowed values: nominatim, google
		Provider string `fig:"provider" default:"nominatim" check:"oneof=nominatim google"`
		APIKey   string `fig:"apikey"`
	} `fig:"geocoder"`

	Permission struct {
		// Allowed values: none, geoclue
		Mode string `fig:"mode" default:"none" check:"oneof=none geoclue"`
	} `fig:"permission"`

	Power struct {
		Disable bool `fig:"disable"`
	} `fig:"power"`

	Metrics struct {
		Listen string `fig:"listen" check:"omitempty,hostname_port"`
	} `fig:"metrics"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	check := validator.New(validator.WithRequiredStructEnabled())
	check.SetTagName(checkTag)
	if err := check.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, _, err := c.ViewportCenter(); err != nil {
		return err
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}
	if c.GeoLocation.File == "" {
		home, _ := os.UserHomeDir()
		c.GeoLocation.File = filepath.Join(home, ".config", "trailmap", "geolocation")
	}

	return nil
}

// TrackingFilter returns the minimum distance in meters and the minimum interval between two
// accepted fixes. Negative values are returned as zero.
func (c *Config) TrackingFilter() (minDistance float64, minInterval time.Duration) {
	return max(c.Tracking.MinDistance, 0), max(c.Tracking.MinInterval, 0)
}

// ViewportCenter parses the configured default viewport center.
func (c *Config) ViewportCenter() (lat, lon float64, err error) {
	return ParseLatLon(c.Viewport.Center)
}

// ParseLatLon parses a "latitude,longitude" pair and checks that it lies within the EPSG:4326 bounds.
func ParseLatLon(val string) (lat, lon float64, err error) {
	parts := strings.Split(strings.TrimSpace(val), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid coordinate pair %q: expected latitude,longitude", val)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q: %w", val, err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q: %w", val, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinate pair %q is out of range", val)
	}
	return lat, lon, nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
