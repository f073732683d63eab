// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package template

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/trailmap/internal/config"
)

const ellipsis = "…"

var ErrNilLocalizer = errors.New("localizer is required")

// Templates holds the parsed output templates of the waybar format.
type Templates struct {
	Text    *template.Template
	Tooltip *template.Template

	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
}

// i18nVars maps the keys usable with the "loc" template function to their message IDs.
var i18nVars = map[string]localize.MsgID{
	"location":            "Location",
	"points":              "Trail points",
	"lastfix":             "Last fix",
	"batterysaver":        "Battery saver",
	"idle":                "Idle",
	"awaiting_permission": "Waiting for permission",
	"tracking":            "Tracking",
	"stopped":             "Stopped",
	"error":               "Error",
	"enabled":             "Enabled",
	"disabled":            "Disabled",
	"unknown":             "Unknown",
	"query failed":        "Query failed",
	"never":               "never",
}

func New(conf *config.Config, loc *spreak.Localizer) (*Templates, error) {
	if loc == nil {
		return nil, ErrNilLocalizer
	}
	humanizers, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	tpls := &Templates{
		localizer: loc,
		humanizer: humanizers.CreateHumanizer(loc.Language()),
	}

	tpl, err := template.New("text").Funcs(tpls.FuncMap()).Parse(conf.Templates.Text)
	if err != nil {
		return tpls, fmt.Errorf("failed to parse text template: %w", err)
	}
	tpls.Text = tpl

	tpl, err = template.New("tooltip").Funcs(tpls.FuncMap()).Parse(conf.Templates.Tooltip)
	if err != nil {
		return tpls, fmt.Errorf("failed to parse tooltip template: %w", err)
	}
	tpls.Tooltip = tpl

	return tpls, nil
}

// FuncMap returns the functions available to output templates.
func (t *Templates) FuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":  timeFormat,
		"floatFormat": floatFormat,
		"trunc":       trunc,
		"natural":     t.natural,
		"loc":         t.loc,
		"lc":          strings.ToLower,
		"uc":          strings.ToUpper,
	}
}

// Localize translates a message ID with the templates' localizer.
func (t *Templates) Localize(msg localize.MsgID) string {
	return t.localizer.Get(msg)
}

func (t *Templates) loc(val string) string {
	if raw, ok := i18nVars[strings.ToLower(val)]; ok {
		return t.localizer.Get(raw)
	}
	return val
}

// natural renders a point in time relative to now, e.g. "3 minutes ago".
func (t *Templates) natural(val time.Time) string {
	if val.IsZero() {
		return t.localizer.Get("never")
	}
	return t.humanizer.NaturalTime(val)
}

func timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// trunc shortens val to at most width terminal cells, marking the cut with an ellipsis.
func trunc(val string, width int) string {
	if runewidth.StringWidth(val) <= width {
		return val
	}
	return runewidth.Truncate(val, width, ellipsis)
}
