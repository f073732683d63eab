// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/vorlif/spreak"

	"github.com/wneessen/trailmap/internal/config"
	"github.com/wneessen/trailmap/internal/geocode"
	"github.com/wneessen/trailmap/internal/power"
	"github.com/wneessen/trailmap/internal/session"
	"github.com/wneessen/trailmap/internal/template"
)

// TemplateContext is the data the text and tooltip templates are rendered with.
type TemplateContext struct {
	Phase     string
	PhaseIcon string
	Error     string
	Latitude  float64
	Longitude float64
	Address   geocode.Address
	Points    int
	LastFix   time.Time
	Power     string
	IsDaytime bool
}

// WaybarOutput is a single line of the waybar custom module protocol.
type WaybarOutput struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
	Alt     string `json:"alt"`
}

type Presenter struct {
	templates *template.Templates
	polyline  Polyline
	now       func() time.Time
}

// New parses the configured templates and renders them once against an empty context, so that
// templates referring to unknown fields are rejected at startup.
func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	tpls, err := template.New(conf, loc)
	if err != nil {
		return nil, err
	}
	pres := &Presenter{
		templates: tpls,
		polyline:  Polyline{Color: conf.Output.PolylineColor, Width: conf.Output.PolylineWidth},
		now:       time.Now,
	}
	if _, err = pres.Render(TemplateContext{}); err != nil {
		return nil, err
	}
	return pres, nil
}

// BuildContext composes the template context for a session snapshot. addr is the reverse geocoded
// address of the viewport center, if any.
func (p *Presenter) BuildContext(state session.State, addr geocode.Address) TemplateContext {
	center := state.Viewport.Center
	return TemplateContext{
		Phase:     p.templates.Localize(phaseNames[state.Phase]),
		PhaseIcon: PhaseIcons[state.Phase],
		Error:     p.errorMessage(state.Err),
		Latitude:  center.Lat,
		Longitude: center.Lon,
		Address:   addr,
		Points:    len(state.Path),
		LastFix:   state.LastFix,
		Power:     p.templates.Localize(powerNames[state.Power]),
		IsDaytime: isDaytime(center.Lat, center.Lon, p.now()),
	}
}

// Render executes the text and tooltip templates. The result is keyed by template name.
func (p *Presenter) Render(ctx TemplateContext) (map[string]string, error) {
	out := make(map[string]string, 2)
	buf := bytes.NewBuffer(nil)
	if err := p.templates.Text.Execute(buf, ctx); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	out["text"] = buf.String()

	buf.Reset()
	if err := p.templates.Tooltip.Execute(buf, ctx); err != nil {
		return nil, fmt.Errorf("failed to render tooltip template: %w", err)
	}
	out["tooltip"] = buf.String()

	return out, nil
}

// Waybar renders a session snapshot as waybar output. With banner set, the text shows the battery
// saver message instead of the position.
func (p *Presenter) Waybar(state session.State, addr geocode.Address, banner bool) (WaybarOutput, error) {
	ctx := p.BuildContext(state, addr)
	rendered, err := p.Render(ctx)
	if err != nil {
		return WaybarOutput{}, err
	}

	output := WaybarOutput{
		Text:    rendered["text"],
		Tooltip: rendered["tooltip"],
		Class:   state.Phase.String(),
		Alt:     state.Phase.String(),
	}
	if ctx.Error != "" {
		output.Tooltip = ctx.Error + "\n" + output.Tooltip
	}
	if banner {
		output.Text = p.PowerMessage(state.Power)
		output.Class += " banner"
	}
	return output, nil
}

// PowerMessage returns the localized battery saver banner text for the given status.
func (p *Presenter) PowerMessage(status power.Status) string {
	switch status {
	case power.Enabled:
		return p.templates.Localize("Battery saver mode is enabled")
	case power.Disabled:
		return p.templates.Localize("Battery saver mode is disabled")
	default:
		return p.templates.Localize("Battery saver status unavailable")
	}
}

func (p *Presenter) errorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrPermissionDenied):
		return p.templates.Localize("Location permission denied")
	case errors.Is(err, session.ErrLocationUnavailable):
		return p.templates.Localize("Location unavailable")
	default:
		return err.Error()
	}
}
