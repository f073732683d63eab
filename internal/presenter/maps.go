// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/trailmap/internal/power"
	"github.com/wneessen/trailmap/internal/session"
)

// PhaseIcons maps session phases to the icon shown in front of the position.
var PhaseIcons = map[session.Phase]string{
	session.Idle:               "🗺️",
	session.AwaitingPermission: "🔐",
	session.Tracking:           "📍",
	session.Stopped:            "⏹️",
	session.Error:              "⚠️",
}

var phaseNames = map[session.Phase]localize.MsgID{
	session.Idle:               "Idle",
	session.AwaitingPermission: "Waiting for permission",
	session.Tracking:           "Tracking",
	session.Stopped:            "Stopped",
	session.Error:              "Error",
}

var powerNames = map[power.Status]localize.MsgID{
	power.Unknown:     "Unknown",
	power.Enabled:     "Enabled",
	power.Disabled:    "Disabled",
	power.QueryFailed: "Query failed",
}
