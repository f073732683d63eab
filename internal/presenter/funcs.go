// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// isDaytime reports whether the sun is up at the given position. During polar day and night
// no sunrise is computed and the position counts as night.
func isDaytime(lat, lon float64, now time.Time) bool {
	now = now.UTC()
	rise, set := sunrise.SunriseSunset(lat, lon, now.Year(), now.Month(), now.Day())
	if rise.IsZero() || set.IsZero() {
		return false
	}
	return now.After(rise) && now.Before(set)
}
