// Package calendar reports whether US equity options markets are open, trimmed down
// from a multi-exchange calendar service to the single NYSE/NASDAQ trading session every
// ticker in this system's candidate pool trades on.
package calendar

import "time"

// session is the core trading window in exchange-local time. The options market itself
// runs 09:30-16:00 ET; IsOpen treats both bounds as inclusive, so 16:00 itself is open.
type session struct {
	openHour, openMinute   int
	closeHour, closeMinute int
}

var coreSession = session{openHour: 9, openMinute: 30, closeHour: 16, closeMinute: 0}

var newYork = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// holidays2026 are the NYSE/NASDAQ full-day market closures for 2026. A trader running
// past this calendar's horizon degrades gracefully: IsOpen falls back to the weekday and
// session-window checks alone.
var holidays2026 = []time.Time{
	date(2026, time.January, 1),
	date(2026, time.January, 19),
	date(2026, time.February, 16),
	date(2026, time.April, 3),
	date(2026, time.May, 25),
	date(2026, time.June, 19),
	date(2026, time.July, 3),
	date(2026, time.September, 7),
	date(2026, time.November, 26),
	date(2026, time.December, 25),
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, newYork)
}

// IsOpen reports whether the US options market is open at t: a weekday, not a NYSE
// holiday, and inside the 09:30-16:00 ET core session.
func IsOpen(t time.Time) bool {
	local := t.In(newYork)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	today := date(local.Year(), local.Month(), local.Day())
	for _, h := range holidays2026 {
		if h.Equal(today) {
			return false
		}
	}

	minutes := local.Hour()*60 + local.Minute()
	open := coreSession.openHour*60 + coreSession.openMinute
	close := coreSession.closeHour*60 + coreSession.closeMinute
	return minutes >= open && minutes <= close
}
