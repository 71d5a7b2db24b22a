package timewindow

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Window is the concrete start/end of an event, built from its calendar date
// and free-text timeframe.
type Window struct {
	Start time.Time
	End   time.Time
}

// Usable reports whether the window has any duration. A zero-length window is
// the degraded fallback for an unparseable timeframe and means "no usable
// timeframe": the attendance code never releases for it.
func (w Window) Usable() bool {
	return w.End.After(w.Start)
}

var (
	twelveHourRe     = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*-\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)
	twentyFourHourRe = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})\s*$`)
)

// Parse converts a calendar date plus a timeframe string like "9:00 AM - 5:00 PM"
// or "21:00 - 22:30" into concrete instants. The 12-hour form is tried first.
// If neither form matches, both ends collapse to midnight of the date rather
// than failing; callers must treat the zero-length window as unusable.
//
// Instants are constructed from the date's calendar fields in local time. Events
// and check-ins are assumed to share one local timezone context.
func Parse(date time.Time, timeframe string) Window {
	if sh, sm, eh, em, ok := parseTwelveHour(timeframe); ok {
		return Window{Start: clockTime(date, sh, sm), End: clockTime(date, eh, em)}
	}
	if sh, sm, eh, em, ok := parseTwentyFourHour(timeframe); ok {
		return Window{Start: clockTime(date, sh, sm), End: clockTime(date, eh, em)}
	}
	midnight := clockTime(date, 0, 0)
	return Window{Start: midnight, End: midnight}
}

// ValidTimeframe reports whether the string matches one of the two accepted
// forms with in-range clock values. Used to reject malformed input at event
// creation; already-stored garbage still degrades through Parse instead of
// failing.
func ValidTimeframe(timeframe string) bool {
	if _, _, _, _, ok := parseTwelveHour(timeframe); ok {
		return true
	}
	_, _, _, _, ok := parseTwentyFourHour(timeframe)
	return ok
}

func parseTwelveHour(timeframe string) (startHour, startMin, endHour, endMin int, ok bool) {
	m := twelveHourRe.FindStringSubmatch(timeframe)
	if m == nil {
		return 0, 0, 0, 0, false
	}
	sh, sm := atoi(m[1]), atoi(m[2])
	eh, em := atoi(m[4]), atoi(m[5])
	if !validClock12(sh, sm) || !validClock12(eh, em) {
		return 0, 0, 0, 0, false
	}
	return normalizeHour(sh, m[3]), sm, normalizeHour(eh, m[6]), em, true
}

func parseTwentyFourHour(timeframe string) (startHour, startMin, endHour, endMin int, ok bool) {
	m := twentyFourHourRe.FindStringSubmatch(timeframe)
	if m == nil {
		return 0, 0, 0, 0, false
	}
	sh, sm := atoi(m[1]), atoi(m[2])
	eh, em := atoi(m[3]), atoi(m[4])
	if !validClock24(sh, sm) || !validClock24(eh, em) {
		return 0, 0, 0, 0, false
	}
	return sh, sm, eh, em, true
}

// Out-of-range values would otherwise roll into the next day through
// time.Date normalization.
func validClock12(hour, minute int) bool {
	return hour >= 1 && hour <= 12 && minute <= 59
}

func validClock24(hour, minute int) bool {
	return hour <= 23 && minute <= 59
}

// normalizeHour applies the standard 12-hour convention: 12 AM is hour 0,
// 12 PM stays 12.
func normalizeHour(hour int, meridiem string) int {
	switch strings.ToUpper(meridiem) {
	case "AM":
		if hour == 12 {
			return 0
		}
	case "PM":
		if hour != 12 {
			return hour + 12
		}
	}
	return hour
}

func clockTime(date time.Time, hour, minute int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, time.Local)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
