package features

import (
	"time"

	"wickengine/internal/domain/models"
)

// Trading session windows in UTC hours, half-open [start, end).
var sessionWindows = []struct {
	label      string
	start, end int
}{
	{"asia", 0, 8},
	{"london", 8, 16},
	{"ny", 16, 24},
}

// cmeCloseHour is the CME Bitcoin futures Friday close, 21:00 UTC.
const cmeCloseHour = 21

// SessionFeatures is the timing slice of the feature vector.
type SessionFeatures struct {
	Label             string
	MinutesIntoSess   int
	MinutesUntilClose int
	HourOfDay         int
	DayOfWeek         int
	WeekendFlag       bool
	CMECloseProximity float64
}

// ComputeSession maps a timestamp onto its UTC trading session. Pure function.
func ComputeSession(ts time.Time) SessionFeatures {
	ts = ts.UTC()
	hour, minute := ts.Hour(), ts.Minute()

	// time.Weekday counts Sunday=0; features use Monday=0..Sunday=6.
	dow := (int(ts.Weekday()) + 6) % 7

	f := SessionFeatures{
		Label:       "unknown",
		HourOfDay:   hour,
		DayOfWeek:   dow,
		WeekendFlag: dow >= 5,
	}

	for _, w := range sessionWindows {
		if hour >= w.start && hour < w.end {
			f.Label = w.label
			f.MinutesIntoSess = (hour-w.start)*60 + minute
			f.MinutesUntilClose = (w.end-w.start)*60 - f.MinutesIntoSess - 1
			break
		}
	}

	// Countdown to the CME Friday close; zero outside that window.
	if dow == 4 && hour < cmeCloseHour {
		f.CMECloseProximity = float64((cmeCloseHour-hour)*60 - minute)
	}
	return f
}

// Apply copies the session features into a vector.
func (f SessionFeatures) Apply(v *models.WickFeatures) {
	v.SessionLabel = f.Label
	v.MinutesIntoSess = f.MinutesIntoSess
	v.MinutesUntilClose = f.MinutesUntilClose
	v.HourOfDay = f.HourOfDay
	v.DayOfWeek = f.DayOfWeek
	v.WeekendFlag = f.WeekendFlag
	v.CMECloseProximity = f.CMECloseProximity
}
