package dayphase

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// SunEvent represents the simplified sun event state
type SunEvent string

const (
	SunEventNight   SunEvent = "night"
	SunEventMorning SunEvent = "morning"
	SunEventDay     SunEvent = "day"
	SunEventSunset  SunEvent = "sunset"
	SunEventDusk    SunEvent = "dusk"
)

// SunTimes holds the sun events of one calendar day at one place.
type SunTimes struct {
	Dawn        time.Time
	Sunrise     time.Time
	SunriseEnd  time.Time
	SunsetStart time.Time
	Sunset      time.Time
	Dusk        time.Time
}

// Calculate returns sun times for the calendar date of day (in day's
// location) at the given coordinates. Times are converted to day's location.
func Calculate(latitude, longitude float64, day time.Time) SunTimes {
	loc := day.Location()
	rise, set := sunrise.SunriseSunset(latitude, longitude, day.Year(), day.Month(), day.Day())
	rise = rise.In(loc)
	set = set.In(loc)

	// Civil twilight is about 30 minutes either side; golden hour is the
	// hour before sunset.
	return SunTimes{
		Dawn:        rise.Add(-30 * time.Minute),
		Sunrise:     rise,
		SunriseEnd:  rise.Add(30 * time.Minute),
		SunsetStart: set.Add(-60 * time.Minute),
		Sunset:      set,
		Dusk:        set.Add(30 * time.Minute),
	}
}

// Polar reports whether the sun neither rises nor sets that day.
func (s SunTimes) Polar() bool {
	return s.Sunrise.IsZero() || s.Sunset.IsZero() || !s.Sunrise.Before(s.Sunset)
}

// EventAt maps t to the simplified sun event.
func (s SunTimes) EventAt(t time.Time) SunEvent {
	if s.Polar() {
		return SunEventNight
	}

	switch {
	case t.Before(s.Dawn):
		return SunEventNight
	case t.Before(s.SunriseEnd):
		return SunEventMorning
	case t.Before(s.SunsetStart):
		return SunEventDay
	case t.Before(s.Sunset):
		return SunEventSunset
	case t.Before(s.Dusk):
		return SunEventDusk
	default:
		return SunEventNight
	}
}

// Daylight returns the time between sunrise and sunset.
func (s SunTimes) Daylight() time.Duration {
	if s.Polar() {
		return 0
	}
	return s.Sunset.Sub(s.Sunrise)
}
