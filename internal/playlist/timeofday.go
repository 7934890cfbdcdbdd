package playlist

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinutesPerDay is the length of a day in minutes and the only legal
// TimeOfDay that is not also a legal current time.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes since local midnight.
// The legal range is [0, 1440]; 1440 ("24:00") means end of day and is only
// meaningful as a window end.
type TimeOfDay int

const (
	// Midnight is 00:00.
	Midnight TimeOfDay = 0
	// EndOfDay is 24:00.
	EndOfDay TimeOfDay = MinutesPerDay
)

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted as EndOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}

	hours, err := strconv.Atoi(hh)
	if err != nil || len(hh) != 2 {
		return 0, fmt.Errorf("invalid time of day %q: bad hour", s)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time of day %q: bad minute", s)
	}

	if hours < 0 || hours > 24 || minutes < 0 || minutes > 59 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("invalid time of day %q: out of range", s)
	}

	return TimeOfDay(hours*60 + minutes), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants and tests.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FromTime returns the time of day of t in t's own location.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Valid reports whether t is within [0, 1440].
func (t TimeOfDay) Valid() bool {
	return t >= Midnight && t <= EndOfDay
}

// On returns the instant at this time of day on the calendar date of day,
// in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalYAML implements yaml.Marshaler
func (t TimeOfDay) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (t *TimeOfDay) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
