package playlist

import (
	"errors"
	"fmt"
	"time"
)

// RefreshKind identifies which cadence a Refresh carries.
type RefreshKind string

const (
	RefreshInterval  RefreshKind = "interval"
	RefreshScheduled RefreshKind = "scheduled"
)

// Refresh is the cadence of a plugin instance: exactly one of a fixed
// interval in seconds or a daily wall-clock time.
type Refresh struct {
	Interval  int        `yaml:"interval,omitempty" json:"interval,omitempty"`
	Scheduled *TimeOfDay `yaml:"scheduled,omitempty" json:"scheduled,omitempty"`
}

// IntervalRefresh returns a fixed cadence of the given number of seconds.
func IntervalRefresh(seconds int) Refresh {
	return Refresh{Interval: seconds}
}

// ScheduledRefresh returns a once-a-day cadence at the given time.
func ScheduledRefresh(at TimeOfDay) Refresh {
	return Refresh{Scheduled: &at}
}

// Kind returns the cadence variant.
func (r Refresh) Kind() RefreshKind {
	if r.Scheduled != nil {
		return RefreshScheduled
	}
	return RefreshInterval
}

// IntervalDuration returns the interval as a duration.
func (r Refresh) IntervalDuration() time.Duration {
	return time.Duration(r.Interval) * time.Second
}

// Validate enforces that exactly one variant is set and in range.
func (r Refresh) Validate() error {
	switch {
	case r.Interval != 0 && r.Scheduled != nil:
		return errors.New("refresh must set either interval or scheduled, not both")
	case r.Scheduled != nil:
		if *r.Scheduled < Midnight || *r.Scheduled >= EndOfDay {
			return fmt.Errorf("scheduled refresh %s out of range", r.Scheduled)
		}
		return nil
	case r.Interval > 0:
		return nil
	default:
		return errors.New("refresh requires a positive interval or a scheduled time")
	}
}

func (r Refresh) String() string {
	if r.Scheduled != nil {
		return "daily at " + r.Scheduled.String()
	}
	return "every " + r.IntervalDuration().String()
}
