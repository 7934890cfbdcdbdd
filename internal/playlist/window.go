package playlist

import "fmt"

// Window is a time-of-day range with an inclusive start and exclusive end.
// A window whose start is after its end wraps past midnight.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// AllDay is the 00:00-24:00 window.
var AllDay = Window{Start: Midnight, End: EndOfDay}

// Validate checks both bounds are within [0, 1440].
func (w Window) Validate() error {
	if !w.Start.Valid() {
		return fmt.Errorf("start %d out of range [0, %d]", w.Start, MinutesPerDay)
	}
	if !w.End.Valid() {
		return fmt.Errorf("end %d out of range [0, %d]", w.End, MinutesPerDay)
	}
	return nil
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.Start > w.End
}

// IsActive reports whether current falls inside the window.
// current must be a real time of day in [0, 1440); 1440 is never active.
func (w Window) IsActive(current TimeOfDay) bool {
	if current < Midnight || current >= EndOfDay {
		return false
	}

	switch {
	case w.Start == w.End:
		return false
	case w.Start < w.End:
		return w.Start <= current && current < w.End
	default:
		return current >= w.Start || current < w.End
	}
}

// Priority is the window length in minutes. Shorter windows are more
// specific and win when several playlists are active at once.
func (w Window) Priority() int {
	switch {
	case w.Start == w.End:
		return 0
	case w.Start < w.End:
		return int(w.End - w.Start)
	default:
		return (int(w.End-w.Start) + MinutesPerDay) % MinutesPerDay
	}
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}
