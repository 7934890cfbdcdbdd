package scheduler

import "fmt"

// State is the worker's position in the refresh cycle.
type State int32

const (
	StateIdle State = iota
	StateSelecting
	StateDueCheck
	StateRendering
	StateDisplaying
	StateSleeping
	StateManualOverride
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateDueCheck:
		return "due_check"
	case StateRendering:
		return "rendering"
	case StateDisplaying:
		return "displaying"
	case StateSleeping:
		return "sleeping"
	case StateManualOverride:
		return "manual_override"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateStopped; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown scheduler state %q", text)
}
