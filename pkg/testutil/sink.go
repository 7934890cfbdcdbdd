package testutil

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// DisplayCall records one image handed to a sink.
type DisplayCall struct {
	Timestamp time.Time
	Image     *image.NRGBA
}

// RecordingSink is a display.Sink that keeps every image it is given.
type RecordingSink struct {
	// Err makes Display fail.
	Err error

	mu    sync.Mutex
	calls []DisplayCall
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) Name() string { return "recording" }

// Display records img unless Err is set.
func (s *RecordingSink) Display(ctx context.Context, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.calls = append(s.calls, DisplayCall{Timestamp: time.Now(), Image: imaging.Clone(img)})
	return nil
}

// Calls returns every recorded display.
func (s *RecordingSink) Calls() []DisplayCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DisplayCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns the number of successful displays.
func (s *RecordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// SetErr changes the display error under the sink's lock.
func (s *RecordingSink) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
