package status

import (
	"sync"
)

// DefaultHistorySize is how many refreshes a Tracker keeps when no size is given.
const DefaultHistorySize = 50

// Handler receives every recorded refresh.
type Handler func(info RefreshInfo)

// Subscription represents an active handler registration
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	tracker *Tracker
	id      int
}

func (s *subscription) Unsubscribe() {
	s.tracker.unsubscribe(s.id)
}

// Tracker keeps the latest refresh, a bounded history, and fans every new
// refresh out to subscribers.
type Tracker struct {
	mu      sync.RWMutex
	latest  *RefreshInfo
	history []RefreshInfo
	size    int

	subsMu      sync.RWMutex
	subscribers map[int]Handler
	nextID      int
}

// NewTracker creates a tracker keeping up to size refreshes of history.
func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Tracker{
		history:     make([]RefreshInfo, 0, size),
		size:        size,
		subscribers: make(map[int]Handler),
	}
}

// Seed sets the latest refresh without notifying subscribers, used to
// restore state persisted by a previous run.
func (t *Tracker) Seed(info *RefreshInfo) {
	if info == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = info.Clone()
}

// Record stores a refresh and notifies subscribers asynchronously.
func (t *Tracker) Record(info RefreshInfo) {
	t.mu.Lock()
	t.latest = info.Clone()
	if len(t.history) == t.size {
		copy(t.history, t.history[1:])
		t.history = t.history[:t.size-1]
	}
	t.history = append(t.history, info)
	t.mu.Unlock()

	t.subsMu.RLock()
	handlers := make([]Handler, 0, len(t.subscribers))
	for _, h := range t.subscribers {
		handlers = append(handlers, h)
	}
	t.subsMu.RUnlock()

	for _, handler := range handlers {
		go handler(info)
	}
}

// Latest returns the most recent refresh, or nil if none was recorded.
func (t *Tracker) Latest() *RefreshInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest.Clone()
}

// History returns recorded refreshes, oldest first.
func (t *Tracker) History() []RefreshInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]RefreshInfo, len(t.history))
	copy(out, t.history)
	return out
}

// Subscribe registers a handler for future refreshes
func (t *Tracker) Subscribe(handler Handler) Subscription {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()

	id := t.nextID
	t.nextID++
	t.subscribers[id] = handler

	return &subscription{tracker: t, id: id}
}

func (t *Tracker) unsubscribe(id int) {
	t.subsMu.Lock()
	delete(t.subscribers, id)
	t.subsMu.Unlock()
}
