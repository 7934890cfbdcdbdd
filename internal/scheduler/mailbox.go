package scheduler

import "sync"

// job is a queued request and the channel its submitter waits on.
type job struct {
	req  Request
	done chan error
}

func newJob(req Request) *job {
	return &job{req: req, done: make(chan error, 1)}
}

// mailbox is a FIFO of manual requests. notify holds at most one pending
// wake-up; the worker drains the whole queue on each wake.
type mailbox struct {
	mu     sync.Mutex
	queue  []*job
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) push(j *job) {
	m.mu.Lock()
	m.queue = append(m.queue, j)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) pop() (*job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, false
	}
	j := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return j, true
}

// drain removes and returns everything queued.
func (m *mailbox) drain() []*job {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := m.queue
	m.queue = nil
	return jobs
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
