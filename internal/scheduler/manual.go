package scheduler

import "sync"

// Manual is a scheduler for tests. Posted functions only run when the test
// calls Step or RunUntilIdle, on the test's goroutine.
type Manual struct {
	mu    sync.Mutex
	queue []func()
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual { return &Manual{} }

// Post queues fn.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

// Pending returns the number of queued functions.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Step runs the oldest queued function and reports whether there was one.
func (m *Manual) Step() bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	fn := m.queue[0]
	m.queue = m.queue[1:]
	m.mu.Unlock()

	fn()
	return true
}

// RunUntilIdle steps until the queue is empty, including functions posted
// while running, and returns how many ran.
func (m *Manual) RunUntilIdle() int {
	n := 0
	for m.Step() {
		n++
	}
	return n
}
