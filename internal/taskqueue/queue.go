// Package taskqueue serializes result deliveries to the web side. Deliveries
// leave the queue one at a time, in enqueue order, and the next one does not
// start before the previous one reports completion.
package taskqueue

import (
	"io"
	"log/slog"
	"sync"

	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
)

// Delivery is one pending callback result.
type Delivery struct {
	CallbackID string
	Envelope   result.Envelope
}

// Deliver hands d to the web side and must call done exactly once when the
// delivery has finished, from any goroutine.
type Deliver func(d Delivery, done func())

// Queue is a FIFO of deliveries drained by ticks posted on a scheduler.
type Queue struct {
	sched   scheduler.Scheduler
	deliver Deliver

	logger  *slog.Logger

	mu        sync.Mutex
	items     []Delivery
	scheduled bool
	inFlight  bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used to report failed deliveries.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// New creates an idle queue.
func New(sched scheduler.Scheduler, deliver Deliver, opts ...Option) *Queue {
	q := &Queue{
		sched:   sched,
		deliver: deliver,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends d and wakes the drain loop if it is idle. It never blocks
// on delivery.
func (q *Queue) Enqueue(d Delivery) {
	q.mu.Lock()
	q.items = append(q.items, d)
	wake := !q.scheduled && !q.inFlight
	if wake {
		q.scheduled = true
	}
	q.mu.Unlock()

	if wake {
		q.sched.Post(q.tick)
	}
}

// Len returns the number of deliveries waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight reports whether a delivery has started and not yet completed.
func (q *Queue) InFlight() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// tick starts the oldest delivery, or lets the loop go idle.
func (q *Queue) tick() {
	q.mu.Lock()
	q.scheduled = false
	if q.inFlight || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	d := q.items[0]
	q.items[0] = Delivery{}
	q.items = q.items[1:]
	q.inFlight = true
	q.mu.Unlock()

	var once sync.Once
	done := func() { once.Do(q.complete) }
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("Delivery panicked.", "callbackID", d.CallbackID, "panic", rec)
			done()
		}
	}()
	q.deliver(d, done)
}

func (q *Queue) complete() {
	q.mu.Lock()
	q.inFlight = false
	wake := len(q.items) > 0 && !q.scheduled
	if wake {
		q.scheduled = true
	}
	q.mu.Unlock()

	if wake {
		q.sched.Post(q.tick)
	}
}
