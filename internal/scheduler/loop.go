package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
)

// Loop is the real run loop. Functions posted before Run starts are kept and
// executed once it does.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
	once    sync.Once
}

// NewLoop creates an idle loop. Call Run to start executing work.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
}

// Post queues fn. Posting to a stopped loop drops fn.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted functions until ctx is cancelled or Stop is called. A
// panicking function is recovered and logged so the loop keeps running.
func (l *Loop) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scheduler loop started.")
	defer logger.Debug("Scheduler loop stopped.")

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.run(ctx, fn)
		}

		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.stop:
			return nil
		case <-l.wake:
		}
	}
}

// Stop makes Run return after the function currently executing. Pending
// functions are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.stop)
	})
}

// Pending returns the number of queued functions.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) run(ctx context.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Recovered panic in scheduled function.", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
