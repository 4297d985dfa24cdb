// Package workerpool runs helper tasks off the scheduler on a bounded set of
// worker goroutines.
//
// A task moves pending -> running -> completed -> callback. All three queues
// are owned by the scheduler: Exec and worker completions are posted onto it,
// and a poll tick runs while there is work. Completed tasks are handled
// before new ones start.
package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
)

// DefaultMaxWorkers is the worker limit when none is configured.
const DefaultMaxWorkers = 2

// Option configures a Pool.
type Option func(*Pool)

// WithMaxWorkers sets the worker limit. Values below one are ignored.
func WithMaxWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.max = n
		}
	}
}

// Pool is the background task pool.
type Pool struct {
	ctx     context.Context
	sched   scheduler.Scheduler
	sources *Sources
	max     int
	logger  *slog.Logger

	// Owned by the scheduler.
	workers   []*worker
	pending   []*Task
	running   []*Task
	completed []*Task
	polling   bool
	closed    bool
}

// Stats is a snapshot of the pool's queues.
type Stats struct {
	Pending   int
	Running   int
	Completed int
	Workers   int
	Busy      int
}

// New creates a pool. Workers are started lazily and live until Close; ctx
// is handed to every task source.
func New(ctx context.Context, sched scheduler.Scheduler, sources *Sources, opts ...Option) *Pool {
	p := &Pool{
		ctx:     ctx,
		sched:   sched,
		sources: sources,
		max:     DefaultMaxWorkers,
		logger:  ctxlog.FromContext(ctx).With("component", "workerpool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxWorkers returns the worker limit.
func (p *Pool) MaxWorkers() int { return p.max }

// Exec submits t. It is safe to call from any goroutine; the task joins the
// pending queue on the scheduler.
func (p *Pool) Exec(t *Task) {
	p.sched.Post(func() {
		if p.closed {
			t.fail(fmt.Errorf("worker pool is closed"))
			return
		}
		p.pending = append(p.pending, t)
		p.fireTimer()
	})
}

// Stats must be called on the scheduler, or while it is idle.
func (p *Pool) Stats() Stats {
	s := Stats{
		Pending:   len(p.pending),
		Running:   len(p.running),
		Completed: len(p.completed),
		Workers:   len(p.workers),
	}
	for _, w := range p.workers {
		if w.busy {
			s.Busy++
		}
	}
	return s
}

// Close stops the workers once their current task ends. Tasks that have not
// started fail. Must be called on the scheduler, or while it is idle.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	p.closed = true
	for _, w := range p.workers {
		close(w.inbox)
	}
	for _, t := range p.pending {
		t.fail(fmt.Errorf("worker pool is closed"))
	}
	p.pending = nil
}

// complete receives a worker's encoded state.
func (p *Pool) complete(w *worker, data []byte) {
	w.busy = false

	s, err := decodeState(data)
	if err != nil {
		p.logger.Error("Dropping undecodable task state.", "worker", w.id, "error", err)
		p.fireTimer()
		return
	}

	i := slices.IndexFunc(p.running, func(t *Task) bool { return t.id == s.ID })
	if i < 0 {
		p.logger.Error("Not found the task in running queue of pool.", "task", s.ID)
		p.fireTimer()
		return
	}
	t := p.running[i]
	t.result = s.result()
	p.running = slices.Delete(p.running, i, i+1)
	p.completed = append(p.completed, t)
	p.fireTimer()
}

func (p *Pool) fireTimer() {
	if p.polling {
		return
	}
	p.polling = true
	p.sched.Post(p.pollOnce)
}

func (p *Pool) pollOnce() {
	if len(p.pending) == 0 && len(p.completed) == 0 {
		p.polling = false
		return
	}

	if len(p.completed) > 0 {
		t := p.completed[0]
		p.completed = p.completed[1:]
		p.invoke(t)
	} else {
		w := p.availableWorker()
		if w == nil {
			p.logger.Debug("No available worker in pool now.")
			p.polling = false
			return
		}
		t := p.pending[0]
		p.pending = p.pending[1:]
		p.running = append(p.running, t)
		if err := w.schedule(t); err != nil {
			p.logger.Error("Failed to schedule task.", "task", t.id, "source", t.Source, "error", err)
			p.running = p.running[:len(p.running)-1]
			p.invokeFail(t, err)
		}
	}
	p.sched.Post(p.pollOnce)
}

func (p *Pool) availableWorker() *worker {
	if p.closed {
		return nil
	}
	for _, w := range p.workers {
		if !w.busy {
			return w
		}
	}
	if len(p.workers) < p.max {
		return p.startWorker()
	}
	return nil
}

func (p *Pool) invoke(t *Task) {
	defer p.recoverCallback(t)
	t.complete()
}

func (p *Pool) invokeFail(t *Task, err error) {
	defer p.recoverCallback(t)
	t.fail(err)
}

func (p *Pool) recoverCallback(t *Task) {
	if r := recover(); r != nil {
		p.logger.Error("Recovered panic in task callback.", "task", t.id, "panic", r)
	}
}
