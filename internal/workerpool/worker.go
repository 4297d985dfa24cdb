package workerpool

import (
	"context"
	"fmt"
	"log/slog"
)

// worker runs one task at a time on its own goroutine. busy is only touched
// on the scheduler.
type worker struct {
	id    int
	inbox chan []byte
	busy  bool
}

func (p *Pool) startWorker() *worker {
	w := &worker{id: len(p.workers) + 1, inbox: make(chan []byte, 1)}
	p.workers = append(p.workers, w)
	logger := p.logger.With("worker", w.id)
	go w.loop(p.ctx, logger, p.sources, func(data []byte) {
		p.sched.Post(func() { p.complete(w, data) })
	})
	logger.Debug("Worker started.")
	return w
}

// schedule hands t to the worker.
func (w *worker) schedule(t *Task) error {
	data, err := State{ID: t.id, Source: t.Source, Parameters: t.Parameters}.encode()
	if err != nil {
		return err
	}
	w.busy = true
	w.inbox <- data
	return nil
}

func (w *worker) loop(ctx context.Context, logger *slog.Logger, sources *Sources, report func([]byte)) {
	for data := range w.inbox {
		out := run(ctx, logger, sources, data)
		encoded, err := out.encode()
		if err != nil {
			encoded, _ = State{ID: out.ID, Source: out.Source, Err: err.Error()}.encode()
		}
		report(encoded)
	}
	logger.Debug("Worker stopped.")
}

func run(ctx context.Context, logger *slog.Logger, sources *Sources, data []byte) (out State) {
	in, err := decodeState(data)
	if err != nil {
		return State{Err: err.Error()}
	}
	out = State{ID: in.ID, Source: in.Source}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic in task source.", "task", in.ID, "source", in.Source, "panic", r)
			out.Result, out.Err = nil, fmt.Sprintf("task source %q panicked: %v", in.Source, r)
		}
	}()

	src, ok := sources.Lookup(ctx, in.Source)
	if !ok {
		out.Err = fmt.Sprintf("unknown task source %q", in.Source)
		return out
	}
	logger.Debug("Running task.", "task", in.ID, "source", in.Source)
	v, err := src(ctx, in.Parameters)
	if err != nil {
		out.Err = err.Error()
		return out
	}
	out.Result = v
	return out
}
