package workerpool

import (
	"sync/atomic"
)

var lastTaskID atomic.Uint64

// Result is what a task's callback receives. Err is set when the task could
// not be scheduled, its source is unknown, or the source failed.
type Result struct {
	Value any
	Err   error
}

// Callback receives a task's result on the scheduler.
type Callback func(Result)

// Task is a unit of background work: a named source run with parameters.
type Task struct {
	id         uint64
	Source     string
	Parameters []any
	Callback   Callback

	result Result
}

// NewTask creates a task with a fresh, process-wide unique id.
func NewTask(source string, params []any, cb Callback) *Task {
	return &Task{
		id:         lastTaskID.Add(1),
		Source:     source,
		Parameters: params,
		Callback:   cb,
	}
}

// ID matches a task with the state a worker hands back.
func (t *Task) ID() uint64 { return t.id }

func (t *Task) complete() {
	if t.Callback != nil {
		t.Callback(t.result)
	}
}

func (t *Task) fail(err error) {
	t.result = Result{Err: err}
	t.complete()
}
