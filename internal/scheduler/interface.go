package scheduler

// Scheduler runs posted functions sequentially, in the order they were
// posted. Post must be safe to call from any goroutine and must not block on
// the execution of fn.
type Scheduler interface {
	Post(fn func())
}

// Func adapts a plain function to the Scheduler interface. Func(func(fn
// func()) { fn() }) gives a synchronous scheduler.
type Func func(fn func())

// Post calls f(fn).
func (f Func) Post(fn func()) { f(fn) }
