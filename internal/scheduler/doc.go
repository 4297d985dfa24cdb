// Package scheduler provides the single cooperative execution context that
// the dispatch core runs on.
//
// # Why Scheduler Exists
//
// Plugin dispatch, result delivery and background-task completion all mutate
// state that is owned by one logical thread. Instead of relying on a
// platform "next tick" primitive, every piece of work is posted onto a
// Scheduler, which runs posted functions one at a time in FIFO order.
//
// This provides several key benefits:
//   - **Ordering:** work posted from any goroutine runs in post order
//   - **No locking in the core:** the task queue and the worker pool keep
//     their sub-queues without mutexes because only posted code touches them
//   - **Deterministic tests:** Manual lets a test step through ticks
//
// # Implementations
//
//   - Loop: one goroutine draining a channel-fed queue until stopped.
//   - Manual: a queue that only advances when the test calls Step or
//     RunUntilIdle.
//
// # Relationship with Other Components
//
//   - **Task queue:** schedules one drain tick per delivery
//   - **Bridge:** posts inbound exec calls
//   - **Worker pool:** posts completions and poll ticks from worker goroutines
package scheduler
