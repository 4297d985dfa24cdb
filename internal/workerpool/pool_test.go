package workerpool

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/specialistvlad/yunosbridge/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drainUntil runs the manual scheduler until cond holds. Worker goroutines
// post their completions asynchronously, so it polls with a deadline.
func drainUntil(t *testing.T, sched *scheduler.Manual, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		sched.RunUntilIdle()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

// gatedSources returns a "wait" source that blocks until its gate opens.
func gatedSources(names ...string) (*Sources, map[string]chan struct{}, chan string) {
	gates := make(map[string]chan struct{}, len(names))
	for _, n := range names {
		gates[n] = make(chan struct{})
	}
	started := make(chan string, len(names))
	s := NewSources()
	s.Register("wait", func(_ context.Context, params []any) (any, error) {
		name := params[0].(string)
		started <- name
		<-gates[name]
		return "done:" + name, nil
	})
	return s, gates, started
}

func TestPool_ThreeTasksTwoWorkers(t *testing.T) {
	// --- Arrange ---
	sched := scheduler.NewManual()
	sources, gates, started := gatedSources("a", "b", "c")
	pool := New(context.Background(), sched, sources, WithMaxWorkers(2))
	defer pool.Close()

	calls := map[string]int{}
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		pool.Exec(NewTask("wait", []any{name}, func(r Result) {
			require.NoError(t, r.Err)
			v := r.Value.(string)
			calls[v]++
			order = append(order, v)
		}))
	}

	// --- Act: start ---
	sched.RunUntilIdle()

	// --- Assert: two running, one pending ---
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case n := <-started:
			got[n] = true
		case <-time.After(5 * time.Second):
			t.Fatal("workers did not start")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, got)
	assert.Equal(t, Stats{Pending: 1, Running: 2, Workers: 2, Busy: 2}, pool.Stats())

	// --- Act: finish one ---
	close(gates["a"])
	drainUntil(t, sched, func() bool { return len(order) == 1 })

	select {
	case n := <-started:
		assert.Equal(t, "c", n)
	case <-time.After(5 * time.Second):
		t.Fatal("pending task did not start after a worker freed up")
	}
	assert.Equal(t, Stats{Running: 2, Workers: 2, Busy: 2}, pool.Stats())

	// --- Act: finish the rest ---
	close(gates["b"])
	close(gates["c"])
	drainUntil(t, sched, func() bool { return len(order) == 3 })

	// --- Assert ---
	assert.Equal(t, map[string]int{"done:a": 1, "done:b": 1, "done:c": 1}, calls)
	assert.Equal(t, "done:a", order[0])
	assert.Equal(t, Stats{Workers: 2}, pool.Stats())
}

func TestPool_DefaultMaxWorkers(t *testing.T) {
	pool := New(context.Background(), scheduler.NewManual(), NewSources())
	assert.Equal(t, DefaultMaxWorkers, pool.MaxWorkers())
	assert.Equal(t, DefaultMaxWorkers, New(context.Background(), scheduler.NewManual(), NewSources(), WithMaxWorkers(0)).MaxWorkers())
	assert.Equal(t, 4, New(context.Background(), scheduler.NewManual(), NewSources(), WithMaxWorkers(4)).MaxWorkers())
}

func TestPool_FailuresReachTheCallback(t *testing.T) {
	sched := scheduler.NewManual()
	sources := NewSources()
	sources.Register("boom", func(context.Context, []any) (any, error) { return nil, errors.New("exploded") })
	sources.Register("panic", func(context.Context, []any) (any, error) { panic("kaboom") })
	pool := New(context.Background(), sched, sources)
	defer pool.Close()

	results := map[string]Result{}
	submit := func(name, source string, params []any) {
		pool.Exec(NewTask(source, params, func(r Result) { results[name] = r }))
	}
	submit("error", "boom", nil)
	submit("panic", "panic", nil)
	submit("unknown", "nope", nil)
	submit("unencodable", "boom", []any{make(chan int)})

	drainUntil(t, sched, func() bool { return len(results) == 4 })

	assert.EqualError(t, results["error"].Err, "exploded")
	assert.ErrorContains(t, results["panic"].Err, "kaboom")
	assert.ErrorContains(t, results["unknown"].Err, `unknown task source "nope"`)
	assert.ErrorContains(t, results["unencodable"].Err, "encoding task")
}

func TestPool_ValuesCrossAsSerializedState(t *testing.T) {
	sched := scheduler.NewManual()
	sources := NewSources()
	sources.Register("sum", func(_ context.Context, params []any) (any, error) {
		var total int64
		for _, p := range params {
			n, ok := p.(int64)
			if !ok {
				return nil, fmt.Errorf("not a number: %T", p)
			}
			total += n
		}
		return map[string]any{"total": total}, nil
	})
	pool := New(context.Background(), sched, sources)
	defer pool.Close()

	var got Result
	done := false
	pool.Exec(NewTask("sum", []any{1, 2, 39}, func(r Result) { got, done = r, true }))
	drainUntil(t, sched, func() bool { return done })

	require.NoError(t, got.Err)
	assert.Equal(t, map[string]any{"total": int64(42)}, got.Value)
}

func TestPool_UnmatchedCompletionIsDropped(t *testing.T) {
	sched := scheduler.NewManual()
	pool := New(context.Background(), sched, NewSources())
	w := &worker{id: 9, busy: true}

	data, err := State{ID: 987654, Source: "ghost"}.encode()
	require.NoError(t, err)

	assert.NotPanics(t, func() { pool.complete(w, data) })
	sched.RunUntilIdle()
	assert.False(t, w.busy)
	assert.Equal(t, Stats{}, pool.Stats())
}

func TestPool_CloseFailsPendingTasks(t *testing.T) {
	sched := scheduler.NewManual()
	pool := New(context.Background(), sched, NewSources())

	var errs []error
	pool.Exec(NewTask("x", nil, func(r Result) { errs = append(errs, r.Err) }))
	pool.Close()
	sched.RunUntilIdle()

	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "closed")
}

func TestNewTask_IDsAreMonotonic(t *testing.T) {
	a := NewTask("x", nil, nil)
	b := NewTask("x", nil, nil)
	assert.Greater(t, b.ID(), a.ID())
}
