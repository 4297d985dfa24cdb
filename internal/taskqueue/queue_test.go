package taskqueue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Deliver that holds completions until the test releases them.
type recorder struct {
	mu      sync.Mutex
	order   []string
	pending []func()
	active  int
	maxSeen int
}

func (r *recorder) deliver(d Delivery, done func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, d.CallbackID)
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.pending = append(r.pending, func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
		done()
	})
}

func (r *recorder) release() bool {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return false
	}
	fn := r.pending[0]
	r.pending = r.pending[1:]
	r.mu.Unlock()
	fn()
	return true
}

func delivery(id string) Delivery {
	return Delivery{CallbackID: id, Envelope: result.Envelope{Status: result.StatusOK}}
}

func TestQueue_DrainsInOrderWithoutOverlap(t *testing.T) {
	// --- Arrange ---
	sched := scheduler.NewManual()
	rec := &recorder{}
	q := New(sched, rec.deliver)

	// --- Act ---
	const n = 5
	for i := 0; i < n; i++ {
		q.Enqueue(delivery(fmt.Sprintf("cb%d", i)))
	}
	assert.Equal(t, 1, sched.Pending(), "only one drain tick is scheduled")

	for i := 0; i < n; i++ {
		sched.RunUntilIdle()
		require.Len(t, rec.order, i+1, "delivery %d must start only after %d completed", i+1, i)
		assert.True(t, q.InFlight())
		sched.RunUntilIdle()
		require.Len(t, rec.order, i+1, "no second delivery while one is in flight")
		require.True(t, rec.release())
	}
	sched.RunUntilIdle()

	// --- Assert ---
	assert.Equal(t, []string{"cb0", "cb1", "cb2", "cb3", "cb4"}, rec.order)
	assert.Equal(t, 1, rec.maxSeen)
	assert.False(t, q.InFlight())
	assert.Zero(t, q.Len())
	assert.Zero(t, sched.Pending(), "drain loop goes idle when empty")
}

func TestQueue_RestartsAfterIdle(t *testing.T) {
	sched := scheduler.NewManual()
	rec := &recorder{}
	q := New(sched, rec.deliver)

	q.Enqueue(delivery("a"))
	sched.RunUntilIdle()
	require.True(t, rec.release())
	sched.RunUntilIdle()
	assert.Zero(t, sched.Pending())

	q.Enqueue(delivery("b"))
	assert.Equal(t, 1, sched.Pending())
	sched.RunUntilIdle()
	assert.Equal(t, []string{"a", "b"}, rec.order)
}

func TestQueue_DoubleDoneIsIgnored(t *testing.T) {
	sched := scheduler.NewManual()
	var dones []func()
	var got []string
	q := New(sched, func(d Delivery, done func()) {
		got = append(got, d.CallbackID)
		dones = append(dones, done)
	})

	q.Enqueue(delivery("a"))
	q.Enqueue(delivery("b"))
	q.Enqueue(delivery("c"))
	sched.RunUntilIdle()
	dones[0]()
	dones[0]()
	sched.RunUntilIdle()

	assert.Equal(t, []string{"a", "b"}, got)
	assert.True(t, q.InFlight())
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ConcurrentEnqueueKeepsEveryItem(t *testing.T) {
	loop := scheduler.NewLoop()
	ctx := t.Context()
	go loop.Run(ctx)
	defer loop.Stop()

	var mu sync.Mutex
	var got []string
	all := make(chan struct{})
	const producers, each = 4, 50
	q := New(loop, func(d Delivery, done func()) {
		mu.Lock()
		got = append(got, d.CallbackID)
		n := len(got)
		mu.Unlock()
		go done()
		if n == producers*each {
			close(all)
		}
	})

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Enqueue(delivery(fmt.Sprintf("p%d-%03d", p, i)))
			}
		}()
	}
	wg.Wait()
	<-all

	mu.Lock()
	defer mu.Unlock()
	last := map[byte]string{}
	for _, id := range got {
		prev, ok := last[id[1]]
		if ok {
			assert.Less(t, prev, id, "per-producer order must be preserved")
		}
		last[id[1]] = id
	}
}

func TestQueue_PanickingDeliveryDoesNotWedge(t *testing.T) {
	// --- Arrange ---
	loop := scheduler.NewLoop()
	go loop.Run(t.Context())
	defer loop.Stop()

	delivered := make(chan string, 1)
	q := New(loop, func(d Delivery, done func()) {
		if d.CallbackID == "boom" {
			panic("host fault")
		}
		delivered <- d.CallbackID
		done()
	})

	// --- Act ---
	q.Enqueue(delivery("boom"))
	q.Enqueue(delivery("next"))

	// --- Assert ---
	select {
	case id := <-delivered:
		assert.Equal(t, "next", id)
	case <-time.After(time.Second):
		t.Fatalf("queue stalled after a panicking delivery: inFlight=%t len=%d", q.InFlight(), q.Len())
	}
	require.Eventually(t, func() bool { return !q.InFlight() && q.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestQueue_PanicAfterDoneCompletesOnce(t *testing.T) {
	sched := scheduler.NewManual()
	var order []string
	q := New(sched, func(d Delivery, done func()) {
		order = append(order, d.CallbackID)
		done()
		if d.CallbackID == "a" {
			panic("late fault")
		}
	})

	q.Enqueue(delivery("a"))
	q.Enqueue(delivery("b"))
	sched.RunUntilIdle()

	assert.Equal(t, []string{"a", "b"}, order)
	assert.False(t, q.InFlight())
	assert.Zero(t, sched.Pending())
}
