package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_RunsInPostOrder(t *testing.T) {
	m := NewManual()
	var got []int
	for i := 0; i < 3; i++ {
		m.Post(func() { got = append(got, i) })
	}
	assert.Equal(t, 3, m.Pending())
	assert.Nil(t, got, "nothing runs before Step")

	require.True(t, m.Step())
	assert.Equal(t, []int{0}, got)

	assert.Equal(t, 2, m.RunUntilIdle())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.False(t, m.Step())
}

func TestManual_RunUntilIdleIncludesNestedPosts(t *testing.T) {
	m := NewManual()
	var got []string
	m.Post(func() {
		got = append(got, "outer")
		m.Post(func() { got = append(got, "inner") })
	})
	assert.Equal(t, 2, m.RunUntilIdle())
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestLoop_PreservesOrderAcrossGoroutines(t *testing.T) {
	// --- Arrange ---
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	const perProducer = 100
	var mu sync.Mutex
	seen := map[int][]int{}
	var wg sync.WaitGroup

	// --- Act ---
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				l.Post(func() {
					mu.Lock()
					seen[p] = append(seen[p], i)
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()

	finished := make(chan struct{})
	l.Post(func() { close(finished) })
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not drain")
	}

	// --- Assert ---
	mu.Lock()
	defer mu.Unlock()
	for p := 0; p < 4; p++ {
		require.Len(t, seen[p], perProducer)
		for i, v := range seen[p] {
			assert.Equal(t, i, v, "producer %d out of order", p)
		}
	}

	l.Stop()
	require.NoError(t, <-done)
}

func TestLoop_RecoversPanics(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { panic("boom") })
	l.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("loop stopped after panic")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	l.Post(func() { t.Error("posted after stop must not run") })
	assert.Zero(t, l.Pending())
}
