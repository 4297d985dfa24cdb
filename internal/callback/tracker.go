package callback

import (
	"context"
	"sync"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
)

// Tracker keeps at most one outstanding Context per callback id.
type Tracker struct {
	sink Sink

	mu   sync.Mutex
	open map[string]*Context
}

// NewTracker creates a tracker whose contexts send to sink.
func NewTracker(sink Sink) *Tracker {
	return &Tracker{
		sink: sink,
		open: make(map[string]*Context),
	}
}

// Open creates the context for a new inbound call. If a context for the same
// id is still outstanding it is replaced and the replacement is logged.
func (t *Tracker) Open(ctx context.Context, callbackID string) *Context {
	c := New(ctx, callbackID, t.sink)
	c.onFinish = t.release

	t.mu.Lock()
	prev, exists := t.open[callbackID]
	t.open[callbackID] = c
	t.mu.Unlock()

	if exists {
		ctxlog.FromContext(ctx).Warn("Callback id reused while a previous call is outstanding.",
			"callbackID", callbackID, "previousKept", prev.KeepCallback())
	}
	return c
}

// Lookup returns the outstanding context for callbackID, if any.
func (t *Tracker) Lookup(callbackID string) (*Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.open[callbackID]
	return c, ok
}

// Outstanding returns the number of contexts that have not been finished.
func (t *Tracker) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Reset forgets every outstanding context. Called when the page reloads and
// the web side callbacks no longer exist.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.open = make(map[string]*Context)
	t.mu.Unlock()
}

func (t *Tracker) release(c *Context) {
	t.mu.Lock()
	if t.open[c.id] == c {
		delete(t.open, c.id)
	}
	t.mu.Unlock()
}
