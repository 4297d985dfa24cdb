// Package callback binds a pending bridge call to its eventual result.
//
// A Context is handed to the plugin action that serves a call. The action
// finishes it with Success or Error; a context flagged KeepCallback stays open
// and may push any number of further results (event channels).
package callback

import (
	"context"
	"log/slog"
	"sync"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/result"
)

// Sink receives results addressed to a callback id. The registry implements
// it by forwarding to the registered message listener.
type Sink interface {
	SendPluginResult(r *result.PluginResult, callbackID string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(r *result.PluginResult, callbackID string)

// SendPluginResult implements Sink.
func (f SinkFunc) SendPluginResult(r *result.PluginResult, callbackID string) {
	f(r, callbackID)
}

// Context is the handle correlating one inbound call with its results.
// It is safe for use from multiple goroutines.
type Context struct {
	id     string
	sink   Sink
	logger *slog.Logger

	mu       sync.Mutex
	keep     bool
	done     bool
	onFinish func(*Context)
}

// New creates a context for callbackID whose results go to sink.
func New(ctx context.Context, callbackID string, sink Sink) *Context {
	return &Context{
		id:     callbackID,
		sink:   sink,
		logger: ctxlog.FromContext(ctx).With("callbackID", callbackID),
	}
}

// CallbackID returns the opaque token the web side used for the call.
func (c *Context) CallbackID() string { return c.id }

// KeepCallback reports whether results sent through Success and Error keep
// the context open.
func (c *Context) KeepCallback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keep
}

// SetKeepCallback marks the context as long-lived (or not).
func (c *Context) SetKeepCallback(keep bool) {
	c.mu.Lock()
	c.keep = keep
	c.mu.Unlock()
}

// Done reports whether a terminal result has been sent.
func (c *Context) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Success sends an OK result carrying payload.
func (c *Context) Success(payload result.Payload) bool {
	return c.send(result.StatusOK, payload)
}

// Error sends an ERROR result carrying payload.
func (c *Context) Error(payload result.Payload) bool {
	return c.send(result.StatusError, payload)
}

func (c *Context) send(status result.Status, payload result.Payload) bool {
	r := result.New(status, payload)
	r.KeepCallback = c.KeepCallback()
	return c.SendPluginResult(r)
}

// SendPluginResult forwards r to the sink. A result without KeepCallback
// finishes the context; anything sent after that is logged and dropped, and
// false is returned.
func (c *Context) SendPluginResult(r *result.PluginResult) bool {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		c.logger.Warn("Result sent on a finished callback context, dropping.", "status", r.Status)
		return false
	}
	var finish func(*Context)
	if !r.KeepCallback {
		c.done = true
		finish = c.onFinish
	}
	c.mu.Unlock()

	c.sink.SendPluginResult(r, c.id)
	if finish != nil {
		finish(c)
	}
	return true
}
