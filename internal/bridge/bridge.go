// Package bridge connects web content to the registry. Inbound calls arrive
// through Exec; results come back from the registry's message listener, wait
// their turn in a taskqueue and are handed to a delivery function, such as
// evaluating program text in the webview.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
	"github.com/specialistvlad/yunosbridge/internal/taskqueue"
)

// ErrParseFault marks an inbound call whose arguments could not be parsed.
// Such calls are logged and dropped.
var ErrParseFault = errors.New("parse fault")

// Dispatcher is the part of the registry the bridge calls into.
type Dispatcher interface {
	Dispatch(ctx context.Context, service, action, callbackID string, args plugin.Args) plugin.Outcome
	RegisterMsgListener(ctx context.Context, l registry.Listener)
}

// Bridge routes calls in and results out.
type Bridge struct {
	sched  scheduler.Scheduler
	disp   Dispatcher
	queue  *taskqueue.Queue
	logger *slog.Logger
}

// New creates a bridge that dispatches on sched and delivers results with
// deliver, one at a time.
func New(ctx context.Context, sched scheduler.Scheduler, disp Dispatcher, deliver taskqueue.Deliver) *Bridge {
	logger := ctxlog.FromContext(ctx).With("component", "bridge")
	return &Bridge{
		sched:  sched,
		disp:   disp,
		queue:  taskqueue.New(sched, deliver, taskqueue.WithLogger(logger)),
		logger: logger,
	}
}

// Queue returns the delivery queue.
func (b *Bridge) Queue() *taskqueue.Queue { return b.queue }

// Exec is the web side's call entry point. It returns immediately; the call
// is dispatched on the scheduler and its result arrives through the message
// listener. Arguments that are not a JSON array make it a parse fault: the
// call is logged, dropped and the error returned.
func (b *Bridge) Exec(ctx context.Context, service, action, callbackID, argsJSON string) error {
	args, err := plugin.ParseArgs(argsJSON)
	if err != nil {
		err = fmt.Errorf("%w: %s.%s: %w", ErrParseFault, service, action, err)
		b.logger.Error("Failed to parse args from DOM, dropping call.",
			"service", service, "action", action, "callbackID", callbackID, "error", err)
		return err
	}
	b.sched.Post(func() {
		b.disp.Dispatch(ctx, service, action, callbackID, args)
	})
	return nil
}

// Attach installs the bridge as the dispatcher's message listener.
func (b *Bridge) Attach(ctx context.Context) {
	b.disp.RegisterMsgListener(ctx, b.onResult)
}

func (b *Bridge) onResult(r *result.PluginResult, callbackID string) {
	env, err := r.Encode()
	if err != nil {
		b.logger.Error("Failed to encode plugin result.", "callbackID", callbackID, "error", err)
	}
	b.queue.Enqueue(taskqueue.Delivery{CallbackID: callbackID, Envelope: env})
}
