package registry

import (
	"context"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/result"
)

// Dispatch routes one bridge call. Results always travel through the
// callback context bound to callbackID: an unknown service answers
// CLASS_NOT_FOUND_EXCEPTION and an unknown action INVALID_ACTION. Nothing
// raised by the plugin escapes.
func (r *Registry) Dispatch(ctx context.Context, service, action, callbackID string, args plugin.Args) plugin.Outcome {
	ctx = ctxlog.With(ctx, "service", service, "action", action, "callbackID", callbackID)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Dispatching call.", "args", args.Raw())

	cb := r.tracker.Open(ctx, callbackID)

	p := r.GetPlugin(ctx, service)
	if p == nil {
		logger.Error("Plugin not found.")
		cb.SendPluginResult(result.New(result.StatusClassNotFound, result.None()))
		return plugin.ClassNotFound
	}

	outcome, err := plugin.Execute(ctx, p.Actions(), action, cb, args)
	switch outcome {
	case plugin.InvalidAction:
		logger.Error("Invalid action.", "error", err)
		cb.SendPluginResult(result.New(result.StatusInvalidAction, result.None()))
	case plugin.Fault:
		logger.Error("Plugin action failed.", "error", err)
		if r.opts.ReportExecutionFaults {
			cb.Error(result.String(err.Error()))
		}
	}
	return outcome
}
