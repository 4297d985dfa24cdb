// Package tasks exposes the background task pool to the web side.
package tasks

import (
	"context"
	"errors"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/workerpool"
)

// ModulePath is the module path the factory is registered under.
const ModulePath = "builtin/tasks"

// Module registers a plugin factory bound to Pool.
type Module struct {
	Pool *workerpool.Pool
}

// Register implements registry.Module.
func (m Module) Register(r *registry.Registry) {
	r.RegisterFactory(ModulePath, func(context.Context) (plugin.Plugin, error) {
		if m.Pool == nil {
			return nil, errors.New("tasks module has no worker pool")
		}
		return &Plugin{pool: m.Pool}, nil
	})
}

// Plugin submits tasks to the pool and answers with their results.
type Plugin struct {
	plugin.Base
	pool *workerpool.Pool
}

// Actions implements plugin.Plugin.
func (p *Plugin) Actions() plugin.Actions {
	return plugin.Actions{"run": p.run}
}

// run takes [source, params...]. The call resolves once the task finishes:
// with its value as JSON, or with the error text.
func (p *Plugin) run(ctx context.Context, cb *callback.Context, args plugin.Args) error {
	source := args.String(0)
	if source == "" {
		cb.Error(result.String("task source is required"))
		return nil
	}
	params := args.Values()[1:]
	logger := ctxlog.FromContext(ctx)

	task := workerpool.NewTask(source, params, func(r workerpool.Result) {
		if r.Err != nil {
			logger.Warn("Task failed.", "source", source, "error", r.Err)
			cb.Error(result.String(r.Err.Error()))
			return
		}
		cb.Success(result.JSON(r.Value))
	})
	logger.Debug("Task submitted.", "source", source, "task", task.ID())
	p.pool.Exec(task)
	return nil
}
