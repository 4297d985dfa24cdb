package registry

import (
	"context"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
)

// fanOut calls hook on every live plugin that implements plugin.Lifecycle.
// A panicking hook is logged and the remaining plugins still get the event.
func (r *Registry) fanOut(ctx context.Context, event string, hook func(plugin.Lifecycle)) {
	r.each(ctx, event, func(p plugin.Plugin) {
		if lc, ok := p.(plugin.Lifecycle); ok {
			hook(lc)
		}
	})
}

func (r *Registry) each(ctx context.Context, event string, fn func(plugin.Plugin)) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Lifecycle event received.", "event", event)
	for _, np := range r.livePlugins() {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Recovered panic in lifecycle hook.", "event", event, "service", np.service, "panic", rec)
				}
			}()
			fn(np.plugin)
		}()
	}
}

// OnCreate forwards the host activity creation to live plugins.
func (r *Registry) OnCreate(ctx context.Context) {
	r.fanOut(ctx, "onCreate", func(p plugin.Lifecycle) { p.OnCreate(ctx) })
}

// OnStart tells live plugins the page became visible to the user.
func (r *Registry) OnStart(ctx context.Context) {
	r.fanOut(ctx, "onStart", func(p plugin.Lifecycle) { p.OnStart(ctx) })
}

// OnStop tells live plugins the page is no longer visible.
func (r *Registry) OnStop(ctx context.Context) {
	r.fanOut(ctx, "onStop", func(p plugin.Lifecycle) { p.OnStop(ctx) })
}

// OnLink hands an incoming link to live plugins.
func (r *Registry) OnLink(ctx context.Context, link string) {
	r.fanOut(ctx, "onLink", func(p plugin.Lifecycle) { p.OnLink(ctx, link) })
}

// OnDestroy tells live plugins the page is going away.
func (r *Registry) OnDestroy(ctx context.Context) {
	r.fanOut(ctx, "onDestroy", func(p plugin.Lifecycle) { p.OnDestroy(ctx) })
}

// OnShow tells live plugins the page came to the foreground.
func (r *Registry) OnShow(ctx context.Context) {
	r.fanOut(ctx, "onShow", func(p plugin.Lifecycle) { p.OnShow(ctx) })
}

// OnHide tells live plugins the page went to the background.
func (r *Registry) OnHide(ctx context.Context) {
	r.fanOut(ctx, "onHide", func(p plugin.Lifecycle) { p.OnHide(ctx) })
}

// OnTrimMemory asks live plugins to release what they can.
func (r *Registry) OnTrimMemory(ctx context.Context) {
	r.fanOut(ctx, "onTrimMemory", func(p plugin.Lifecycle) { p.OnTrimMemory(ctx) })
}

// OnReset tells plugins implementing plugin.Resetter that the page content
// is being replaced while the plugin instances stay alive.
func (r *Registry) OnReset(ctx context.Context) {
	r.each(ctx, "onReset", func(p plugin.Plugin) {
		if rs, ok := p.(plugin.Resetter); ok {
			rs.OnReset(ctx)
		}
	})
}
