package plugin

import (
	"context"

	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
)

// Base gives a plugin its identity and no-op hooks. Embed it by value.
type Base struct {
	serviceName string
	env         Env
}

// Bind implements Binder.
func (b *Base) Bind(serviceName string, env Env) {
	b.serviceName = serviceName
	b.env = env
}

// ServiceName returns the service the plugin was instantiated for.
func (b *Base) ServiceName() string { return b.serviceName }

// Config returns the loaded configuration. It may be nil in tests.
func (b *Base) Config() *config.Config { return b.env.Config }

// Page returns the host page.
func (b *Base) Page() host.Page { return b.env.Page }

// WebView returns the host webview.
func (b *Base) WebView() host.WebView { return b.env.WebView }

// Audio returns the host audio manager.
func (b *Base) Audio() host.Audio { return b.env.Audio }

// Scheduler returns the page's run loop.
func (b *Base) Scheduler() scheduler.Scheduler { return b.env.Scheduler }

func (b *Base) OnCreate(context.Context) {}
func (b *Base) OnStart(context.Context) {}
func (b *Base) OnStop(context.Context) {}
func (b *Base) OnLink(context.Context, string) {}
func (b *Base) OnDestroy(context.Context) {}
func (b *Base) OnShow(context.Context) {}
func (b *Base) OnHide(context.Context) {}
func (b *Base) OnTrimMemory(context.Context) {}

func (b *Base) ShouldAllowRequest(context.Context, string) Opinion { return NoOpinion }
func (b *Base) ShouldAllowNavigation(context.Context, string) Opinion { return NoOpinion }
func (b *Base) ShouldOpenExternalURL(context.Context, string) Opinion { return NoOpinion }

func (b *Base) OnOverrideURLLoading(context.Context, string) bool { return false }
