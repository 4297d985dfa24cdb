package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/yunosbridge/internal/bridge"
	"github.com/specialistvlad/yunosbridge/internal/bridge/remote"
	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/luaplugin"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
	"github.com/specialistvlad/yunosbridge/internal/taskqueue"
	"github.com/specialistvlad/yunosbridge/internal/workerpool"
	"github.com/specialistvlad/yunosbridge/modules/core"
)

// Host bundles the native services the app runs against.
type Host struct {
	Page    host.Page
	WebView host.WebView
	Audio   host.Audio
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	host    *Host
	modules []registry.Module
	sources map[string]workerpool.Source
}

// WithHost replaces the headless host.
func WithHost(h Host) Option {
	return func(o *options) { o.host = &h }
}

// WithModules registers extra plugin modules after the built-in ones.
func WithModules(modules ...registry.Module) Option {
	return func(o *options) { o.modules = append(o.modules, modules...) }
}

// WithSource registers a Go task source for the worker pool.
func WithSource(name string, src workerpool.Source) Option {
	return func(o *options) {
		if o.sources == nil {
			o.sources = make(map[string]workerpool.Source)
		}
		o.sources[name] = src
	}
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config
	appCfg *config.Config
	host   Host

	loop     *scheduler.Loop
	registry *registry.Registry
	bridge   *bridge.Bridge
	pool     *workerpool.Pool
	webview  taskqueue.Deliver
	remote   *remote.Client

	httpServer *http.Server
}

// NewApp loads the app configuration through loader and wires the bridge.
// Nothing runs until Run is called.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	appCfg, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.LogLevel == "" {
		if pref := appCfg.GetPreferenceValue("LogLevel", ""); pref != "" {
			logger = newLogger(pref, cfg.LogFormat, outW)
			ctx = ctxlog.WithLogger(context.Background(), logger)
		}
	}
	logger.Debug("Configuration loaded.", "name", appCfg.Name, "features", len(appCfg.Features))

	a := &App{
		outW:   outW,
		logger: logger,
		ctx:    ctx,
		config: cfg,
		appCfg: appCfg,
		loop:   scheduler.NewLoop(),
	}

	if o.host != nil {
		a.host = *o.host
	} else {
		headless := host.NewHeadless(logger)
		a.host = Host{Page: headless, WebView: headless, Audio: headless}
	}
	a.host.Page = &stoppingPage{Page: a.host.Page, stop: a.loop.Stop}

	scripts := luaplugin.NewResolver(cfg.PluginRoot)
	sources := workerpool.NewSources()
	for name, src := range o.sources {
		sources.Register(name, src)
	}
	sources.AddResolver(scripts)
	a.pool = workerpool.New(ctx, a.loop, sources, workerpool.WithMaxWorkers(cfg.WorkerCount))

	a.registry = registry.New(ctx, registry.Options{
		Env: plugin.Env{
			Config:    appCfg,
			Page:      a.host.Page,
			WebView:   a.host.WebView,
			Audio:     a.host.Audio,
			Scheduler: a.loop,
		},
		Resolvers:             []registry.Resolver{scripts},
		ReportExecutionFaults: cfg.ReportExecutionFaults,
	})
	modules := append(builtinModules(a.pool), o.modules...)
	for _, mod := range modules {
		mod.Register(a.registry)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	a.registry.AddService(ctx, core.ServiceName, core.ModulePath, true)
	a.registry.AddServices(ctx, appCfg)

	a.webview = bridge.WebViewDeliverer(ctx, a.host.WebView)
	a.bridge = bridge.New(ctx, a.loop, a.registry, a.deliver)
	a.bridge.Attach(ctx)

	return a, nil
}

// deliver sends results to the remote peer when one is connected, and into
// the webview otherwise.
func (a *App) deliver(d taskqueue.Delivery, done func()) {
	if a.remote != nil {
		a.remote.Deliver(d, done)
		return
	}
	a.webview(d, done)
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// AppConfig returns the loaded app configuration.
func (a *App) AppConfig() *config.Config {
	return a.appCfg
}

// StartURL is the page loaded when the app starts.
func (a *App) StartURL() string {
	src := a.appCfg.ContentSrc
	if src == "" {
		src = "index.html"
	}
	return registry.PageScheme + src
}

// stoppingPage ends the run loop when the page is stopped.
type stoppingPage struct {
	host.Page
	stop func()
}

func (p *stoppingPage) Stop() {
	p.Page.Stop()
	p.stop()
}
