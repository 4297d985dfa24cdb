package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/yunosbridge/internal/bridge/remote"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/modules/core"
)

// Run starts the page and blocks until ctx is cancelled or the page stops
// itself. Plugins get OnStop and OnDestroy before Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}
	defer a.closeHealthcheckServer()

	if a.config.RemoteURL != "" {
		client, err := remote.Dial(ctx, remote.Options{
			URL:                a.config.RemoteURL,
			Namespace:          a.config.RemoteNamespace,
			InsecureSkipVerify: a.config.RemoteInsecure,
			ConnectTimeout:     a.config.RemoteConnectTimeout,
		}, a.bridge)
		if err != nil {
			return fmt.Errorf("failed to connect remote bridge: %w", err)
		}
		a.remote = client
		defer a.remote.Close()
	}

	a.loop.Post(func() {
		a.registry.Init(ctx)
		a.registry.OnCreate(ctx)
		a.registry.OnStart(ctx)
		a.host.WebView.ShowWebPage(a.StartURL(), host.LoadOptions{})
		a.logger.Info("🚀 Page started.", "url", a.StartURL(), "services", len(a.registry.Services()))
	})

	err := a.loop.Run(ctx)

	// The loop is gone; shutdown hooks run on this goroutine.
	stopCtx := context.WithoutCancel(ctx)
	a.registry.OnStop(stopCtx)
	a.registry.OnDestroy(stopCtx)
	a.pool.Close()
	a.logger.Info("🏁 Page finished.")

	if err != nil && ctx.Err() == nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// Exec is the web side's call entry point.
func (a *App) Exec(ctx context.Context, service, action, callbackID, argsJSON string) error {
	return a.bridge.Exec(ctxlog.WithLogger(ctx, a.logger), service, action, callbackID, argsJSON)
}

func (a *App) post(fn func(ctx context.Context)) {
	a.loop.Post(func() { fn(a.ctx) })
}

// OnShow forwards the page becoming visible.
func (a *App) OnShow() {
	a.post(a.registry.OnShow)
}

// OnHide forwards the page being hidden.
func (a *App) OnHide() {
	a.post(a.registry.OnHide)
}

// OnTrimMemory forwards a low-memory warning.
func (a *App) OnTrimMemory() {
	a.post(a.registry.OnTrimMemory)
}

// OnLink forwards a deep link the page was opened with.
func (a *App) OnLink(link string) {
	a.post(func(ctx context.Context) { a.registry.OnLink(ctx, link) })
}

// Navigate asks the plugins whether url may replace the current content
// and loads it if so.
func (a *App) Navigate(url string) {
	a.post(func(ctx context.Context) {
		if a.registry.ShouldOverrideURLLoading(ctx, url) {
			return
		}
		a.registry.OnReset(ctx)
		a.host.WebView.ShowWebPage(url, host.LoadOptions{})
	})
}

// PressBack pushes a back button event to the web side through the core
// plugin's message channel.
func (a *App) PressBack() {
	a.post(func(ctx context.Context) {
		if p, ok := a.registry.GetPlugin(ctx, core.ServiceName).(*core.Plugin); ok {
			p.FireDOMEvent(ctx, host.BackButton)
		}
	})
}
