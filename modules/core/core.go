// Package core is the CoreYunOS plugin backing navigator.app on the web
// side: history and page loading, hardware button plumbing, volume keys,
// the whitelist policies and the message channel used to push DOM events.
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/whitelist"
)

const (
	// ServiceName is the service id the web runtime calls.
	ServiceName = "CoreYunOS"
	// ModulePath is the module path the factory is registered under.
	ModulePath = "builtin/core"
	// PrefVolumeStream selects the stream the volume keys control.
	PrefVolumeStream = "DefaultVolumeStream"
)

// Module registers the core plugin factory and its always-on service.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterFactory(ModulePath, func(context.Context) (plugin.Plugin, error) {
		return New(), nil
	})
}

// Plugin is the core plugin.
type Plugin struct {
	plugin.Base

	mu          sync.Mutex
	whitelist   *whitelist.Whitelist
	channel     *callback.Context
	stream      host.StreamType
	boundUp     bool
	boundDown   bool
	pendingLoad *time.Timer
}

// New creates an uninitialized core plugin.
func New() *Plugin {
	return &Plugin{}
}

// Initialize builds the whitelist from the app configuration and hands the
// volume keys to the system.
func (p *Plugin) Initialize(ctx context.Context) error {
	if p.Page() == nil || p.WebView() == nil || p.Scheduler() == nil {
		return errors.New("core plugin needs a page, a webview and a scheduler")
	}
	p.whitelist = whitelist.New(ctx, p.Config())
	p.initVolumeType(ctx)
	return nil
}

// Actions implements plugin.Plugin.
func (p *Plugin) Actions() plugin.Actions {
	return plugin.Actions{
		"messageChannel":     p.messageChannel,
		"overrideBackbutton": p.overrideBackbutton,
		"overrideButton":     p.overrideButton,
		"clearHistory":       p.clearHistory,
		"backHistory":        p.backHistory,
		"exitApp":            p.exitApp,
		"loadUrl":            p.loadURL,
		"clearCache":         p.clearCache,
		"cancelLoadUrl":      p.cancelLoadURL,
	}
}

func (p *Plugin) initVolumeType(ctx context.Context) {
	stream := host.StreamVoiceCall
	if strings.EqualFold(p.Config().GetPreferenceValue(PrefVolumeStream, ""), "media") {
		stream = host.StreamMusic
	}
	ctxlog.FromContext(ctx).Debug("Volume stream selected.", "stream", stream)

	p.mu.Lock()
	p.stream = stream
	p.boundUp, p.boundDown = false, false
	p.mu.Unlock()
	p.Page().SetAdjustableAudioStream(stream)
}

// bindVolumeButtons takes the volume keys away from the system and routes
// them through onKeyDown.
func (p *Plugin) bindVolumeButtons(ctx context.Context) {
	page := p.Page()
	if _, systemOwned := page.AdjustableAudioStream(); !systemOwned {
		ctxlog.FromContext(ctx).Debug("Volume keys already controlled by the app.")
		return
	}
	page.ClearAdjustableAudioStream()
	page.OnKeyDown(p.onKeyDown)
}

func (p *Plugin) onKeyDown(code string) bool {
	var button string
	var dir host.AdjustDirection
	switch code {
	case "VolumeUp":
		button, dir = host.VolumeUpButton, host.AdjustRaise
	case "VolumeDown":
		button, dir = host.VolumeDownButton, host.AdjustLower
	default:
		return false
	}

	p.mu.Lock()
	bound := (dir == host.AdjustRaise && p.boundUp) || (dir == host.AdjustLower && p.boundDown)
	stream := p.stream
	p.mu.Unlock()

	if bound {
		p.WebView().DispatchKeyEventToDOM(button)
	} else if audio := p.Audio(); audio != nil {
		audio.AdjustStreamVolume(stream, dir, true)
	}
	return true
}

func (p *Plugin) messageChannel(ctx context.Context, cb *callback.Context, _ plugin.Args) error {
	cb.SetKeepCallback(true)
	p.mu.Lock()
	p.channel = cb
	p.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Message channel has been set.")
	return nil
}

// FireDOMEvent pushes {"action": action} to the web side over the message
// channel. It reports false when no channel has been opened yet.
func (p *Plugin) FireDOMEvent(ctx context.Context, action string) bool {
	p.mu.Lock()
	ch := p.channel
	p.mu.Unlock()
	if ch == nil {
		ctxlog.FromContext(ctx).Error("No message channel, dropping DOM event.", "action", action)
		return false
	}
	res := result.New(result.StatusOK, result.JSON(map[string]string{"action": action}))
	res.KeepCallback = true
	return ch.SendPluginResult(res)
}

func (p *Plugin) overrideBackbutton(ctx context.Context, _ *callback.Context, args plugin.Args) error {
	if args.Len() != 1 {
		ctxlog.FromContext(ctx).Error("overrideBackbutton expects one argument.", "args", args.Raw())
		return nil
	}
	p.WebView().SetButtonPlumbedToJS(host.BackButton, args.Bool(0))
	return nil
}

// overrideButton only accepts the volume buttons.
func (p *Plugin) overrideButton(ctx context.Context, _ *callback.Context, args plugin.Args) error {
	logger := ctxlog.FromContext(ctx)
	if args.Len() != 2 {
		logger.Error("overrideButton expects two arguments.", "args", args.Raw())
		return nil
	}
	override := args.Bool(1)

	var button string
	p.mu.Lock()
	switch args.String(0) {
	case "volumeup":
		button, p.boundUp = host.VolumeUpButton, override
	case "volumedown":
		button, p.boundDown = host.VolumeDownButton, override
	}
	noneBound := !p.boundUp && !p.boundDown
	p.mu.Unlock()

	if button == "" {
		logger.Warn("Unsupported button override.", "button", args.String(0))
		return nil
	}
	if override {
		p.bindVolumeButtons(ctx)
	} else if noneBound {
		p.initVolumeType(ctx)
	}
	p.WebView().SetButtonPlumbedToJS(button, override)
	return nil
}

func (p *Plugin) clearHistory(ctx context.Context, _ *callback.Context, _ plugin.Args) error {
	ctxlog.FromContext(ctx).Debug("Clear history.")
	p.WebView().ClearHistory()
	return nil
}

func (p *Plugin) backHistory(ctx context.Context, _ *callback.Context, _ plugin.Args) error {
	ctxlog.FromContext(ctx).Debug("Back history.")
	p.WebView().GoBack()
	return nil
}

func (p *Plugin) exitApp(ctx context.Context, _ *callback.Context, _ plugin.Args) error {
	ctxlog.FromContext(ctx).Debug("Exit app.")
	p.Page().Stop()
	return nil
}

func (p *Plugin) clearCache(ctx context.Context, _ *callback.Context, _ plugin.Args) error {
	ctxlog.FromContext(ctx).Debug("clearCache is not supported by the host.")
	return nil
}

// OnReset drops button bindings and returns the volume keys to the system.
func (p *Plugin) OnReset(ctx context.Context) {
	p.cancelPendingLoad()
	p.WebView().ClearBoundButtons()
	p.initVolumeType(ctx)
}

// OnDestroy stops a delayed page load.
func (p *Plugin) OnDestroy(context.Context) {
	p.cancelPendingLoad()
}

func (p *Plugin) ShouldAllowRequest(_ context.Context, url string) plugin.Opinion {
	return p.whitelist.ShouldAllowRequest(url)
}

func (p *Plugin) ShouldAllowNavigation(_ context.Context, url string) plugin.Opinion {
	return p.whitelist.ShouldAllowNavigation(url)
}

func (p *Plugin) ShouldOpenExternalURL(_ context.Context, url string) plugin.Opinion {
	return p.whitelist.ShouldOpenExternalURL(url)
}
