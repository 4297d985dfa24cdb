package core

import (
	"context"
	"strings"
	"time"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/tidwall/gjson"
)

// loadProps are the loadUrl options. Keys are matched case-insensitively
// and values of the wrong type are ignored.
type loadProps struct {
	wait time.Duration
	opts host.LoadOptions
}

func parseLoadProps(ctx context.Context, props gjson.Result) loadProps {
	var lp loadProps
	if !props.IsObject() {
		return lp
	}
	props.ForEach(func(key, value gjson.Result) bool {
		switch strings.ToLower(key.String()) {
		case "wait":
			if value.Type == gjson.Number {
				lp.wait = time.Duration(value.Int()) * time.Millisecond
			}
		case "openexternal":
			if value.IsBool() {
				lp.opts.OpenExternal = value.Bool()
			}
		case "clearhistory":
			if value.IsBool() {
				lp.opts.ClearHistory = value.Bool()
			}
		case "loadurltimeoutvalue":
			if value.Type == gjson.Number {
				lp.opts.Timeout = time.Duration(value.Int()) * time.Millisecond
			}
		case "loadingdialog":
			if value.Type == gjson.String {
				ctxlog.FromContext(ctx).Warn("Loading dialog is not supported.")
			}
		}
		return true
	})
	return lp
}

// loadURL takes [url, props]. A positive wait delays the load; a later
// loadUrl or cancelLoadUrl replaces or drops the delayed one. The timer only
// posts the load back onto the page's scheduler.
func (p *Plugin) loadURL(ctx context.Context, _ *callback.Context, args plugin.Args) error {
	if args.Len() != 2 {
		ctxlog.FromContext(ctx).Error("loadUrl expects [url, props].", "args", args.Raw())
		return plugin.ErrInvalidAction
	}
	url := args.String(0)
	lp := parseLoadProps(ctx, args.Get(1))
	wv := p.WebView()

	p.cancelPendingLoad()
	if lp.wait <= 0 {
		wv.ShowWebPage(url, lp.opts)
		return nil
	}

	sched := p.Scheduler()
	p.mu.Lock()
	var t *time.Timer
	t = time.AfterFunc(lp.wait, func() {
		sched.Post(func() {
			p.mu.Lock()
			current := p.pendingLoad == t
			if current {
				p.pendingLoad = nil
			}
			p.mu.Unlock()
			if current {
				wv.ShowWebPage(url, lp.opts)
			}
		})
	})
	p.pendingLoad = t
	p.mu.Unlock()
	return nil
}

func (p *Plugin) cancelLoadURL(ctx context.Context, _ *callback.Context, _ plugin.Args) error {
	if p.cancelPendingLoad() {
		ctxlog.FromContext(ctx).Debug("Delayed page load cancelled.")
	}
	return nil
}

func (p *Plugin) cancelPendingLoad() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingLoad == nil {
		return false
	}
	p.pendingLoad.Stop()
	p.pendingLoad = nil
	return true
}
