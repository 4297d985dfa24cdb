package registry

import (
	"context"
	"strings"

	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
)

// PageScheme is the host's internal page URL scheme.
const PageScheme = "page://"

// firstOpinion asks every live plugin implementing NavigationPolicy, in
// registration order, and returns the first decided answer.
func (r *Registry) firstOpinion(ctx context.Context, question string, ask func(plugin.NavigationPolicy) plugin.Opinion) (plugin.Opinion, string) {
	for _, np := range r.livePlugins() {
		pol, ok := np.plugin.(plugin.NavigationPolicy)
		if !ok {
			continue
		}
		if op := safeOpinion(ctx, np.service, question, pol, ask); op.Decided() {
			return op, np.service
		}
	}
	return plugin.NoOpinion, ""
}

func safeOpinion(ctx context.Context, service, question string, pol plugin.NavigationPolicy, ask func(plugin.NavigationPolicy) plugin.Opinion) (op plugin.Opinion) {
	defer func() {
		if rec := recover(); rec != nil {
			ctxlog.FromContext(ctx).Error("Recovered panic in policy hook.", "service", service, "hook", question, "panic", rec)
			op = plugin.NoOpinion
		}
	}()
	return ask(pol)
}

// ShouldAllowRequest decides whether the webview may fetch url. Without a
// plugin opinion blob:, data:, about:blank and page:// are allowed, file://
// is denied and everything else is allowed.
func (r *Registry) ShouldAllowRequest(ctx context.Context, url string) bool {
	op, by := r.firstOpinion(ctx, "shouldAllowRequest", func(p plugin.NavigationPolicy) plugin.Opinion {
		return p.ShouldAllowRequest(ctx, url)
	})
	if op.Decided() {
		ctxlog.FromContext(ctx).Debug("Request policy decided by plugin.", "url", url, "service", by, "opinion", op)
		return op.Allowed()
	}
	switch {
	case strings.HasPrefix(url, "blob:"), strings.HasPrefix(url, "data:"),
		strings.HasPrefix(url, "about:blank"), strings.HasPrefix(url, PageScheme):
		return true
	case strings.HasPrefix(url, "file://"):
		return false
	}
	return true
}

// ShouldAllowNavigation decides whether the webview may navigate to url.
// Without a plugin opinion only file://, about:blank and page:// are allowed.
func (r *Registry) ShouldAllowNavigation(ctx context.Context, url string) bool {
	op, by := r.firstOpinion(ctx, "shouldAllowNavigation", func(p plugin.NavigationPolicy) plugin.Opinion {
		return p.ShouldAllowNavigation(ctx, url)
	})
	if op.Decided() {
		ctxlog.FromContext(ctx).Debug("Navigation policy decided by plugin.", "url", url, "service", by, "opinion", op)
		return op.Allowed()
	}
	return strings.HasPrefix(url, "file://") || strings.HasPrefix(url, "about:blank") || strings.HasPrefix(url, PageScheme)
}

// ShouldOpenExternalURL decides whether url may be handed to another app.
// Without a plugin opinion it is denied.
func (r *Registry) ShouldOpenExternalURL(ctx context.Context, url string) bool {
	op, by := r.firstOpinion(ctx, "shouldOpenExternalUrl", func(p plugin.NavigationPolicy) plugin.Opinion {
		return p.ShouldOpenExternalURL(ctx, url)
	})
	if op.Decided() {
		ctxlog.FromContext(ctx).Debug("External URL policy decided by plugin.", "url", url, "service", by, "opinion", op)
		return op.Allowed()
	}
	return false
}

// OnOverrideURLLoading reports whether any live plugin takes over the load.
func (r *Registry) OnOverrideURLLoading(ctx context.Context, url string) bool {
	for _, np := range r.livePlugins() {
		o, ok := np.plugin.(plugin.URLOverrider)
		if !ok {
			continue
		}
		if safeOverride(ctx, np.service, o, url) {
			ctxlog.FromContext(ctx).Debug("URL loading overridden.", "url", url, "service", np.service)
			return true
		}
	}
	return false
}

func safeOverride(ctx context.Context, service string, o plugin.URLOverrider, url string) (overridden bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ctxlog.FromContext(ctx).Error("Recovered panic in override hook.", "service", service, "panic", rec)
			overridden = false
		}
	}()
	return o.OnOverrideURLLoading(ctx, url)
}

// ShouldOverrideURLLoading is the webview client's decision for a pending
// navigation. It returns false to let the webview load url and true when the
// load is handled elsewhere or blocked. URLs allowed for external opening are
// handed to the host.
func (r *Registry) ShouldOverrideURLLoading(ctx context.Context, url string) bool {
	if r.OnOverrideURLLoading(ctx, url) {
		return true
	}
	if r.ShouldAllowNavigation(ctx, url) {
		return false
	}
	if r.ShouldOpenExternalURL(ctx, url) {
		if wv := r.Env().WebView; wv != nil {
			wv.ShowWebPage(url, host.LoadOptions{OpenExternal: true})
		}
		return true
	}
	ctxlog.FromContext(ctx).Warn("Blocked (possibly sub-frame) navigation to non-allowed URL.", "url", url)
	return true
}
