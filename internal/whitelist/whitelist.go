package whitelist

import (
	"context"
	"net/url"

	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
)

// List is a set of compiled patterns. Adding the literal "*" switches the
// list to match-everything mode, after which further entries are ignored.
type List struct {
	all      bool
	patterns []*Pattern
}

// Add compiles and appends a pattern.
func (l *List) Add(raw string) error {
	if l.all {
		return nil
	}
	if raw == "*" {
		l.all = true
		l.patterns = nil
		return nil
	}
	ps, err := Compile(raw)
	if err != nil {
		return err
	}
	l.patterns = append(l.patterns, ps...)
	return nil
}

// MatchesAll reports whether the list is in match-everything mode.
func (l *List) MatchesAll() bool { return l.all }

// Len returns the number of compiled patterns.
func (l *List) Len() int { return len(l.patterns) }

// IsURLWhiteListed reports whether rawURL is covered by the list. Unparseable
// URLs are never whitelisted unless the list matches everything.
func (l *List) IsURLWhiteListed(rawURL string) bool {
	if l.all {
		return true
	}
	if len(l.patterns) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, p := range l.patterns {
		if p.Matches(u) {
			return true
		}
	}
	return false
}

// Whitelist holds the three policy lists built from configuration.
type Whitelist struct {
	Navigations List
	Intents     List
	Requests    List
}

// New builds the lists from cfg. Invalid entries are logged and skipped.
func New(ctx context.Context, cfg *config.Config) *Whitelist {
	w := &Whitelist{}
	if cfg == nil {
		return w
	}
	logger := ctxlog.FromContext(ctx)
	add := func(list *List, kind string, entries []string) {
		for _, e := range entries {
			if err := list.Add(e); err != nil {
				logger.Error("Failed to parse whitelist entry.", "list", kind, "pattern", e, "error", err)
			}
		}
	}
	add(&w.Navigations, "allow_navigation", cfg.AllowNavigation)
	add(&w.Intents, "allow_intent", cfg.AllowIntent)
	add(&w.Requests, "access", cfg.Access)
	logger.Debug("Whitelist built.",
		"navigations", w.Navigations.Len(),
		"intents", w.Intents.Len(),
		"requests", w.Requests.Len())
	return w
}

// ShouldAllowNavigation allows URLs on the navigation list.
func (w *Whitelist) ShouldAllowNavigation(rawURL string) plugin.Opinion {
	if w.Navigations.IsURLWhiteListed(rawURL) {
		return plugin.Allow
	}
	return plugin.NoOpinion
}

// ShouldAllowRequest allows URLs on the navigation or the access list.
func (w *Whitelist) ShouldAllowRequest(rawURL string) plugin.Opinion {
	if w.ShouldAllowNavigation(rawURL) == plugin.Allow || w.Requests.IsURLWhiteListed(rawURL) {
		return plugin.Allow
	}
	return plugin.NoOpinion
}

// ShouldOpenExternalURL allows URLs on the intent list.
func (w *Whitelist) ShouldOpenExternalURL(rawURL string) plugin.Opinion {
	if w.Intents.IsURLWhiteListed(rawURL) {
		return plugin.Allow
	}
	return plugin.NoOpinion
}
