// Package plugin defines what a service implementation looks like to the
// registry: an explicit action map plus optional lifecycle and navigation
// hooks. Implementations usually embed Base, which supplies no-op hooks and
// access to the configuration and host services.
package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/host"
	"github.com/specialistvlad/yunosbridge/internal/scheduler"
)

// ActionFunc serves one named action. Returning ErrInvalidAction reports the
// call as an invalid action; any other error is an execution fault.
type ActionFunc func(ctx context.Context, cb *callback.Context, args Args) error

// Actions maps action names to handlers.
type Actions map[string]ActionFunc

// ErrInvalidAction is returned by an action that rejects its arguments the
// way an unknown action would be rejected.
var ErrInvalidAction = errors.New("invalid action")

// Plugin is a service implementation.
type Plugin interface {
	Actions() Actions
}

// Env is what a plugin gets to see of the running page.
type Env struct {
	Config    *config.Config
	Page      host.Page
	WebView   host.WebView
	Audio     host.Audio
	// Scheduler is the page's run loop. Work started off the loop, such as
	// timers, must post back onto it before touching the host.
	Scheduler scheduler.Scheduler
}

// Binder is implemented by Base. The registry uses it to hand the plugin its
// service name and environment before Initialize runs.
type Binder interface {
	Bind(serviceName string, env Env)
}

// Initializer is implemented by plugins with custom setup.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Lifecycle is the set of page events fanned out to every live plugin.
type Lifecycle interface {
	OnCreate(ctx context.Context)
	OnStart(ctx context.Context)
	OnStop(ctx context.Context)
	OnLink(ctx context.Context, link string)
	OnDestroy(ctx context.Context)
	OnShow(ctx context.Context)
	OnHide(ctx context.Context)
	OnTrimMemory(ctx context.Context)
}

// Resetter is implemented by plugins that hold page-bound state which must
// be dropped when new content is loaded into the same webview.
type Resetter interface {
	OnReset(ctx context.Context)
}

// NavigationPolicy lets a plugin decide on URL loading. The first plugin
// returning a decided Opinion wins.
type NavigationPolicy interface {
	ShouldAllowRequest(ctx context.Context, url string) Opinion
	ShouldAllowNavigation(ctx context.Context, url string) Opinion
	ShouldOpenExternalURL(ctx context.Context, url string) Opinion
}

// URLOverrider lets a plugin take over a URL load entirely.
type URLOverrider interface {
	OnOverrideURLLoading(ctx context.Context, url string) bool
}

// PrivateInitialize binds p to serviceName and env, then runs its
// Initialize hook if it has one.
func PrivateInitialize(ctx context.Context, p Plugin, serviceName string, env Env) error {
	if b, ok := p.(Binder); ok {
		b.Bind(serviceName, env)
	}
	if in, ok := p.(Initializer); ok {
		if err := in.Initialize(ctx); err != nil {
			return fmt.Errorf("initializing %s: %w", serviceName, err)
		}
	}
	return nil
}

// ValidateActions rejects action maps with empty names or nil handlers.
func ValidateActions(actions Actions) error {
	var errs []error
	for name, fn := range actions {
		if name == "" {
			errs = append(errs, errors.New("action with empty name"))
		}
		if fn == nil {
			errs = append(errs, fmt.Errorf("action %q has a nil handler", name))
		}
	}
	return errors.Join(errs...)
}
