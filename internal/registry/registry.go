package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/result"
)

// Module is the interface built-in plugin modules implement to register
// their factories.
type Module interface {
	Register(r *Registry)
}

// Factory creates a fresh plugin instance.
type Factory func(ctx context.Context) (plugin.Plugin, error)

// Resolver maps a module path that has no explicit factory to one.
type Resolver interface {
	Resolve(ctx context.Context, modulePath string) (Factory, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, modulePath string) (Factory, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, modulePath string) (Factory, bool) {
	return f(ctx, modulePath)
}

// Listener receives every result addressed to the web side.
type Listener func(r *result.PluginResult, callbackID string)

// Options configures a Registry.
type Options struct {
	// Env is handed to every plugin on instantiation.
	Env plugin.Env
	// Resolvers are consulted, in order, for module paths without a
	// registered factory.
	Resolvers []Resolver
	// ReportExecutionFaults makes a failing action answer its caller with
	// an ERROR result. By default the fault is only logged and the call
	// never resolves.
	ReportExecutionFaults bool
}

// Registry holds service descriptors, factories and live plugin instances.
// Its lock is never held while plugin code runs.
type Registry struct {
	opts    Options
	tracker *callback.Tracker
	logger  *slog.Logger

	mu        sync.Mutex
	order     []string
	services  map[string]config.Service
	factories map[string]Factory
	live      map[string]plugin.Plugin
	listener  Listener
}

// New creates an empty registry. Results sent without a request context are
// logged through the logger carried by ctx.
func New(ctx context.Context, opts Options) *Registry {
	r := &Registry{
		opts:      opts,
		logger:    ctxlog.FromContext(ctx).With("component", "registry"),
		services:  make(map[string]config.Service),
		factories: make(map[string]Factory),
		live:      make(map[string]plugin.Plugin),
	}
	r.tracker = callback.NewTracker(r)
	return r
}

// SetEnv replaces the environment handed to plugins instantiated from now on.
func (r *Registry) SetEnv(env plugin.Env) {
	r.mu.Lock()
	r.opts.Env = env
	r.mu.Unlock()
}

// Env returns the current plugin environment.
func (r *Registry) Env() plugin.Env {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Env
}

// Tracker exposes the outstanding callback contexts.
func (r *Registry) Tracker() *callback.Tracker { return r.tracker }

// AddService registers or replaces a service descriptor. A replaced service
// keeps its position in registration order. Live instances are unaffected.
func (r *Registry) AddService(ctx context.Context, serviceID, modulePath string, autoStart bool) {
	ctxlog.FromContext(ctx).Debug("Adding service.", "service", serviceID, "module", modulePath, "autoStart", autoStart)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[serviceID]; !exists {
		r.order = append(r.order, serviceID)
	}
	r.services[serviceID] = config.Service{ID: serviceID, ModulePath: modulePath, AutoStart: autoStart}
}

// AddServices registers every service declared in cfg.
func (r *Registry) AddServices(ctx context.Context, cfg *config.Config) {
	for _, svc := range cfg.Services() {
		r.AddService(ctx, svc.ID, svc.ModulePath, svc.AutoStart)
	}
}

// Services returns the registered descriptors in registration order.
func (r *Registry) Services() []config.Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]config.Service, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.services[id])
	}
	return out
}

// RegisterFactory binds modulePath to f, replacing any earlier binding.
func (r *Registry) RegisterFactory(modulePath string, f Factory) {
	r.mu.Lock()
	r.factories[modulePath] = f
	r.mu.Unlock()
}

// RegisterMsgListener installs the listener that receives every result.
func (r *Registry) RegisterMsgListener(ctx context.Context, l Listener) {
	r.mu.Lock()
	replaced := r.listener != nil
	r.listener = l
	r.mu.Unlock()
	if replaced {
		ctxlog.FromContext(ctx).Debug("Message listener has been reset.")
	}
}

// SendPluginResult forwards res to the message listener. Without a listener
// the result is logged and dropped.
func (r *Registry) SendPluginResult(res *result.PluginResult, callbackID string) {
	r.mu.Lock()
	l := r.listener
	r.mu.Unlock()
	if l == nil {
		r.logger.Error("No message listener registered, dropping result.",
			"callbackID", callbackID, "status", res.Status)
		return
	}
	l(res, callbackID)
}

func (r *Registry) factoryFor(ctx context.Context, modulePath string) (Factory, error) {
	r.mu.Lock()
	f, ok := r.factories[modulePath]
	resolvers := r.opts.Resolvers
	r.mu.Unlock()
	if ok {
		return f, nil
	}
	for _, res := range resolvers {
		if f, ok := res.Resolve(ctx, modulePath); ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no factory for module %q", modulePath)
}
