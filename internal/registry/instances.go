package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/yunosbridge/internal/config"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
)

// State is the lifecycle state of a service as seen by the registry.
type State int

const (
	Unregistered State = iota
	Registered
	Initialized
)

func (s State) String() string {
	switch s {
	case Registered:
		return "registered"
	case Initialized:
		return "initialized"
	}
	return "unregistered"
}

// State reports whether service is unknown, registered without an instance,
// or backed by a live, initialized instance.
func (r *Registry) State(service string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[service]; ok {
		return Initialized
	}
	if _, ok := r.services[service]; ok {
		return Registered
	}
	return Unregistered
}

// Init resets the registry for a newly loaded page: live plugins receive
// OnStop then OnDestroy, the instance cache and outstanding callbacks are
// dropped, and every autoStart service is instantiated in registration order.
func (r *Registry) Init(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Initializing plugins.")

	r.OnStop(ctx)
	r.OnDestroy(ctx)

	r.mu.Lock()
	clear(r.live)
	var startup []string
	for _, id := range r.order {
		if r.services[id].AutoStart {
			startup = append(startup, id)
		}
	}
	r.mu.Unlock()
	r.tracker.Reset()

	for _, id := range startup {
		logger.Debug("Loading startup plugin.", "service", id)
		r.GetPlugin(ctx, id)
	}
	logger.Debug("Startup plugins loaded.", "count", len(startup))
}

// GetPlugin returns the live instance for service, instantiating and
// initializing it on first use. It returns nil when the service is not
// registered or its plugin cannot be created.
func (r *Registry) GetPlugin(ctx context.Context, service string) plugin.Plugin {
	r.mu.Lock()
	if p, ok := r.live[service]; ok {
		r.mu.Unlock()
		return p
	}
	svc, ok := r.services[service]
	env := r.opts.Env
	r.mu.Unlock()
	if !ok {
		return nil
	}

	logger := ctxlog.FromContext(ctx).With("service", service, "module", svc.ModulePath)
	p, err := r.instantiate(ctx, svc, env)
	if err != nil {
		logger.Error("Failed to instantiate plugin.", "error", err)
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.live[service]; ok {
		release(p)
		return existing
	}
	r.live[service] = p
	logger.Debug("Plugin instantiated.")
	return p
}

func (r *Registry) instantiate(ctx context.Context, svc config.Service, env plugin.Env) (p plugin.Plugin, err error) {
	f, err := r.factoryFor(ctx, svc.ModulePath)
	if err != nil {
		return nil, err
	}

	var made plugin.Plugin
	defer func() {
		if rec := recover(); rec != nil {
			release(made)
			p, err = nil, fmt.Errorf("plugin constructor panicked: %v", rec)
		}
	}()

	made, err = f(ctx)
	if err != nil {
		return nil, err
	}
	if made == nil {
		return nil, fmt.Errorf("factory for %q returned no plugin", svc.ModulePath)
	}
	if err := plugin.ValidateActions(made.Actions()); err != nil {
		release(made)
		return nil, fmt.Errorf("invalid action map: %w", err)
	}
	if err := plugin.PrivateInitialize(ctx, made, svc.ID, env); err != nil {
		release(made)
		return nil, err
	}
	return made, nil
}

// release frees an instance that never became live.
func release(p plugin.Plugin) {
	if c, ok := p.(interface{ Close() }); ok {
		c.Close()
	}
}

// livePlugins returns the live instances in registration order.
func (r *Registry) livePlugins() []namedPlugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]namedPlugin, 0, len(r.live))
	for _, id := range r.order {
		if p, ok := r.live[id]; ok {
			out = append(out, namedPlugin{id, p})
		}
	}
	return out
}

type namedPlugin struct {
	service string
	plugin  plugin.Plugin
}
