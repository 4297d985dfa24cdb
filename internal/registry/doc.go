// Package registry is the plugin registry and dispatcher.
//
// It maps service names to module paths, resolves module paths to plugin
// factories, lazily instantiates plugins, routes bridge calls to their
// actions and fans page lifecycle and navigation policy questions out to
// every live plugin.
//
// A Registry is created once per page session and handed to every
// collaborator; there is no package-level instance. Built-in modules add
// their factories through the Module interface:
//
//	reg := registry.New(ctx, registry.Options{Env: env})
//	core.Module{}.Register(reg)
//	reg.AddService(ctx, "CoreYunOS", core.ModulePath, true)
//	reg.Init(ctx)
package registry
