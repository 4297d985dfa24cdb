package preferences

import (
	"context"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/result"
)

// ModulePath is the module path the factory is registered under.
const ModulePath = "builtin/preferences"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the preferences plugin factory.
func (Module) Register(r *registry.Registry) {
	r.RegisterFactory(ModulePath, func(context.Context) (plugin.Plugin, error) {
		return &Plugin{}, nil
	})
}

// Plugin exposes the app configuration's preferences to the web side.
type Plugin struct {
	plugin.Base
}

// Actions implements plugin.Plugin.
func (p *Plugin) Actions() plugin.Actions {
	return plugin.Actions{
		"get": p.get,
		"all": p.all,
	}
}

// get takes [name] or [name, default] and answers with the string value.
func (p *Plugin) get(_ context.Context, cb *callback.Context, args plugin.Args) error {
	if args.Len() < 1 {
		cb.Error(result.String("preference name is required"))
		return nil
	}
	cb.Success(result.String(p.Config().GetPreferenceValue(args.String(0), args.String(1))))
	return nil
}

// all answers with every preference as a JSON object. Later duplicates do
// not override the first declaration, matching get.
func (p *Plugin) all(_ context.Context, cb *callback.Context, _ plugin.Args) error {
	out := make(map[string]string)
	if cfg := p.Config(); cfg != nil {
		for _, pref := range cfg.Preferences {
			if _, seen := out[pref.Name]; !seen {
				out[pref.Name] = pref.Value
			}
		}
	}
	cb.Success(result.JSON(out))
	return nil
}
