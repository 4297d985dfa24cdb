package console

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/tidwall/gjson"
)

// ModulePath is the module path the factory is registered under.
const ModulePath = "builtin/console"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the console plugin factory.
func (Module) Register(r *registry.Registry) {
	r.RegisterFactory(ModulePath, func(context.Context) (plugin.Plugin, error) {
		return &Plugin{}, nil
	})
}

// Plugin forwards web console output to the logger.
type Plugin struct {
	plugin.Base
}

// Actions implements plugin.Plugin.
func (p *Plugin) Actions() plugin.Actions {
	return plugin.Actions{"log": p.log}
}

// log takes [level, message] or [message]. An object message is logged
// with its fields as sorted attributes.
func (p *Plugin) log(ctx context.Context, _ *callback.Context, args plugin.Args) error {
	level, msg := "INFO", args.Get(0)
	if args.Len() > 1 {
		level, msg = args.String(0), args.Get(1)
	}
	logger := ctxlog.FromContext(ctx).With("source", "webconsole", "service", p.ServiceName())

	if !msg.IsObject() {
		logger.Log(ctx, levelOf(level), msg.String())
		return nil
	}

	// Sort keys for consistent output
	fields := msg.Map()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, fieldString(fields[k])))
	}
	logger.Log(ctx, levelOf(level), "Console object.", attrs...)
	return nil
}

func fieldString(v gjson.Result) string {
	if v.IsObject() || v.IsArray() {
		return v.Raw
	}
	return v.String()
}

func levelOf(name string) slog.Level {
	switch strings.ToUpper(name) {
	case "ERROR":
		return slog.LevelError
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "DEBUG", "TRACE":
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
