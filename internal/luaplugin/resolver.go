package luaplugin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/workerpool"
	lua "github.com/yuin/gopher-lua"
)

// Resolver serves *.lua module paths relative to Root, both as plugins and
// as worker task sources.
type Resolver struct {
	Root string
}

// NewResolver creates a resolver rooted at root.
func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

func (r *Resolver) path(modulePath string) (string, bool) {
	if !strings.HasSuffix(modulePath, ".lua") {
		return "", false
	}
	rel := filepath.FromSlash(modulePath)
	if !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(r.Root, rel), true
}

// Resolve implements registry.Resolver.
func (r *Resolver) Resolve(_ context.Context, modulePath string) (registry.Factory, bool) {
	path, ok := r.path(modulePath)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context) (plugin.Plugin, error) {
		return Load(ctx, path)
	}, true
}

// ResolveSource implements workerpool.SourceResolver. Every run gets a fresh
// Lua state, so scripts cannot share state across tasks or workers.
func (r *Resolver) ResolveSource(_ context.Context, name string) (workerpool.Source, bool) {
	path, ok := r.path(name)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, params []any) (any, error) {
		L := newState()
		defer L.Close()
		L.SetContext(ctx)

		if err := L.DoFile(path); err != nil {
			return nil, fmt.Errorf("loading task source %s: %w", name, err)
		}
		fn, ok := L.Get(-1).(*lua.LFunction)
		L.Pop(1)
		if !ok {
			return nil, fmt.Errorf("task source %s must return a function", name)
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, toLua(L, params)); err != nil {
			return nil, fmt.Errorf("task source %s: %w", name, err)
		}
		return toGo(L.Get(-1)), nil
	}, true
}
