package luaplugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/yunosbridge/internal/callback"
	"github.com/specialistvlad/yunosbridge/internal/ctxlog"
	"github.com/specialistvlad/yunosbridge/internal/plugin"
	"github.com/specialistvlad/yunosbridge/internal/result"
	lua "github.com/yuin/gopher-lua"
)

// ErrClosed is returned by actions of a plugin whose state was destroyed.
var ErrClosed = errors.New("lua plugin is closed")

var hookNames = map[string]bool{
	"initialize":               true,
	"on_create":                true,
	"on_start":                 true,
	"on_stop":                  true,
	"on_link":                  true,
	"on_destroy":               true,
	"on_show":                  true,
	"on_hide":                  true,
	"on_trim_memory":           true,
	"should_allow_request":     true,
	"should_allow_navigation":  true,
	"should_open_external_url": true,
}

// Plugin is a plugin backed by a Lua script. Calls into the script are
// serialized because a Lua state is single-threaded.
type Plugin struct {
	plugin.Base
	path string

	mu      sync.Mutex
	L       *lua.LState
	module  *lua.LTable
	actions plugin.Actions
	closed  bool
}

// Load runs the script at path and builds the plugin from the table it
// returns.
func Load(ctx context.Context, path string) (*Plugin, error) {
	L := newState()
	p := &Plugin{path: path, L: L}
	installLog(L, ctxlog.FromContext(ctx).With("lua_plugin", path))
	L.SetGlobal("preference", L.NewFunction(p.luaPreference))

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("loading lua plugin %s: %w", path, err)
	}
	module, ok := L.Get(-1).(*lua.LTable)
	L.Pop(1)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("lua plugin %s must return a table", path)
	}
	p.module = module

	p.actions = make(plugin.Actions)
	module.ForEach(func(k, v lua.LValue) {
		name, isStr := k.(lua.LString)
		fn, isFn := v.(*lua.LFunction)
		if isStr && isFn && !hookNames[string(name)] {
			p.actions[string(name)] = p.action(string(name), fn)
		}
	})
	return p, nil
}

// Actions implements plugin.Plugin.
func (p *Plugin) Actions() plugin.Actions { return p.actions }

func (p *Plugin) action(name string, fn *lua.LFunction) plugin.ActionFunc {
	return func(ctx context.Context, cb *callback.Context, args plugin.Args) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return ErrClosed
		}

		L := p.L
		L.SetContext(ctx)
		defer L.RemoveContext()
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
			p.callbackTable(cb), toLua(L, args.Values())); err != nil {
			return fmt.Errorf("lua action %q: %w", name, err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		if ret == lua.LFalse {
			return plugin.ErrInvalidAction
		}
		return nil
	}
}

// callbackTable exposes cb to Lua as {id, success(v), error(v), keep(b)}.
func (p *Plugin) callbackTable(cb *callback.Context) *lua.LTable {
	L := p.L
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(cb.CallbackID()))
	L.SetField(t, "success", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(cb.Success(payloadOf(L.Get(1)))))
		return 1
	}))
	L.SetField(t, "error", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(cb.Error(payloadOf(L.Get(1)))))
		return 1
	}))
	L.SetField(t, "keep", L.NewFunction(func(L *lua.LState) int {
		cb.SetKeepCallback(L.OptBool(1, true))
		return 0
	}))
	return t
}

// payloadOf maps nil to no payload, strings to string payloads and
// everything else to JSON.
func payloadOf(v lua.LValue) result.Payload {
	switch val := v.(type) {
	case *lua.LNilType:
		return result.None()
	case lua.LString:
		return result.String(string(val))
	}
	return result.JSON(toGo(v))
}

func (p *Plugin) luaPreference(L *lua.LState) int {
	name := L.CheckString(1)
	def := L.OptString(2, "")
	L.Push(lua.LString(p.Config().GetPreferenceValue(name, def)))
	return 1
}

// hook calls the named module function if it exists and returns its first
// result.
func (p *Plugin) hook(ctx context.Context, name string, args ...lua.LValue) (lua.LValue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return lua.LNil, ErrClosed
	}
	fn, ok := p.module.RawGetString(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, nil
	}
	L := p.L
	L.SetContext(ctx)
	defer L.RemoveContext()
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, fmt.Errorf("lua hook %q: %w", name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func (p *Plugin) event(ctx context.Context, name string, args ...lua.LValue) {
	if _, err := p.hook(ctx, name, args...); err != nil {
		ctxlog.FromContext(ctx).Error("Lua hook failed.", "plugin", p.path, "hook", name, "error", err)
	}
}

func (p *Plugin) opinion(ctx context.Context, name, url string) plugin.Opinion {
	ret, err := p.hook(ctx, name, lua.LString(url))
	if err != nil {
		ctxlog.FromContext(ctx).Error("Lua policy hook failed.", "plugin", p.path, "hook", name, "error", err)
		return plugin.NoOpinion
	}
	if b, ok := ret.(lua.LBool); ok {
		return plugin.OpinionOf(bool(b))
	}
	return plugin.NoOpinion
}

// Initialize runs the script's initialize hook with the service name.
func (p *Plugin) Initialize(ctx context.Context) error {
	_, err := p.hook(ctx, "initialize", lua.LString(p.ServiceName()))
	return err
}

func (p *Plugin) OnCreate(ctx context.Context) { p.event(ctx, "on_create") }
func (p *Plugin) OnStart(ctx context.Context) { p.event(ctx, "on_start") }
func (p *Plugin) OnStop(ctx context.Context) { p.event(ctx, "on_stop") }
func (p *Plugin) OnLink(ctx context.Context, link string) { p.event(ctx, "on_link", lua.LString(link)) }
func (p *Plugin) OnShow(ctx context.Context) { p.event(ctx, "on_show") }
func (p *Plugin) OnHide(ctx context.Context) { p.event(ctx, "on_hide") }
func (p *Plugin) OnTrimMemory(ctx context.Context) { p.event(ctx, "on_trim_memory") }

// OnDestroy runs the on_destroy hook and releases the Lua state.
func (p *Plugin) OnDestroy(ctx context.Context) {
	p.event(ctx, "on_destroy")
	p.Close()
}

func (p *Plugin) ShouldAllowRequest(ctx context.Context, url string) plugin.Opinion {
	return p.opinion(ctx, "should_allow_request", url)
}

func (p *Plugin) ShouldAllowNavigation(ctx context.Context, url string) plugin.Opinion {
	return p.opinion(ctx, "should_allow_navigation", url)
}

func (p *Plugin) ShouldOpenExternalURL(ctx context.Context, url string) plugin.Opinion {
	return p.opinion(ctx, "should_open_external_url", url)
}

// Close releases the Lua state. Later calls fail with ErrClosed.
func (p *Plugin) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.L.Close()
	}
}
