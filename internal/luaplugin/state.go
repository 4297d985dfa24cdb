// Package luaplugin runs plugins and background task sources written in Lua.
//
// A plugin script returns a table. Function fields become actions, except
// for the reserved hook names (initialize, on_create, on_start, on_stop,
// on_link, on_destroy, on_show, on_hide, on_trim_memory,
// should_allow_request, should_allow_navigation, should_open_external_url).
// An action receives a callback table and the argument list:
//
//	local M = {}
//	function M.ping(cb, args)
//	  cb.success(args[1])
//	end
//	return M
//
// Returning false from an action reports it as an invalid action. A task
// source script returns a single function that receives the parameter list
// and returns the task's result.
package luaplugin

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// newState creates a Lua state with only the base, table, string and math
// libraries, and without the file loading functions.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// installLog exposes log.debug/info/warn/error writing to logger.
func installLog(L *lua.LState, logger *slog.Logger) {
	tbl := L.NewTable()
	for name, fn := range map[string]func(string, ...any){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
		"error": logger.Error,
	} {
		L.SetField(tbl, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1))
			return 0
		}))
	}
	L.SetGlobal("log", tbl)
}

// toGo converts a Lua value into plain Go values: integral numbers become
// int64, sequences []any and other tables map[string]any. Cycles and
// functions become nil.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, map[*lua.LTable]bool{})
}

func toGoVisited(lv lua.LValue, seen map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if seen[v] {
			return nil
		}
		seen[v] = true
		defer delete(seen, v)
		if n := v.MaxN(); n > 0 && n == tableLen(v) {
			out := make([]any, n)
			for i := 1; i <= n; i++ {
				out[i-1] = toGoVisited(v.RawGetInt(i), seen)
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			out[k.String()] = toGoVisited(val, seen)
		})
		return out
	case *lua.LUserData:
		return v.Value
	}
	return nil
}

func tableLen(t *lua.LTable) int {
	n := 0
	t.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}

// toLua converts decoded JSON or msgpack values into Lua values.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		t := L.CreateTable(len(val), 0)
		for i, e := range val {
			t.RawSetInt(i+1, toLua(L, e))
		}
		return t
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := L.CreateTable(0, len(val))
		for _, k := range keys {
			t.RawSetString(k, toLua(L, val[k]))
		}
		return t
	}
	return lua.LString(fmt.Sprint(v))
}
