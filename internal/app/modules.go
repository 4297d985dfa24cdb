package app

import (
	"github.com/specialistvlad/yunosbridge/internal/registry"
	"github.com/specialistvlad/yunosbridge/internal/workerpool"
	"github.com/specialistvlad/yunosbridge/modules/console"
	"github.com/specialistvlad/yunosbridge/modules/core"
	"github.com/specialistvlad/yunosbridge/modules/preferences"
	"github.com/specialistvlad/yunosbridge/modules/tasks"
)

// builtinModules is the definitive list of plugin modules compiled into the
// binary. Script plugins are resolved from the plugin root instead.
func builtinModules(pool *workerpool.Pool) []registry.Module {
	return []registry.Module{
		core.Module{},
		console.Module{},
		preferences.Module{},
		tasks.Module{Pool: pool},
	}
}
