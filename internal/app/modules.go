package app

import (
	"github.com/vk/eventflow/internal/engine"
	"github.com/vk/eventflow/internal/registry"
)

// coreModules is the definitive list of all operator modules that are
// compiled into the eventflow binary.
var coreModules = engine.CoreModules

func modulesOrDefault(modules []registry.Module) []registry.Module {
	if len(modules) == 0 {
		return coreModules()
	}
	return modules
}
