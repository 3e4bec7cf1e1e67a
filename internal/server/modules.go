package server

import (
	"github.com/nfrund/roster/internal/module"
	"github.com/nfrund/roster/internal/modules/cache"
	"github.com/nfrund/roster/internal/modules/profile"
)

// AppModules returns the modules that make up the application. Each call
// returns fresh instances.
func AppModules() []module.Module {
	return []module.Module{
		cache.New(),
		profile.New(),
	}
}
