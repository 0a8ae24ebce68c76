package modules

import (
	"github.com/itszoriel/munlink-sub001/modules/core"
	"github.com/itszoriel/munlink-sub001/modules/documents"
	"github.com/itszoriel/munlink-sub001/modules/notifications"
	"github.com/itszoriel/munlink-sub001/pkg/application"
)

// BuiltInModules is the load order: core first so shared tables exist
// before dependents register their schemas.
var BuiltInModules = []application.Module{
	core.NewModule(),
	notifications.NewModule(),
	documents.NewModule(),
}

func Load(app application.Application) error {
	return app.RegisterModules(BuiltInModules...)
}
