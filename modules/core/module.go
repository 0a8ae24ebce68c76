package core

import (
	"embed"

	"github.com/itszoriel/munlink-sub001/modules/core/infrastructure/persistence"
	"github.com/itszoriel/munlink-sub001/modules/core/presentation/controllers"
	"github.com/itszoriel/munlink-sub001/modules/core/services"
	"github.com/itszoriel/munlink-sub001/pkg/application"
)

//go:embed infrastructure/persistence/schema/core-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)
	app.RegisterServices(
		services.NewResidentService(persistence.NewResidentRepository()),
	)
	app.RegisterControllers(
		controllers.NewHealthController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
