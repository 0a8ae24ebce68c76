package documents

import (
	"embed"

	"github.com/itszoriel/munlink-sub001/modules/documents/infrastructure/persistence"
	"github.com/itszoriel/munlink-sub001/modules/documents/services"
	"github.com/itszoriel/munlink-sub001/pkg/application"
)

//go:embed infrastructure/persistence/schema/documents-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)
	app.RegisterServices(
		services.NewDocumentRequestService(
			persistence.NewDocumentRequestRepository(),
			app.EventPublisher(),
		),
	)
	return nil
}

func (m *Module) Name() string {
	return "documents"
}
