package notifications

import (
	"context"
	"embed"

	corepersistence "github.com/itszoriel/munlink-sub001/modules/core/infrastructure/persistence"
	"github.com/itszoriel/munlink-sub001/modules/notifications/delivery"
	"github.com/itszoriel/munlink-sub001/modules/notifications/handlers"
	"github.com/itszoriel/munlink-sub001/modules/notifications/infrastructure/persistence"
	"github.com/itszoriel/munlink-sub001/modules/notifications/presentation/controllers"
	"github.com/itszoriel/munlink-sub001/modules/notifications/services"
	"github.com/itszoriel/munlink-sub001/pkg/application"
	"github.com/itszoriel/munlink-sub001/pkg/configuration"
	"github.com/itszoriel/munlink-sub001/pkg/eskiz"
	"github.com/itszoriel/munlink-sub001/pkg/mailer"
)

//go:embed infrastructure/persistence/schema/notifications-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	app.Migrations().RegisterSchema(&migrationFiles)

	emailSender := mailer.NewSMTPSender(mailer.SMTPOptions{
		Host:     conf.SMTP.Host,
		Port:     conf.SMTP.Port,
		User:     conf.SMTP.User,
		Password: conf.SMTP.Password,
		From:     conf.SMTP.From,
	})
	smsSender := &eskizSMSSender{inner: eskiz.NewSender(eskiz.NewConfig(
		conf.Eskiz.Email,
		conf.Eskiz.Password,
		conf.Eskiz.From,
		conf.Eskiz.BaseURL,
	))}

	outboxRepo := persistence.NewOutboxRepository()
	processor := delivery.NewProcessor(
		outboxRepo,
		corepersistence.NewResidentRepository(),
		emailSender,
		smsSender,
		delivery.ProcessorOptions{
			SMSChunkSize:    conf.Notifications.SMSChunkSize,
			LastErrorMaxLen: conf.Notifications.LastErrorMaxLen,
			Logger:          app.Logger(),
		},
	)

	app.RegisterServices(
		services.NewNotificationService(outboxRepo, processor, delivery.BatchOptions{
			MaxItems:    conf.Notifications.InlineBatchSize,
			Lease:       conf.Notifications.Lease,
			MaxAttempts: conf.Notifications.MaxAttempts,
		}, app.Logger()),
		processor,
	)
	app.RegisterControllers(
		controllers.NewNotificationsController(app),
	)
	handlers.RegisterDocumentEventHandlers(app)
	return nil
}

func (m *Module) Name() string {
	return "notifications"
}

// eskizSMSSender adapts the provider client to the dispatcher contract.
type eskizSMSSender struct {
	inner *eskiz.Sender
}

func (s *eskizSMSSender) Send(ctx context.Context, numbers []string, message string) (delivery.SMSResult, error) {
	res, err := s.inner.Send(ctx, numbers, message)
	if err != nil {
		return delivery.SMSResult{}, err
	}
	return delivery.SMSResult{
		Status: delivery.SMSResultStatus(res.Status),
		Reason: res.Reason,
	}, nil
}
