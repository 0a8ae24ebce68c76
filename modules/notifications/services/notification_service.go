package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itszoriel/munlink-sub001/modules/notifications/delivery"
	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
)

// NotificationService is the producer edge of the outbox plus the inline
// flush shell. The background worker talks to the processor directly.
type NotificationService struct {
	repo      notification.Repository
	processor *delivery.Processor
	opts      delivery.BatchOptions
	log       *logrus.Logger
}

func NewNotificationService(
	repo notification.Repository,
	processor *delivery.Processor,
	inlineOpts delivery.BatchOptions,
	logger *logrus.Logger,
) *NotificationService {
	if inlineOpts.MaxItems <= 0 {
		inlineOpts.MaxItems = 10
	}
	inlineOpts.NewestFirst = true
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &NotificationService{
		repo:      repo,
		processor: processor,
		opts:      inlineOpts,
		log:       logger,
	}
}

// Enqueue persists a pending notification. A dedupe-key collision surfaces
// as notification.ErrDuplicateDedupeKey so producers can treat re-triggers
// as already done.
func (s *NotificationService) Enqueue(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	if n == nil {
		return nil, errors.New("notification payload is required")
	}
	var created *notification.Notification
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.Enqueue(txCtx, n)
		return err
	})
	if err != nil {
		if errors.Is(err, notification.ErrDuplicateDedupeKey) {
			return nil, err
		}
		return nil, errors.Wrap(err, "enqueue notification")
	}
	delivery.RecordEnqueue(string(created.Channel), created.EventType)
	return created, nil
}

// FlushInline runs one small newest-first cycle so the row an admin action
// just enqueued usually goes out before the response does. Failures are
// logged only; the background worker is the safety net.
func (s *NotificationService) FlushInline(ctx context.Context) int {
	processed, err := s.processor.ProcessBatch(ctx, s.opts)
	if err != nil {
		s.log.WithError(err).Warn("inline notification flush failed")
	}
	return processed
}

func (s *NotificationService) List(ctx context.Context, params *notification.FindParams) ([]*notification.Notification, error) {
	if params == nil {
		params = &notification.FindParams{}
	}
	return s.repo.List(ctx, params)
}

func (s *NotificationService) Count(ctx context.Context, params *notification.FindParams) (int64, error) {
	return s.repo.Count(ctx, params)
}

func (s *NotificationService) CountByStatus(ctx context.Context) (map[notification.Status]int64, error) {
	return s.repo.CountByStatus(ctx)
}
