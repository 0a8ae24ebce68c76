package handlers

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itszoriel/munlink-sub001/modules/documents/domain/entities/docrequest"
	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
	"github.com/itszoriel/munlink-sub001/modules/notifications/services"
	"github.com/itszoriel/munlink-sub001/pkg/application"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
)

// DocumentEventsHandler turns document lifecycle events into outbox rows
// and fires the inline flush so the resident usually hears about the
// decision before the admin's response renders.
type DocumentEventsHandler struct {
	app     application.Application
	service *services.NotificationService
	logger  *logrus.Logger
}

func RegisterDocumentEventHandlers(app application.Application) {
	handler := &DocumentEventsHandler{
		app:     app,
		service: app.Service(services.NotificationService{}).(*services.NotificationService),
		logger:  app.Logger(),
	}
	app.EventPublisher().Subscribe(handler.onApproved)
	app.EventPublisher().Subscribe(handler.onRejected)
}

func (h *DocumentEventsHandler) onApproved(event docrequest.ApprovedEvent) {
	h.fanOut(event.Result, "document_request.approved", ApprovalNotifications(event.Result))
}

func (h *DocumentEventsHandler) onRejected(event docrequest.RejectedEvent) {
	h.fanOut(event.Result, "document_request.rejected", RejectionNotifications(event.Result))
}

func (h *DocumentEventsHandler) fanOut(req docrequest.DocumentRequest, eventType string, rows []*notification.Notification) {
	ctx := composables.WithPool(context.Background(), h.app.Pool())
	ctx = composables.WithTenantID(ctx, req.TenantID)

	enqueued := 0
	for _, n := range rows {
		if _, err := h.service.Enqueue(ctx, n); err != nil {
			if errors.Is(err, notification.ErrDuplicateDedupeKey) {
				// Replayed event; the row is already queued or delivered.
				continue
			}
			h.logger.WithError(err).
				WithField("document_request_id", req.ID).
				WithField("event_type", eventType).
				Warn("failed to enqueue notification")
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		h.service.FlushInline(ctx)
	}
}

// ApprovalNotifications builds the outbox rows for an approved request:
// one email and one SMS addressed to the requesting resident. Channel
// opt-outs are the dispatcher's concern, not the producer's.
func ApprovalNotifications(req docrequest.DocumentRequest) []*notification.Notification {
	entityID := req.ID.String()
	return []*notification.Notification{
		notification.NewEmail(req.TenantID, req.ResidentID,
			"document_request.approved", entityID,
			fmt.Sprintf("document_request:%s:approved:email", req.ID),
			notification.EmailPayload{
				Subject: fmt.Sprintf("Your %s request has been approved", req.DocumentType),
				Body: fmt.Sprintf(
					"Good news! Your request for a %s has been approved and is being prepared. You will be notified when it is ready for release.",
					req.DocumentType,
				),
			},
		),
		notification.NewSMS(req.TenantID, req.ResidentID,
			"document_request.approved", entityID,
			fmt.Sprintf("document_request:%s:approved:sms", req.ID),
			notification.SMSPayload{
				Message: fmt.Sprintf("Your %s request has been APPROVED. Watch for a release notice.", req.DocumentType),
			},
		),
	}
}

// RejectionNotifications builds the email row for a rejected request. No
// SMS: rejections carry explanatory notes that don't fit a text message.
func RejectionNotifications(req docrequest.DocumentRequest) []*notification.Notification {
	body := fmt.Sprintf("Unfortunately, your request for a %s could not be approved.", req.DocumentType)
	if req.Notes != "" {
		body += " Reason: " + req.Notes
	}
	return []*notification.Notification{
		notification.NewEmail(req.TenantID, req.ResidentID,
			"document_request.rejected", req.ID.String(),
			fmt.Sprintf("document_request:%s:rejected:email", req.ID),
			notification.EmailPayload{
				Subject: fmt.Sprintf("Update on your %s request", req.DocumentType),
				Body:    body,
			},
		),
	}
}
