package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
	"github.com/itszoriel/munlink-sub001/modules/notifications/presentation/controllers/dtos"
	"github.com/itszoriel/munlink-sub001/modules/notifications/services"
	"github.com/itszoriel/munlink-sub001/pkg/application"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
)

const defaultPageSize = 50

// NotificationsController is the read-mostly ops surface over the outbox:
// inspect rows, check queue depth, manually enqueue or flush.
type NotificationsController struct {
	app       application.Application
	service   *services.NotificationService
	apiPrefix string
}

func NewNotificationsController(app application.Application) application.Controller {
	return &NotificationsController{
		app:       app,
		service:   app.Service(services.NotificationService{}).(*services.NotificationService),
		apiPrefix: "/notifications/api",
	}
}

func (c *NotificationsController) Key() string {
	return c.apiPrefix
}

func (c *NotificationsController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/outbox", c.ListOutbox).Methods(http.MethodGet)
	api.HandleFunc("/outbox", c.Enqueue).Methods(http.MethodPost)
	api.HandleFunc("/outbox/stats", c.Stats).Methods(http.MethodGet)
	api.HandleFunc("/outbox:flush", c.Flush).Methods(http.MethodPost)
}

func (c *NotificationsController) ListOutbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := &notification.FindParams{
		Limit: defaultPageSize,
	}
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		s := notification.Status(status)
		switch s {
		case notification.StatusPending, notification.StatusProcessing,
			notification.StatusSent, notification.StatusSkipped, notification.StatusFailed:
			params.Status = s
		default:
			writeJSONError(w, http.StatusBadRequest, "invalid_status", "unknown status filter")
			return
		}
	}
	if limit := q.Get("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil || v <= 0 || v > 500 {
			writeJSONError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		params.Limit = v
	}
	if offset := q.Get("offset"); offset != "" {
		v, err := strconv.Atoi(offset)
		if err != nil || v < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_offset", "offset must be non-negative")
			return
		}
		params.Offset = v
	}

	items, err := c.service.List(ctx, params)
	if err != nil {
		c.app.Logger().WithError(err).Error("failed to list outbox")
		writeJSONError(w, http.StatusInternalServerError, "internal", "failed to list outbox")
		return
	}
	total, err := c.service.Count(ctx, params)
	if err != nil {
		c.app.Logger().WithError(err).Error("failed to count outbox")
		writeJSONError(w, http.StatusInternalServerError, "internal", "failed to count outbox")
		return
	}

	resp := &dtos.ListNotificationsResponse{
		Items: make([]*dtos.NotificationResponse, 0, len(items)),
		Total: total,
	}
	for _, n := range items {
		resp.Items = append(resp.Items, dtos.NewNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *NotificationsController) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := c.service.CountByStatus(r.Context())
	if err != nil {
		c.app.Logger().WithError(err).Error("failed to count outbox by status")
		writeJSONError(w, http.StatusInternalServerError, "internal", "failed to read outbox stats")
		return
	}
	resp := &dtos.OutboxStatsResponse{Counts: make(map[string]int64, len(counts))}
	for status, count := range counts {
		resp.Counts[string(status)] = count
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *NotificationsController) Enqueue(w http.ResponseWriter, r *http.Request) {
	var dto dtos.EnqueueNotificationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if fieldErrors, ok := dto.Ok(); !ok {
		writeJSONError(w, http.StatusBadRequest, "validation_failed", "request validation failed", fieldErrors)
		return
	}

	n, err := buildNotification(&dto)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	ctx := composables.WithTenantID(r.Context(), n.TenantID)
	created, err := c.service.Enqueue(ctx, n)
	if err != nil {
		if errors.Is(err, notification.ErrDuplicateDedupeKey) {
			writeJSONError(w, http.StatusConflict, "duplicate_dedupe_key", "a notification with this dedupe key already exists")
			return
		}
		c.app.Logger().WithError(err).Error("failed to enqueue notification")
		writeJSONError(w, http.StatusInternalServerError, "internal", "failed to enqueue notification")
		return
	}
	writeJSON(w, http.StatusCreated, dtos.NewNotificationResponse(created))
}

func (c *NotificationsController) Flush(w http.ResponseWriter, r *http.Request) {
	processed := c.service.FlushInline(r.Context())
	writeJSON(w, http.StatusOK, &dtos.FlushResponse{Processed: processed})
}

func buildNotification(dto *dtos.EnqueueNotificationDTO) (*notification.Notification, error) {
	tenantID, err := uuid.Parse(dto.TenantID)
	if err != nil {
		return nil, errors.New("tenant_id is not a valid UUID")
	}
	recipientID, err := uuid.Parse(dto.RecipientID)
	if err != nil {
		return nil, errors.New("recipient_id is not a valid UUID")
	}

	switch notification.Channel(dto.Channel) {
	case notification.ChannelEmail:
		return notification.NewEmail(tenantID, recipientID, dto.EventType, dto.EntityID, dto.DedupeKey,
			notification.EmailPayload{Subject: dto.Subject, Body: dto.Body},
		), nil
	case notification.ChannelSMS:
		if dto.Message == "" {
			return nil, errors.New("message is required for the sms channel")
		}
		return notification.NewSMS(tenantID, recipientID, dto.EventType, dto.EntityID, dto.DedupeKey,
			notification.SMSPayload{Message: dto.Message, BatchKey: dto.BatchKey},
		), nil
	default:
		return nil, errors.New("channel must be email or sms")
	}
}
