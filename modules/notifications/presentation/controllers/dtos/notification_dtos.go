package dtos

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
	"github.com/itszoriel/munlink-sub001/pkg/constants"
)

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type NotificationResponse struct {
	ID            int64      `json:"id"`
	TenantID      string     `json:"tenant_id"`
	RecipientID   string     `json:"recipient_id"`
	Channel       string     `json:"channel"`
	EventType     string     `json:"event_type"`
	EntityID      string     `json:"entity_id,omitempty"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
	DedupeKey     string     `json:"dedupe_key"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewNotificationResponse(n *notification.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:            n.ID,
		TenantID:      n.TenantID.String(),
		RecipientID:   n.RecipientID.String(),
		Channel:       string(n.Channel),
		EventType:     n.EventType,
		EntityID:      n.EntityID,
		Status:        string(n.Status),
		Attempts:      n.Attempts,
		NextAttemptAt: n.NextAttemptAt,
		LastError:     n.LastError,
		DedupeKey:     n.DedupeKey,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}

type ListNotificationsResponse struct {
	Items []*NotificationResponse `json:"items"`
	Total int64                   `json:"total"`
}

type OutboxStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// EnqueueNotificationDTO is the manual-enqueue payload for operators who
// need to resend or test outside the normal event flow.
type EnqueueNotificationDTO struct {
	TenantID    string `json:"tenant_id" validate:"required,uuid"`
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	Channel     string `json:"channel" validate:"required,oneof=email sms"`
	EventType   string `json:"event_type" validate:"required"`
	EntityID    string `json:"entity_id"`
	DedupeKey   string `json:"dedupe_key" validate:"required"`

	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Message  string `json:"message"`
	BatchKey string `json:"batch_key"`
}

func (d *EnqueueNotificationDTO) Ok() (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return errorMessages, true
	}
	for _, err := range errs.(validator.ValidationErrors) {
		errorMessages[err.Field()] = err.Tag()
	}
	return errorMessages, false
}

type FlushResponse struct {
	Processed int `json:"processed"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
