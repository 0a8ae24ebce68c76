package notification

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSent, StatusSkipped, StatusFailed:
		return true
	}
	return false
}

// Skip reasons recorded in last_error for permanently skipped rows.
// A skip means a structural precondition failed; retrying cannot change it.
const (
	SkipRecipientMissing = "recipient_missing"
	SkipEmailDisabled    = "email_disabled"
	SkipEmailMissing     = "email_missing"
	SkipSMSDisabled      = "sms_disabled"
	SkipPhoneMissing     = "phone_missing"
	SkipMessageMissing   = "message_missing"
	SkipUnknownChannel   = "unknown_channel"
)

type EmailPayload struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

type SMSPayload struct {
	Message string `json:"message,omitempty"`
	// BatchKey groups rows carrying an identical message so the dispatcher
	// can deliver them in one provider call.
	BatchKey string `json:"batch_key,omitempty"`
}

// Notification is one row of the notification outbox. Exactly one of Email
// and SMS is set, matching Channel; the other is nil.
type Notification struct {
	ID          int64
	TenantID    uuid.UUID
	RecipientID uuid.UUID
	Channel     Channel
	EventType   string
	EntityID    string

	Email *EmailPayload
	SMS   *SMSPayload

	Status        Status
	Attempts      int
	NextAttemptAt *time.Time
	LastError     *string
	DedupeKey     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEmail builds a pending email notification ready for enqueueing.
func NewEmail(tenantID, recipientID uuid.UUID, eventType, entityID, dedupeKey string, payload EmailPayload) *Notification {
	now := time.Now()
	return &Notification{
		TenantID:      tenantID,
		RecipientID:   recipientID,
		Channel:       ChannelEmail,
		EventType:     eventType,
		EntityID:      entityID,
		Email:         &payload,
		Status:        StatusPending,
		NextAttemptAt: &now,
		DedupeKey:     dedupeKey,
	}
}

// NewSMS builds a pending SMS notification ready for enqueueing.
func NewSMS(tenantID, recipientID uuid.UUID, eventType, entityID, dedupeKey string, payload SMSPayload) *Notification {
	now := time.Now()
	return &Notification{
		TenantID:      tenantID,
		RecipientID:   recipientID,
		Channel:       ChannelSMS,
		EventType:     eventType,
		EntityID:      entityID,
		SMS:           &payload,
		Status:        StatusPending,
		NextAttemptAt: &now,
		DedupeKey:     dedupeKey,
	}
}
