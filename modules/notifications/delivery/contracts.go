package delivery

import (
	"context"

	"github.com/google/uuid"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
)

// EmailSender delivers a single rendered message to one address.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSResultStatus is the provider-facing verdict for one send call.
type SMSResultStatus string

const (
	SMSStatusSent    SMSResultStatus = "sent"
	SMSStatusSkipped SMSResultStatus = "skipped"
)

// SMSResult distinguishes a permanent provider-side skip (e.g. sandbox
// account, unroutable destination) from a successful send. Transient
// failures are reported through the error return instead.
type SMSResult struct {
	Status SMSResultStatus
	Reason string
}

// SMSSender delivers one message to a set of numbers in a single provider
// call. Callers keep each call at or under the provider's batch limit.
type SMSSender interface {
	Send(ctx context.Context, numbers []string, message string) (SMSResult, error)
}

// RecipientResolver loads the residents a claimed batch is addressed to.
// Missing IDs are simply absent from the result, not an error.
type RecipientResolver interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*resident.Resident, error)
}
