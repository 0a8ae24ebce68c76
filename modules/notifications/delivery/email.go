package delivery

import (
	"context"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
)

// outcome is the per-row dispatch verdict before it becomes a finalization.
// A zero terminal status means the attempt failed and the row should retry.
type outcome struct {
	terminal notification.Status // StatusSent, StatusSkipped, or "" on failure
	detail   string              // skip reason or error text
}

func sentOutcome() outcome {
	return outcome{terminal: notification.StatusSent}
}

func skipOutcome(reason string) outcome {
	return outcome{terminal: notification.StatusSkipped, detail: reason}
}

func failOutcome(err error) outcome {
	return outcome{detail: err.Error()}
}

// Fallbacks for rows enqueued without a rendered subject or body.
const (
	defaultEmailSubject = "Notification from your municipality"
	defaultEmailBody    = "You have a new notification. Please visit the portal for details."
)

type EmailDispatcher struct {
	sender EmailSender
}

func NewEmailDispatcher(sender EmailSender) *EmailDispatcher {
	return &EmailDispatcher{sender: sender}
}

// Dispatch delivers one email row. Structural preconditions that a retry
// cannot fix (no recipient, channel opted out, no address) skip the row
// permanently; provider errors fail it for retry.
func (d *EmailDispatcher) Dispatch(ctx context.Context, n *notification.Notification, rcpt *resident.Resident) outcome {
	if rcpt == nil {
		return skipOutcome(notification.SkipRecipientMissing)
	}
	if !rcpt.NotifyEmailEnabled {
		return skipOutcome(notification.SkipEmailDisabled)
	}
	if rcpt.Email == "" {
		return skipOutcome(notification.SkipEmailMissing)
	}

	subject := defaultEmailSubject
	body := defaultEmailBody
	if n.Email != nil {
		if n.Email.Subject != "" {
			subject = n.Email.Subject
		}
		if n.Email.Body != "" {
			body = n.Email.Body
		}
	}

	if err := d.sender.Send(ctx, rcpt.Email, subject, body); err != nil {
		return failOutcome(err)
	}
	return sentOutcome()
}
