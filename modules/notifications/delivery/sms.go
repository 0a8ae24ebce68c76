package delivery

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
)

const minPhoneDigits = 7

type SMSDispatcher struct {
	sender    SMSSender
	chunkSize int
}

func NewSMSDispatcher(sender SMSSender, chunkSize int) *SMSDispatcher {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &SMSDispatcher{sender: sender, chunkSize: chunkSize}
}

type smsEntry struct {
	id      int64
	number  string
	message string
}

// DispatchGroup delivers the SMS portion of a claimed batch. Rows sharing a
// batch key carry the same message and are folded into bulk provider calls,
// chunked at the provider limit; every row in a chunk shares that call's
// fate. Rows without a batch key get one call each.
func (d *SMSDispatcher) DispatchGroup(
	ctx context.Context,
	rows []*notification.Notification,
	recipients map[uuid.UUID]*resident.Resident,
) map[int64]outcome {
	outcomes := make(map[int64]outcome, len(rows))

	var singles []smsEntry
	batches := map[string][]smsEntry{}
	var batchOrder []string

	for _, n := range rows {
		rcpt := recipients[n.RecipientID]
		if rcpt == nil {
			outcomes[n.ID] = skipOutcome(notification.SkipRecipientMissing)
			continue
		}
		if !rcpt.NotifySMSEnabled {
			outcomes[n.ID] = skipOutcome(notification.SkipSMSDisabled)
			continue
		}
		number := normalizeNumber(rcpt.MobileNumber)
		if number == "" {
			outcomes[n.ID] = skipOutcome(notification.SkipPhoneMissing)
			continue
		}
		if n.SMS == nil || n.SMS.Message == "" {
			outcomes[n.ID] = skipOutcome(notification.SkipMessageMissing)
			continue
		}

		entry := smsEntry{id: n.ID, number: number, message: n.SMS.Message}
		if key := n.SMS.BatchKey; key != "" {
			if _, ok := batches[key]; !ok {
				batchOrder = append(batchOrder, key)
			}
			batches[key] = append(batches[key], entry)
		} else {
			singles = append(singles, entry)
		}
	}

	for _, key := range batchOrder {
		entries := batches[key]
		for start := 0; start < len(entries); start += d.chunkSize {
			end := min(start+d.chunkSize, len(entries))
			d.sendChunk(ctx, entries[start:end], outcomes)
		}
	}
	for _, entry := range singles {
		d.sendChunk(ctx, []smsEntry{entry}, outcomes)
	}
	return outcomes
}

func (d *SMSDispatcher) sendChunk(ctx context.Context, entries []smsEntry, outcomes map[int64]outcome) {
	numbers := make([]string, len(entries))
	for i, e := range entries {
		numbers[i] = e.number
	}

	result, err := d.sender.Send(ctx, numbers, entries[0].message)
	for _, e := range entries {
		switch {
		case err != nil:
			outcomes[e.id] = failOutcome(err)
		case result.Status == SMSStatusSkipped:
			outcomes[e.id] = skipOutcome(result.Reason)
		default:
			outcomes[e.id] = sentOutcome()
		}
	}
}

// normalizeNumber strips formatting characters and rejects numbers too short
// to be routable. A leading plus is preserved.
func normalizeNumber(raw string) string {
	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if digits < minPhoneDigits {
		return ""
	}
	return b.String()
}
