package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
)

func smsRow(id int64, rcpt *resident.Resident, message, batchKey string) *notification.Notification {
	n := notification.NewSMS(rcpt.TenantID, rcpt.ID, "announcement.published", "ann-1",
		fmt.Sprintf("dk-%d", id),
		notification.SMSPayload{Message: message, BatchKey: batchKey},
	)
	n.ID = id
	return n
}

func TestSMSDispatcherGroupsByBatchKey(t *testing.T) {
	t.Parallel()

	sender := &fakeSMSSender{}
	d := NewSMSDispatcher(sender, 1000)

	a := newTestResident("", "+998 90 123-45-67", false, true)
	b := newTestResident("", "+998901112233", false, true)
	c := newTestResident("", "+998905556677", false, true)

	rows := []*notification.Notification{
		smsRow(1, a, "Road closure on Main St", "ann-1"),
		smsRow(2, b, "Road closure on Main St", "ann-1"),
		smsRow(3, c, "Your permit is ready", ""),
	}
	recipients := map[uuid.UUID]*resident.Resident{a.ID: a, b.ID: b, c.ID: c}

	outcomes := d.DispatchGroup(context.Background(), rows, recipients)

	require.Len(t, sender.calls, 2, "one bulk call per batch key plus one single")
	assert.ElementsMatch(t, []string{"+998901234567", "+998901112233"}, sender.calls[0].numbers)
	assert.Equal(t, "Road closure on Main St", sender.calls[0].message)
	assert.Equal(t, []string{"+998905556677"}, sender.calls[1].numbers)

	for id := int64(1); id <= 3; id++ {
		assert.Equal(t, notification.StatusSent, outcomes[id].terminal)
	}
}

func TestSMSDispatcherChunksLargeBatches(t *testing.T) {
	t.Parallel()

	sender := &fakeSMSSender{}
	d := NewSMSDispatcher(sender, 2)

	recipients := map[uuid.UUID]*resident.Resident{}
	var rows []*notification.Notification
	for i := int64(1); i <= 5; i++ {
		r := newTestResident("", fmt.Sprintf("+99890000000%d", i), false, true)
		recipients[r.ID] = r
		rows = append(rows, smsRow(i, r, "Citywide alert", "alert-1"))
	}

	outcomes := d.DispatchGroup(context.Background(), rows, recipients)

	require.Len(t, sender.calls, 3, "5 recipients at chunk size 2 need 3 calls")
	assert.Len(t, sender.calls[0].numbers, 2)
	assert.Len(t, sender.calls[1].numbers, 2)
	assert.Len(t, sender.calls[2].numbers, 1)
	for _, out := range outcomes {
		assert.Equal(t, notification.StatusSent, out.terminal)
	}
}

func TestSMSDispatcherChunkSharesFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSMSSender{err: errors.New("provider unavailable")}
	d := NewSMSDispatcher(sender, 1000)

	a := newTestResident("", "+998901234567", false, true)
	b := newTestResident("", "+998901112233", false, true)
	rows := []*notification.Notification{
		smsRow(1, a, "Outage notice", "out-1"),
		smsRow(2, b, "Outage notice", "out-1"),
	}
	recipients := map[uuid.UUID]*resident.Resident{a.ID: a, b.ID: b}

	outcomes := d.DispatchGroup(context.Background(), rows, recipients)

	require.Len(t, sender.calls, 1)
	for id := int64(1); id <= 2; id++ {
		assert.Equal(t, notification.Status(""), outcomes[id].terminal, "chunk failure must fail every row in it")
		assert.Equal(t, "provider unavailable", outcomes[id].detail)
	}
}

func TestSMSDispatcherProviderSkip(t *testing.T) {
	t.Parallel()

	sender := &fakeSMSSender{result: SMSResult{Status: SMSStatusSkipped, Reason: "sms_sandbox"}}
	d := NewSMSDispatcher(sender, 1000)

	a := newTestResident("", "+998901234567", false, true)
	rows := []*notification.Notification{smsRow(1, a, "Test message", "")}

	outcomes := d.DispatchGroup(context.Background(), rows, map[uuid.UUID]*resident.Resident{a.ID: a})

	assert.Equal(t, notification.StatusSkipped, outcomes[1].terminal)
	assert.Equal(t, "sms_sandbox", outcomes[1].detail)
}

func TestSMSDispatcherStructuralSkips(t *testing.T) {
	t.Parallel()

	sender := &fakeSMSSender{}
	d := NewSMSDispatcher(sender, 1000)

	optedOut := newTestResident("", "+998901234567", false, false)
	noPhone := newTestResident("", "", false, true)
	badPhone := newTestResident("", "123", false, true)
	noMessage := newTestResident("", "+998901112233", false, true)

	rows := []*notification.Notification{
		smsRow(1, optedOut, "hello", ""),
		smsRow(2, noPhone, "hello", ""),
		smsRow(3, badPhone, "hello", ""),
		smsRow(4, noMessage, "", ""),
		smsRow(5, optedOut, "hello", ""), // unknown recipient below
	}
	recipients := map[uuid.UUID]*resident.Resident{
		optedOut.ID:  optedOut,
		noPhone.ID:   noPhone,
		badPhone.ID:  badPhone,
		noMessage.ID: noMessage,
	}
	rows[4].RecipientID = uuid.New()

	outcomes := d.DispatchGroup(context.Background(), rows, recipients)

	assert.Empty(t, sender.calls, "structurally skipped rows never reach the provider")
	assert.Equal(t, notification.SkipSMSDisabled, outcomes[1].detail)
	assert.Equal(t, notification.SkipPhoneMissing, outcomes[2].detail)
	assert.Equal(t, notification.SkipPhoneMissing, outcomes[3].detail)
	assert.Equal(t, notification.SkipMessageMissing, outcomes[4].detail)
	assert.Equal(t, notification.SkipRecipientMissing, outcomes[5].detail)
	for id := int64(1); id <= 5; id++ {
		assert.Equal(t, notification.StatusSkipped, outcomes[id].terminal)
	}
}

func TestNormalizeNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "+998901234567", normalizeNumber("+998 90 123-45-67"))
	assert.Equal(t, "998901234567", normalizeNumber("998 (90) 123 45 67"))
	assert.Equal(t, "", normalizeNumber(""))
	assert.Equal(t, "", normalizeNumber("12345"))
	assert.Equal(t, "", normalizeNumber("not a number"))
}
