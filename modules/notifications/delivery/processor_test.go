package delivery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
	"github.com/itszoriel/munlink-sub001/pkg/logging"
)

// fakeOutbox mirrors the store's claim semantics in memory so the processor
// can be exercised without a database.
type fakeOutbox struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*notification.Notification

	finalizeCalls int
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{rows: map[int64]*notification.Notification{}}
}

func (f *fakeOutbox) Enqueue(_ context.Context, n *notification.Notification) (*notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.DedupeKey == n.DedupeKey {
			return nil, notification.ErrDuplicateDedupeKey
		}
	}
	f.nextID++
	stored := *n
	stored.ID = f.nextID
	stored.CreatedAt = time.Now()
	f.rows[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (f *fakeOutbox) ReapExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reaped int64
	for _, r := range f.rows {
		if r.Status == notification.StatusProcessing && r.NextAttemptAt != nil && !r.NextAttemptAt.After(now) {
			r.Status = notification.StatusPending
			reaped++
		}
	}
	return reaped, nil
}

func (f *fakeOutbox) ClaimBatch(_ context.Context, params notification.ClaimParams) ([]*notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var eligible []*notification.Notification
	for _, r := range f.rows {
		if r.Status != notification.StatusPending {
			continue
		}
		if r.NextAttemptAt != nil && r.NextAttemptAt.After(params.Now) {
			continue
		}
		eligible = append(eligible, r)
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Attempts != eligible[j].Attempts {
			return eligible[i].Attempts < eligible[j].Attempts
		}
		if params.NewestFirst {
			return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	if len(eligible) > params.MaxItems {
		eligible = eligible[:params.MaxItems]
	}

	expiry := params.Now.Add(params.Lease)
	claimed := make([]*notification.Notification, 0, len(eligible))
	for _, r := range eligible {
		r.Status = notification.StatusProcessing
		r.NextAttemptAt = &expiry
		snapshot := *r
		claimed = append(claimed, &snapshot)
	}
	return claimed, nil
}

func (f *fakeOutbox) FinalizeBatch(_ context.Context, finals []notification.Finalization) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizeCalls++
	for _, fin := range finals {
		r, ok := f.rows[fin.ID]
		if !ok {
			return errors.New("finalized unknown row")
		}
		r.Status = fin.Status
		r.Attempts = fin.Attempts
		r.NextAttemptAt = fin.NextAttemptAt
		r.LastError = fin.LastError
	}
	return nil
}

func (f *fakeOutbox) List(_ context.Context, _ *notification.FindParams) ([]*notification.Notification, error) {
	return nil, nil
}

func (f *fakeOutbox) Count(_ context.Context, _ *notification.FindParams) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeOutbox) CountByStatus(_ context.Context) (map[notification.Status]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[notification.Status]int64{}
	for _, r := range f.rows {
		counts[r.Status]++
	}
	return counts, nil
}

// makeEligible rewinds a retry delay so the next cycle picks the row up.
func (f *fakeOutbox) makeEligible(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	past := time.Now().Add(-time.Minute)
	f.rows[id].NextAttemptAt = &past
}

func (f *fakeOutbox) row(id int64) notification.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

type fakeResidents struct {
	byID map[uuid.UUID]*resident.Resident
}

func (f *fakeResidents) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*resident.Resident, error) {
	var out []*resident.Resident
	for _, id := range ids {
		if r, ok := f.byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type emailCall struct {
	to, subject, body string
}

type fakeEmailSender struct {
	mu    sync.Mutex
	calls []emailCall
	err   error
}

func (f *fakeEmailSender) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, emailCall{to: to, subject: subject, body: body})
	return f.err
}

type smsCall struct {
	numbers []string
	message string
}

type fakeSMSSender struct {
	mu     sync.Mutex
	calls  []smsCall
	result SMSResult
	err    error
}

func (f *fakeSMSSender) Send(_ context.Context, numbers []string, message string) (SMSResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, smsCall{numbers: append([]string{}, numbers...), message: message})
	if f.err != nil {
		return SMSResult{}, f.err
	}
	if f.result.Status == "" {
		return SMSResult{Status: SMSStatusSent}, nil
	}
	return f.result, nil
}

func newTestResident(email, phone string, emailOn, smsOn bool) *resident.Resident {
	return &resident.Resident{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		FirstName:          "Jamie",
		LastName:           "Reyes",
		Email:              email,
		MobileNumber:       phone,
		NotifyEmailEnabled: emailOn,
		NotifySMSEnabled:   smsOn,
	}
}

func newTestProcessor(outbox *fakeOutbox, residents *fakeResidents, email EmailSender, sms SMSSender) *Processor {
	return NewProcessor(outbox, residents, email, sms, ProcessorOptions{
		Logger: logging.ConsoleLogger(logrus.ErrorLevel),
	})
}

func defaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxItems:    50,
		Lease:       5 * time.Minute,
		MaxAttempts: 5,
	}
}

func enqueueEmail(t *testing.T, outbox *fakeOutbox, rcpt *resident.Resident, dedupeKey string) *notification.Notification {
	t.Helper()
	n, err := outbox.Enqueue(context.Background(), notification.NewEmail(
		rcpt.TenantID, rcpt.ID, "document_request.approved", "doc-1", dedupeKey,
		notification.EmailPayload{Subject: "Request approved", Body: "Your request was approved."},
	))
	require.NoError(t, err)
	return n
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	outbox := newFakeOutbox()
	emailSender := &fakeEmailSender{}
	p := newTestProcessor(outbox, &fakeResidents{}, emailSender, &fakeSMSSender{})

	processed, err := p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Empty(t, emailSender.calls)
	assert.Equal(t, 0, outbox.finalizeCalls)
}

func TestProcessBatchEmailSent(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", true, false)
	outbox := newFakeOutbox()
	emailSender := &fakeEmailSender{}
	p := newTestProcessor(outbox, &fakeResidents{byID: map[uuid.UUID]*resident.Resident{rcpt.ID: rcpt}}, emailSender, &fakeSMSSender{})

	n := enqueueEmail(t, outbox, rcpt, "dk-sent")

	processed, err := p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	require.Len(t, emailSender.calls, 1)
	assert.Equal(t, "jamie@example.com", emailSender.calls[0].to)
	assert.Equal(t, "Request approved", emailSender.calls[0].subject)

	row := outbox.row(n.ID)
	assert.Equal(t, notification.StatusSent, row.Status)
	assert.Equal(t, 1, row.Attempts)
	assert.Nil(t, row.NextAttemptAt)
	assert.Nil(t, row.LastError)
}

func TestProcessBatchEmailOptedOut(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", false, false)
	outbox := newFakeOutbox()
	emailSender := &fakeEmailSender{}
	p := newTestProcessor(outbox, &fakeResidents{byID: map[uuid.UUID]*resident.Resident{rcpt.ID: rcpt}}, emailSender, &fakeSMSSender{})

	n := enqueueEmail(t, outbox, rcpt, "dk-optout")

	processed, err := p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Empty(t, emailSender.calls, "opted-out recipient must not be contacted")

	row := outbox.row(n.ID)
	assert.Equal(t, notification.StatusSkipped, row.Status)
	assert.Equal(t, 1, row.Attempts)
	require.NotNil(t, row.LastError)
	assert.Equal(t, notification.SkipEmailDisabled, *row.LastError)
}

func TestProcessBatchRecipientMissing(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", true, false)
	outbox := newFakeOutbox()
	// Resolver knows nobody.
	p := newTestProcessor(outbox, &fakeResidents{}, &fakeEmailSender{}, &fakeSMSSender{})

	n := enqueueEmail(t, outbox, rcpt, "dk-missing")

	_, err := p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)

	row := outbox.row(n.ID)
	assert.Equal(t, notification.StatusSkipped, row.Status)
	require.NotNil(t, row.LastError)
	assert.Equal(t, notification.SkipRecipientMissing, *row.LastError)
}

func TestProcessBatchTransientFailureRetriesThenDies(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", true, false)
	outbox := newFakeOutbox()
	emailSender := &fakeEmailSender{err: errors.New("smtp: connection refused")}
	p := newTestProcessor(outbox, &fakeResidents{byID: map[uuid.UUID]*resident.Resident{rcpt.ID: rcpt}}, emailSender, &fakeSMSSender{})

	n := enqueueEmail(t, outbox, rcpt, "dk-transient")

	opts := defaultBatchOptions()
	opts.MaxAttempts = 3

	for attempt := 1; attempt <= 3; attempt++ {
		processed, err := p.ProcessBatch(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, 1, processed)

		row := outbox.row(n.ID)
		assert.Equal(t, attempt, row.Attempts)
		require.NotNil(t, row.LastError)
		assert.Equal(t, "smtp: connection refused", *row.LastError)

		if attempt < 3 {
			assert.Equal(t, notification.StatusPending, row.Status)
			require.NotNil(t, row.NextAttemptAt)
			assert.True(t, row.NextAttemptAt.After(time.Now()), "retry must be deferred")
			outbox.makeEligible(n.ID)
		} else {
			assert.Equal(t, notification.StatusFailed, row.Status)
			assert.Nil(t, row.NextAttemptAt)
		}
	}
	assert.Len(t, emailSender.calls, 3)

	// Terminal rows are never claimed again.
	processed, err := p.ProcessBatch(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestProcessBatchRespectsRetryDelay(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", true, false)
	outbox := newFakeOutbox()
	emailSender := &fakeEmailSender{err: errors.New("smtp: timeout")}
	p := newTestProcessor(outbox, &fakeResidents{byID: map[uuid.UUID]*resident.Resident{rcpt.ID: rcpt}}, emailSender, &fakeSMSSender{})

	enqueueEmail(t, outbox, rcpt, "dk-delay")

	processed, err := p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// Second cycle runs before the backoff elapses: nothing is eligible.
	processed, err = p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Len(t, emailSender.calls, 1)
}

func TestProcessBatchReapsExpiredLeases(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", true, false)
	outbox := newFakeOutbox()
	emailSender := &fakeEmailSender{}
	p := newTestProcessor(outbox, &fakeResidents{byID: map[uuid.UUID]*resident.Resident{rcpt.ID: rcpt}}, emailSender, &fakeSMSSender{})

	n := enqueueEmail(t, outbox, rcpt, "dk-reap")

	// Simulate a claimant that died mid-batch: processing with an expired lease.
	expired := time.Now().Add(-time.Minute)
	outbox.mu.Lock()
	outbox.rows[n.ID].Status = notification.StatusProcessing
	outbox.rows[n.ID].NextAttemptAt = &expired
	outbox.mu.Unlock()

	processed, err := p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, notification.StatusSent, outbox.row(n.ID).Status)
}

func TestProcessBatchNewestFirst(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", true, false)
	outbox := newFakeOutbox()
	emailSender := &fakeEmailSender{}
	p := newTestProcessor(outbox, &fakeResidents{byID: map[uuid.UUID]*resident.Resident{rcpt.ID: rcpt}}, emailSender, &fakeSMSSender{})

	older := enqueueEmail(t, outbox, rcpt, "dk-older")
	outbox.mu.Lock()
	outbox.rows[older.ID].CreatedAt = time.Now().Add(-time.Hour)
	outbox.mu.Unlock()
	newer := enqueueEmail(t, outbox, rcpt, "dk-newer")

	opts := defaultBatchOptions()
	opts.MaxItems = 1
	opts.NewestFirst = true

	processed, err := p.ProcessBatch(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, notification.StatusSent, outbox.row(newer.ID).Status)
	assert.Equal(t, notification.StatusPending, outbox.row(older.ID).Status)
}

func TestProcessBatchTruncatesLastError(t *testing.T) {
	rcpt := newTestResident("jamie@example.com", "", true, false)
	outbox := newFakeOutbox()
	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}
	emailSender := &fakeEmailSender{err: errors.New(string(long))}
	p := newTestProcessor(outbox, &fakeResidents{byID: map[uuid.UUID]*resident.Resident{rcpt.ID: rcpt}}, emailSender, &fakeSMSSender{})

	n := enqueueEmail(t, outbox, rcpt, "dk-truncate")

	_, err := p.ProcessBatch(context.Background(), defaultBatchOptions())
	require.NoError(t, err)

	row := outbox.row(n.ID)
	require.NotNil(t, row.LastError)
	assert.Len(t, *row.LastError, 512)
}
