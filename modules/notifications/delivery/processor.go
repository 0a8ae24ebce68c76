package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
)

// BatchOptions parameterizes one processing cycle. The inline flush and the
// background worker share the same processor and differ only here.
type BatchOptions struct {
	MaxItems    int
	Lease       time.Duration
	MaxAttempts int
	NewestFirst bool
}

type ProcessorOptions struct {
	SMSChunkSize    int
	LastErrorMaxLen int
	Logger          *logrus.Logger
}

func (o *ProcessorOptions) setDefaults() {
	if o.SMSChunkSize <= 0 {
		o.SMSChunkSize = 1000
	}
	if o.LastErrorMaxLen <= 0 {
		o.LastErrorMaxLen = 512
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// Processor runs one full outbox cycle: reap expired leases, claim a batch,
// resolve recipients, dispatch per channel, finalize. It holds no state
// between cycles; any number of processors may run against the same table.
type Processor struct {
	outbox     notification.Repository
	recipients RecipientResolver
	email      *EmailDispatcher
	sms        *SMSDispatcher

	lastErrorMaxLen int
	log             *logrus.Logger
	m               *metrics
}

func NewProcessor(
	outbox notification.Repository,
	recipients RecipientResolver,
	emailSender EmailSender,
	smsSender SMSSender,
	opts ProcessorOptions,
) *Processor {
	opts.setDefaults()
	return &Processor{
		outbox:          outbox,
		recipients:      recipients,
		email:           NewEmailDispatcher(emailSender),
		sms:             NewSMSDispatcher(smsSender, opts.SMSChunkSize),
		lastErrorMaxLen: opts.LastErrorMaxLen,
		log:             opts.Logger,
		m:               getMetrics(),
	}
}

// ProcessBatch executes one cycle and reports how many rows were claimed.
// Returning MaxItems tells the caller the backlog probably isn't drained.
// Row-level send failures are absorbed into finalizations, not returned;
// only infrastructure failures (store unreachable) surface as errors.
func (p *Processor) ProcessBatch(ctx context.Context, opts BatchOptions) (int, error) {
	now := time.Now()

	reaped, err := p.outbox.ReapExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if reaped > 0 {
		p.m.reapedTotal.Add(float64(reaped))
		p.log.WithField("count", reaped).Warn("reset expired notification leases")
	}

	claimed, err := p.outbox.ClaimBatch(ctx, notification.ClaimParams{
		Now:         now,
		MaxItems:    opts.MaxItems,
		Lease:       opts.Lease,
		NewestFirst: opts.NewestFirst,
	})
	if err != nil {
		return 0, err
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	recipients, err := p.resolveRecipients(ctx, claimed)
	if err != nil {
		// Claimed rows stay leased; the reaper reclaims them after expiry.
		return len(claimed), err
	}

	outcomes := p.dispatch(ctx, claimed, recipients)

	finals := make([]notification.Finalization, 0, len(claimed))
	for _, n := range claimed {
		finals = append(finals, p.finalize(n, outcomes[n.ID], opts.MaxAttempts, now))
	}
	if err := p.outbox.FinalizeBatch(ctx, finals); err != nil {
		return len(claimed), err
	}

	for i, n := range claimed {
		p.m.dispatchTotal.WithLabelValues(string(n.Channel), string(finals[i].Status)).Inc()
		if finals[i].Status == notification.StatusFailed {
			p.m.deadTotal.WithLabelValues(string(n.Channel)).Inc()
		}
	}
	return len(claimed), nil
}

func (p *Processor) resolveRecipients(ctx context.Context, claimed []*notification.Notification) (map[uuid.UUID]*resident.Resident, error) {
	seen := make(map[uuid.UUID]struct{}, len(claimed))
	ids := make([]uuid.UUID, 0, len(claimed))
	for _, n := range claimed {
		if _, ok := seen[n.RecipientID]; ok {
			continue
		}
		seen[n.RecipientID] = struct{}{}
		ids = append(ids, n.RecipientID)
	}

	residents, err := p.recipients.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*resident.Resident, len(residents))
	for _, r := range residents {
		byID[r.ID] = r
	}
	return byID, nil
}

func (p *Processor) dispatch(
	ctx context.Context,
	claimed []*notification.Notification,
	recipients map[uuid.UUID]*resident.Resident,
) map[int64]outcome {
	outcomes := make(map[int64]outcome, len(claimed))
	var smsRows []*notification.Notification

	for _, n := range claimed {
		switch n.Channel {
		case notification.ChannelEmail:
			start := time.Now()
			out := p.email.Dispatch(ctx, n, recipients[n.RecipientID])
			p.observeLatency(n.Channel, out, time.Since(start))
			outcomes[n.ID] = out
		case notification.ChannelSMS:
			smsRows = append(smsRows, n)
		default:
			outcomes[n.ID] = skipOutcome(notification.SkipUnknownChannel)
		}
	}

	if len(smsRows) > 0 {
		start := time.Now()
		smsOutcomes := p.sms.DispatchGroup(ctx, smsRows, recipients)
		elapsed := time.Since(start)
		for id, out := range smsOutcomes {
			outcomes[id] = out
		}
		// One observation per group keeps the histogram honest about
		// provider round-trips rather than per-row bookkeeping.
		p.observeLatency(notification.ChannelSMS, outcome{terminal: notification.StatusSent}, elapsed)
	}
	return outcomes
}

func (p *Processor) observeLatency(channel notification.Channel, out outcome, elapsed time.Duration) {
	result := "failed"
	if out.terminal != "" {
		result = string(out.terminal)
	}
	p.m.dispatchLatency.WithLabelValues(string(channel), result).Observe(elapsed.Seconds())
}

// finalize turns a dispatch outcome into the row's next persisted state.
// Attempts is incremented exactly once per claim, whatever the outcome.
func (p *Processor) finalize(n *notification.Notification, out outcome, maxAttempts int, now time.Time) notification.Finalization {
	attempts := n.Attempts + 1
	f := notification.Finalization{
		ID:       n.ID,
		Attempts: attempts,
	}

	switch out.terminal {
	case notification.StatusSent:
		f.Status = notification.StatusSent
	case notification.StatusSkipped:
		f.Status = notification.StatusSkipped
		reason := truncateString(out.detail, p.lastErrorMaxLen)
		f.LastError = &reason
	default:
		detail := truncateString(out.detail, p.lastErrorMaxLen)
		f.LastError = &detail
		if attempts >= maxAttempts {
			f.Status = notification.StatusFailed
			p.log.WithFields(logrus.Fields{
				"id":       n.ID,
				"channel":  n.Channel,
				"attempts": attempts,
				"error":    detail,
			}).Error("notification exhausted delivery attempts")
		} else {
			f.Status = notification.StatusPending
			next := now.Add(Backoff(attempts))
			f.NextAttemptAt = &next
		}
	}
	return f
}

// ObserveDepth exports current queue depth gauges. Called periodically by
// the worker, never from the hot path.
func (p *Processor) ObserveDepth(ctx context.Context) error {
	counts, err := p.outbox.CountByStatus(ctx)
	if err != nil {
		return err
	}
	p.m.pending.Set(float64(counts[notification.StatusPending]))
	p.m.processing.Set(float64(counts[notification.StatusProcessing]))
	return nil
}
