package notification

import (
	"context"
	"time"

	"github.com/itszoriel/munlink-sub001/pkg/serrors"
)

var ErrDuplicateDedupeKey = serrors.NewError(
	"NOTIFICATION_DUPLICATE_DEDUPE_KEY",
	"a notification with this dedupe key already exists",
	"",
)

type ClaimParams struct {
	Now      time.Time
	MaxItems int
	// Lease is how long claimed rows stay invisible to other claimants
	// before they are considered abandoned.
	Lease time.Duration
	// NewestFirst flips the recency ordering so an inline flush picks up
	// the row that was just enqueued ahead of a deep backlog.
	NewestFirst bool
}

// Finalization is the terminal-or-retry decision for one claimed row.
type Finalization struct {
	ID            int64
	Status        Status
	Attempts      int
	NextAttemptAt *time.Time
	LastError     *string
}

type FindParams struct {
	Status Status
	Limit  int
	Offset int
}

// Repository is the outbox store. ReapExpired, ClaimBatch and FinalizeBatch
// each manage their own transaction: claiming must be committed before any
// dispatch happens, and finalization is one atomic commit per batch.
type Repository interface {
	Enqueue(ctx context.Context, n *Notification) (*Notification, error)
	ReapExpired(ctx context.Context, now time.Time) (int64, error)
	ClaimBatch(ctx context.Context, params ClaimParams) ([]*Notification, error)
	FinalizeBatch(ctx context.Context, finals []Finalization) error
	List(ctx context.Context, params *FindParams) ([]*Notification, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
