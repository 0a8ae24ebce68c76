package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/itszoriel/munlink-sub001/modules/notifications/domain/entities/notification"
	"github.com/itszoriel/munlink-sub001/modules/notifications/infrastructure/persistence/models"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
	"github.com/itszoriel/munlink-sub001/pkg/repo"
)

const uniqueViolation = "23505"

const outboxColumns = `id, tenant_id, recipient_id, channel, event_type, entity_id, payload,
	status, attempts, next_attempt_at, last_error, dedupe_key, created_at, updated_at`

type OutboxRepository struct{}

func NewOutboxRepository() notification.Repository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	dbRow, err := toDBNotification(n)
	if err != nil {
		return nil, err
	}

	out := *n
	err = tx.QueryRow(ctx, `
		INSERT INTO notification_outbox (
			tenant_id, recipient_id, channel, event_type, entity_id, payload,
			status, attempts, next_attempt_at, dedupe_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', 0, now(), $7)
		RETURNING id, status, attempts, next_attempt_at, created_at, updated_at
	`,
		dbRow.TenantID,
		dbRow.RecipientID,
		dbRow.Channel,
		dbRow.EventType,
		dbRow.EntityID,
		dbRow.Payload,
		dbRow.DedupeKey,
	).Scan(&out.ID, &out.Status, &out.Attempts, &out.NextAttemptAt, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", notification.ErrDuplicateDedupeKey, n.DedupeKey)
		}
		return nil, fmt.Errorf("outbox enqueue: %w", err)
	}
	return &out, nil
}

// ReapExpired resets processing rows whose lease ran out back to pending,
// so a claimant that died mid-batch cannot strand them. Committed on its
// own before any claiming happens.
func (r *OutboxRepository) ReapExpired(ctx context.Context, now time.Time) (int64, error) {
	pool, err := composables.UsePool(ctx)
	if err != nil {
		return 0, err
	}

	tag, err := pool.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'pending', updated_at = now()
		WHERE status = 'processing' AND next_attempt_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("outbox reap: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimBatch selects eligible pending rows under FOR UPDATE SKIP LOCKED and
// marks them processing with a lease, all in one transaction committed
// before dispatch. Concurrent claimants get disjoint sets.
func (r *OutboxRepository) ClaimBatch(ctx context.Context, params notification.ClaimParams) ([]*notification.Notification, error) {
	var claimed []*notification.Notification

	err := composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}

		order := "created_at ASC"
		if params.NewestFirst {
			order = "created_at DESC"
		}
		q := fmt.Sprintf(`
			SELECT `+outboxColumns+`
			FROM notification_outbox
			WHERE status = 'pending'
			  AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
			ORDER BY attempts ASC, %s
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, order)

		rows, err := tx.Query(txCtx, q, params.Now, params.MaxItems)
		if err != nil {
			return fmt.Errorf("outbox claim select: %w", err)
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			n, err := scanNotification(rows)
			if err != nil {
				return fmt.Errorf("outbox claim scan: %w", err)
			}
			claimed = append(claimed, n)
			ids = append(ids, n.ID)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("outbox claim rows: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		leaseExpiry := params.Now.Add(params.Lease)
		if _, err := tx.Exec(txCtx, `
			UPDATE notification_outbox
			SET status = 'processing', next_attempt_at = $1, updated_at = now()
			WHERE id = ANY($2)
		`, leaseExpiry, ids); err != nil {
			return fmt.Errorf("outbox claim update: %w", err)
		}

		for _, n := range claimed {
			n.Status = notification.StatusProcessing
			n.NextAttemptAt = &leaseExpiry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// FinalizeBatch commits every row's terminal/retry decision atomically.
func (r *OutboxRepository) FinalizeBatch(ctx context.Context, finals []notification.Finalization) error {
	if len(finals) == 0 {
		return nil
	}

	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, f := range finals {
			batch.Queue(`
				UPDATE notification_outbox
				SET status = $2,
				    attempts = $3,
				    next_attempt_at = $4,
				    last_error = $5,
				    updated_at = now()
				WHERE id = $1
			`, f.ID, f.Status, f.Attempts, f.NextAttemptAt, f.LastError)
		}

		pgxTx, ok := tx.(pgx.Tx)
		if !ok {
			return errors.New("outbox finalize: transaction does not support batching")
		}
		results := pgxTx.SendBatch(txCtx, batch)
		defer func() { _ = results.Close() }()

		for range finals {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("outbox finalize: %w", err)
			}
		}
		return nil
	})
}

func (r *OutboxRepository) List(ctx context.Context, params *notification.FindParams) ([]*notification.Notification, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildOutboxFilters(params)
	query := `
		SELECT ` + outboxColumns + `
		FROM notification_outbox
		` + where + `
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

func (r *OutboxRepository) Count(ctx context.Context, params *notification.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	where, args := buildOutboxFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM notification_outbox `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[notification.Status]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT status, COUNT(*)
		FROM notification_outbox
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[notification.Status]int64{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[notification.Status(status)] = count
	}
	return counts, rows.Err()
}

func buildOutboxFilters(params *notification.FindParams) (string, []any) {
	if params == nil || params.Status == "" {
		return "", nil
	}
	return "WHERE status = $1", []any{string(params.Status)}
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var m models.Notification
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.RecipientID,
		&m.Channel,
		&m.EventType,
		&m.EntityID,
		&m.Payload,
		&m.Status,
		&m.Attempts,
		&m.NextAttemptAt,
		&m.LastError,
		&m.DedupeKey,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainNotification(&m)
}

func toDomainNotification(m *models.Notification) (*notification.Notification, error) {
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, err
	}
	recipientID, err := uuid.Parse(m.RecipientID)
	if err != nil {
		return nil, err
	}

	n := &notification.Notification{
		ID:            m.ID,
		TenantID:      tenantID,
		RecipientID:   recipientID,
		Channel:       notification.Channel(m.Channel),
		EventType:     m.EventType,
		EntityID:      m.EntityID,
		Status:        notification.Status(m.Status),
		Attempts:      m.Attempts,
		NextAttemptAt: m.NextAttemptAt,
		LastError:     m.LastError,
		DedupeKey:     m.DedupeKey,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}

	switch n.Channel {
	case notification.ChannelEmail:
		var p notification.EmailPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode email payload for outbox row %d: %w", m.ID, err)
		}
		n.Email = &p
	case notification.ChannelSMS:
		var p notification.SMSPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode sms payload for outbox row %d: %w", m.ID, err)
		}
		n.SMS = &p
	}
	return n, nil
}

func toDBNotification(n *notification.Notification) (*models.Notification, error) {
	var payload any
	switch n.Channel {
	case notification.ChannelEmail:
		payload = n.Email
	case notification.ChannelSMS:
		payload = n.SMS
	default:
		return nil, fmt.Errorf("unknown notification channel %q", n.Channel)
	}
	if payload == nil {
		return nil, fmt.Errorf("notification payload is required for channel %q", n.Channel)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &models.Notification{
		ID:            n.ID,
		TenantID:      n.TenantID.String(),
		RecipientID:   n.RecipientID.String(),
		Channel:       string(n.Channel),
		EventType:     n.EventType,
		EntityID:      n.EntityID,
		Payload:       raw,
		Status:        string(n.Status),
		Attempts:      n.Attempts,
		NextAttemptAt: n.NextAttemptAt,
		LastError:     n.LastError,
		DedupeKey:     n.DedupeKey,
	}, nil
}
