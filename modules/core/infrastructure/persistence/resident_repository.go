package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itszoriel/munlink-sub001/modules/core/infrastructure/persistence/models"

	"github.com/itszoriel/munlink-sub001/modules/core/domain/entities/resident"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
	"github.com/itszoriel/munlink-sub001/pkg/repo"
)

var ErrResidentNotFound = errors.New("resident not found")

const residentColumns = `id, tenant_id, first_name, last_name, email, mobile_number,
	notify_email_enabled, notify_sms_enabled, created_at, updated_at`

type ResidentRepository struct{}

func NewResidentRepository() resident.Repository {
	return &ResidentRepository{}
}

func (r *ResidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*resident.Resident, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+residentColumns+`
		FROM residents
		WHERE id = $1
	`, id)

	res, err := scanResident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResidentNotFound
	}
	return res, err
}

func (r *ResidentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*resident.Resident, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+residentColumns+`
		FROM residents
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*resident.Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *ResidentRepository) List(ctx context.Context, params *resident.FindParams) ([]*resident.Resident, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + residentColumns + `
		FROM residents
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*resident.Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *ResidentRepository) Create(ctx context.Context, res *resident.Resident) (*resident.Resident, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	dbRow := toDBResident(res)
	if dbRow.TenantID == uuid.Nil.String() || dbRow.TenantID == "" {
		tenantID, err := composables.UseTenantID(ctx)
		if err != nil {
			return nil, err
		}
		dbRow.TenantID = tenantID.String()
	}

	out := *res
	if err := tx.QueryRow(ctx, `
		INSERT INTO residents (
			tenant_id, first_name, last_name, email, mobile_number,
			notify_email_enabled, notify_sms_enabled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, tenant_id, created_at, updated_at
	`,
		dbRow.TenantID,
		dbRow.FirstName,
		dbRow.LastName,
		dbRow.Email,
		dbRow.MobileNumber,
		dbRow.NotifyEmailEnabled,
		dbRow.NotifySMSEnabled,
	).Scan(&out.ID, &out.TenantID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ResidentRepository) Update(ctx context.Context, res *resident.Resident) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE residents
		SET first_name = $2,
		    last_name = $3,
		    email = $4,
		    mobile_number = $5,
		    notify_email_enabled = $6,
		    notify_sms_enabled = $7,
		    updated_at = now()
		WHERE id = $1
	`,
		res.ID,
		res.FirstName,
		res.LastName,
		res.Email,
		res.MobileNumber,
		res.NotifyEmailEnabled,
		res.NotifySMSEnabled,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResidentNotFound
	}
	return nil
}

func scanResident(row pgx.Row) (*resident.Resident, error) {
	var m models.Resident
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.FirstName,
		&m.LastName,
		&m.Email,
		&m.MobileNumber,
		&m.NotifyEmailEnabled,
		&m.NotifySMSEnabled,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainResident(&m)
}

func toDomainResident(m *models.Resident) (*resident.Resident, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, err
	}
	return &resident.Resident{
		ID:                 id,
		TenantID:           tenantID,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Email:              m.Email,
		MobileNumber:       m.MobileNumber,
		NotifyEmailEnabled: m.NotifyEmailEnabled,
		NotifySMSEnabled:   m.NotifySMSEnabled,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, nil
}

func toDBResident(r *resident.Resident) *models.Resident {
	return &models.Resident{
		ID:                 r.ID.String(),
		TenantID:           r.TenantID.String(),
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		Email:              r.Email,
		MobileNumber:       r.MobileNumber,
		NotifyEmailEnabled: r.NotifyEmailEnabled,
		NotifySMSEnabled:   r.NotifySMSEnabled,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
