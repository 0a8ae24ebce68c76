package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/itszoriel/munlink-sub001/modules/documents/domain/entities/docrequest"
	"github.com/itszoriel/munlink-sub001/modules/documents/infrastructure/persistence/models"
	"github.com/itszoriel/munlink-sub001/pkg/composables"
	"github.com/itszoriel/munlink-sub001/pkg/repo"
)

var ErrDocumentRequestNotFound = errors.New("document request not found")

const documentRequestColumns = `id, tenant_id, resident_id, document_type, purpose,
	status, notes, created_at, updated_at`

type DocumentRequestRepository struct{}

func NewDocumentRequestRepository() docrequest.Repository {
	return &DocumentRequestRepository{}
}

func (r *DocumentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*docrequest.DocumentRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+documentRequestColumns+`
		FROM document_requests
		WHERE id = $1
	`, id)

	req, err := scanDocumentRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentRequestNotFound
	}
	return req, err
}

func (r *DocumentRequestRepository) List(ctx context.Context, params *docrequest.FindParams) ([]*docrequest.DocumentRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + documentRequestColumns + `
		FROM document_requests
		WHERE tenant_id = $1
	`
	args := []any{tenantID}
	if params != nil && params.Status != "" {
		query += " AND status = $2"
		args = append(args, string(params.Status))
	}
	query += " ORDER BY created_at DESC"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*docrequest.DocumentRequest
	for rows.Next() {
		req, err := scanDocumentRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, req)
	}
	return results, rows.Err()
}

func (r *DocumentRequestRepository) Create(ctx context.Context, req *docrequest.DocumentRequest) (*docrequest.DocumentRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	dbRow := toDBDocumentRequest(req)
	if dbRow.TenantID == uuid.Nil.String() || dbRow.TenantID == "" {
		tenantID, err := composables.UseTenantID(ctx)
		if err != nil {
			return nil, err
		}
		dbRow.TenantID = tenantID.String()
	}

	out := *req
	if err := tx.QueryRow(ctx, `
		INSERT INTO document_requests (
			tenant_id, resident_id, document_type, purpose, status, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, created_at, updated_at
	`,
		dbRow.TenantID,
		dbRow.ResidentID,
		dbRow.DocumentType,
		dbRow.Purpose,
		dbRow.Status,
		dbRow.Notes,
	).Scan(&out.ID, &out.TenantID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *DocumentRequestRepository) Update(ctx context.Context, req *docrequest.DocumentRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE document_requests
		SET status = $2,
		    notes = $3,
		    updated_at = now()
		WHERE id = $1
	`, req.ID, string(req.Status), req.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentRequestNotFound
	}
	return nil
}

func scanDocumentRequest(row pgx.Row) (*docrequest.DocumentRequest, error) {
	var m models.DocumentRequest
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.ResidentID,
		&m.DocumentType,
		&m.Purpose,
		&m.Status,
		&m.Notes,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return toDomainDocumentRequest(&m)
}

func toDomainDocumentRequest(m *models.DocumentRequest) (*docrequest.DocumentRequest, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, err
	}
	residentID, err := uuid.Parse(m.ResidentID)
	if err != nil {
		return nil, err
	}
	return &docrequest.DocumentRequest{
		ID:           id,
		TenantID:     tenantID,
		ResidentID:   residentID,
		DocumentType: m.DocumentType,
		Purpose:      m.Purpose,
		Status:       docrequest.Status(m.Status),
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func toDBDocumentRequest(r *docrequest.DocumentRequest) *models.DocumentRequest {
	return &models.DocumentRequest{
		ID:           r.ID.String(),
		TenantID:     r.TenantID.String(),
		ResidentID:   r.ResidentID.String(),
		DocumentType: r.DocumentType,
		Purpose:      r.Purpose,
		Status:       string(r.Status),
		Notes:        r.Notes,
	}
}
