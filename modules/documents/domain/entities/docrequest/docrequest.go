package docrequest

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusReleased Status = "released"
)

// DocumentRequest is a resident's request for an official document, e.g. a
// residency certificate or a business clearance.
type DocumentRequest struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ResidentID   uuid.UUID
	DocumentType string
	Purpose      string
	Status       Status
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func New(tenantID, residentID uuid.UUID, documentType, purpose string) *DocumentRequest {
	return &DocumentRequest{
		TenantID:     tenantID,
		ResidentID:   residentID,
		DocumentType: documentType,
		Purpose:      purpose,
		Status:       StatusPending,
	}
}

type FindParams struct {
	Status Status
	Limit  int
	Offset int
}
