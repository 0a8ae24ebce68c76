package models

import "time"

type DocumentRequest struct {
	ID           string
	TenantID     string
	ResidentID   string
	DocumentType string
	Purpose      string
	Status       string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
