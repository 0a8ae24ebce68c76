package resident

import (
	"time"

	"github.com/google/uuid"
)

// Resident is a registered portal user. The notification engine reads
// residents as recipients; it never mutates them.
type Resident struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string

	NotifyEmailEnabled bool
	NotifySMSEnabled   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Resident) FullName() string {
	if r.FirstName == "" {
		return r.LastName
	}
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

type FindParams struct {
	Limit  int
	Offset int
}
