package models

import "time"

type Resident struct {
	ID                 string
	TenantID           string
	FirstName          string
	LastName           string
	Email              string
	MobileNumber       string
	NotifyEmailEnabled bool
	NotifySMSEnabled   bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
