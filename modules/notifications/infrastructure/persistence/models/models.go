package models

import "time"

type Notification struct {
	ID            int64
	TenantID      string
	RecipientID   string
	Channel       string
	EventType     string
	EntityID      string
	Payload       []byte
	Status        string
	Attempts      int
	NextAttemptAt *time.Time
	LastError     *string
	DedupeKey     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
