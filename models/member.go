package models

import (
	"time"
)

// Member is the core's read-only view of a registered SACCO member.
// Registration and profile management live outside this service.
type Member struct {
	ID          int64     `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"full_name"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
