package data

import (
	"time"
)

// User is an account of the web application, keyed by its authentication
// subject.
type User struct {
	ID          int64     `db:"id" json:"id"`
	Subject     string    `db:"subject" json:"subject"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AuthHash    string    `db:"auth_hash" json:"auth_hash"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
