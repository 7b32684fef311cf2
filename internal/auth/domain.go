package auth

import "time"

// User represents a login account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	RoleID       int64
	Suspended    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
