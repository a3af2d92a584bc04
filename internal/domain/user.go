package domain

import "time"

// User is a registered account. Credentials are immutable after registration;
// there is no rotation or deletion path.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
