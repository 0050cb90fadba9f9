// Package user defines the user model used throughout the application,
// particularly for authentication and bookmark ownership.
package user

import "time"

// User represents a registered account.
// The password hash is kept for credential checks only and never leaves the service in a response.
type User struct {
	// ID is the unique numeric identifier of the user. Bookmarks refer to it as their owner.
	ID int64 `json:"id" db:"id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Email is unique across all users.
	Email string `json:"email" db:"email"`

	// Hash is the bcrypt hash of the user's password.
	Hash string `json:"-" db:"hash"`

	FirstName *string `json:"firstName" db:"first_name"`
	LastName  *string `json:"lastName" db:"last_name"`
}
