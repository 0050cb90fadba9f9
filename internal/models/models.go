// Package models contains the request and response DTOs, merge-patch values
// and storage-level errors shared between the transport, service and storage layers.
package models

import (
	"errors"
	"time"
)

// Bookmark is a link saved by a user. UserID never changes after creation.
type Bookmark struct {
	ID          int64     `json:"id" db:"id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	Link        string    `json:"link" db:"link"`
	UserID      int64     `json:"userId" db:"user_id"`
}

// AuthRequest is the body of both the signup and the signin requests.
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// SigninResponse carries the issued bearer token.
type SigninResponse struct {
	AccessToken string `json:"access_token"`
}

// EditUserRequest is the body of PATCH /users. Absent fields are left untouched.
type EditUserRequest struct {
	Email     *string `json:"email" validate:"omitnil,email"`
	FirstName *string `json:"firstName" validate:"omitnil,max=255"`
	LastName  *string `json:"lastName" validate:"omitnil,max=255"`
}

// Patch converts the request into a storage-level merge patch.
func (r EditUserRequest) Patch() UserPatch {
	return UserPatch{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

// CreateBookmarkRequest is the body of POST /bookmarks.
type CreateBookmarkRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	Link        string  `json:"link" validate:"required"`
}

// EditBookmarkRequest is the body of PATCH /bookmarks/{id}. Absent fields are left untouched.
// An explicit null decodes to a nil pointer and is treated as absent, so a
// description can be replaced (also by "") but not removed.
type EditBookmarkRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1"`
	Description *string `json:"description"`
	Link        *string `json:"link" validate:"omitnil,min=1"`
}

// Patch converts the request into a storage-level merge patch.
func (r EditBookmarkRequest) Patch() BookmarkPatch {
	return BookmarkPatch{
		Title:       r.Title,
		Description: r.Description,
		Link:        r.Link,
	}
}

// UserPatch holds the user fields to change. A nil field means "keep the stored value".
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil
}

// BookmarkPatch holds the bookmark fields to change. A nil field means "keep the stored value".
type BookmarkPatch struct {
	Title       *string
	Description *string
	Link        *string
}

// IsEmpty reports whether the patch changes nothing.
func (p BookmarkPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Link == nil
}

// ErrorResponse is the JSON body of every failed HTTP request.
// Details maps a request field to the reason it was rejected.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// InternalStatsResponse is the body of GET /internal/stats.
type InternalStatsResponse struct {
	Users     int64 `json:"users"`
	Bookmarks int64 `json:"bookmarks"`
}

const (
	StorageTypeUnknown = iota
	StorageTypeSQL
	StorageTypeFile
	StorageTypeMemory
)

var (
	// ErrNotFound is returned by storages when no record matches the lookup.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned by storages when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
)
