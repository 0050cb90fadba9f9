// Package storage declares the full set of operations every storage backend
// (SQL, JSON file, in-memory) provides to the application.
package storage

import (
	"context"

	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

// Storage is implemented by sqldb.SQLDB, jsondb.JSONDB and memorystorage.MemoryStorage.
//
// Lookups that match nothing return models.ErrNotFound. Creating or updating a
// user with an email that is already taken returns models.ErrDuplicateEmail.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)

	GetUserByID(ctx context.Context, userID int64) (*user.User, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	UpdateUser(ctx context.Context, userID int64, patch models.UserPatch) (*user.User, error)

	CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (*models.Bookmark, error)

	GetBookmarksByUser(ctx context.Context, userID int64) ([]models.Bookmark, error)

	// GetBookmarkByID looks the bookmark up by id alone, whoever owns it.
	GetBookmarkByID(ctx context.Context, bookmarkID int64) (*models.Bookmark, error)

	GetUserBookmark(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error)

	UpdateBookmark(
		ctx context.Context,
		userID,
		bookmarkID int64,
		patch models.BookmarkPatch,
	) (*models.Bookmark, error)

	DeleteBookmark(ctx context.Context, userID, bookmarkID int64) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfBookmarks(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
