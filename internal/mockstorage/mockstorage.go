// Package mockstorage provides a testify-based mock implementation
// of storage.Storage. It is used to simulate storage failures and
// to assert which storage calls a service operation makes.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers is an optional function field that can be assigned
	// to define custom mock behavior for GetNumberOfUsers in tests.
	//
	// If set, GetNumberOfUsers will delegate to this function instead of
	// returning zero.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfBookmarks works like OnGetNumberOfUsers for GetNumberOfBookmarks.
	OnGetNumberOfBookmarks func(ctx context.Context) (int64, error)
}

// Ping mocks the storage health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CreateUser mocks user creation.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	args := m.Called(ctx, usr)
	created, _ := args.Get(0).(*user.User)
	return created, args.Error(1)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// GetUserByEmail mocks fetching a user by their email.
func (m *StorageMock) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// UpdateUser mocks a partial user update.
func (m *StorageMock) UpdateUser(ctx context.Context, userID int64, patch models.UserPatch) (*user.User, error) {
	args := m.Called(ctx, userID, patch)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// CreateBookmark mocks bookmark creation.
func (m *StorageMock) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (*models.Bookmark, error) {
	args := m.Called(ctx, bookmark)
	created, _ := args.Get(0).(*models.Bookmark)
	return created, args.Error(1)
}

// GetBookmarksByUser mocks listing a user's bookmarks.
func (m *StorageMock) GetBookmarksByUser(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	args := m.Called(ctx, userID)
	bookmarks, _ := args.Get(0).([]models.Bookmark)
	return bookmarks, args.Error(1)
}

// GetBookmarkByID mocks the owner-agnostic bookmark lookup.
func (m *StorageMock) GetBookmarkByID(ctx context.Context, bookmarkID int64) (*models.Bookmark, error) {
	args := m.Called(ctx, bookmarkID)
	bookmark, _ := args.Get(0).(*models.Bookmark)
	return bookmark, args.Error(1)
}

// GetUserBookmark mocks the owner-scoped bookmark lookup.
func (m *StorageMock) GetUserBookmark(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error) {
	args := m.Called(ctx, userID, bookmarkID)
	bookmark, _ := args.Get(0).(*models.Bookmark)
	return bookmark, args.Error(1)
}

// UpdateBookmark mocks the owner-scoped partial bookmark update.
func (m *StorageMock) UpdateBookmark(
	ctx context.Context,
	userID,
	bookmarkID int64,
	patch models.BookmarkPatch,
) (*models.Bookmark, error) {
	args := m.Called(ctx, userID, bookmarkID, patch)
	bookmark, _ := args.Get(0).(*models.Bookmark)
	return bookmark, args.Error(1)
}

// DeleteBookmark mocks the owner-scoped bookmark deletion.
func (m *StorageMock) DeleteBookmark(ctx context.Context, userID, bookmarkID int64) error {
	args := m.Called(ctx, userID, bookmarkID)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetNumberOfUsers returns the number of users as defined by the mock.
//
// If OnGetNumberOfUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

// GetNumberOfBookmarks returns the number of stored bookmarks as defined by the mock.
func (m *StorageMock) GetNumberOfBookmarks(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfBookmarks != nil {
		return m.OnGetNumberOfBookmarks(ctx)
	}
	return 0, nil
}
