// Package storagetest holds the behaviour every storage.Storage implementation
// must share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bkmrk/internal/db/storage"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

// Run executes the shared storage scenarios. newStorage must return an empty store.
func Run(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	t.Run("users", func(t *testing.T) {
		testUsers(t, newStorage(t))
	})
	t.Run("bookmarks", func(t *testing.T) {
		testBookmarks(t, newStorage(t))
	})
	t.Run("counters", func(t *testing.T) {
		testCounters(t, newStorage(t))
	})
}

func ptr(value string) *string {
	return &value
}

func testUsers(t *testing.T, theStorage storage.Storage) {
	ctx := context.Background()

	created, err := theStorage.CreateUser(ctx, &user.User{Email: "a@x.com", Hash: "hash-a"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, "hash-a", created.Hash)
	assert.Nil(t, created.FirstName)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = theStorage.CreateUser(ctx, &user.User{Email: "a@x.com", Hash: "other"})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	byID, err := theStorage.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)
	assert.Equal(t, "hash-a", byID.Hash)

	byEmail, err := theStorage.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = theStorage.GetUserByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = theStorage.GetUserByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, models.ErrNotFound)

	updated, err := theStorage.UpdateUser(ctx, created.ID, models.UserPatch{FirstName: ptr("Ann")})
	require.NoError(t, err)
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Ann", *updated.FirstName)
	assert.Nil(t, updated.LastName)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.Equal(t, "hash-a", updated.Hash)

	updated, err = theStorage.UpdateUser(ctx, created.ID, models.UserPatch{LastName: ptr("Lee")})
	require.NoError(t, err)
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Ann", *updated.FirstName)
	require.NotNil(t, updated.LastName)
	assert.Equal(t, "Lee", *updated.LastName)

	other, err := theStorage.CreateUser(ctx, &user.User{Email: "b@x.com", Hash: "hash-b"})
	require.NoError(t, err)

	_, err = theStorage.UpdateUser(ctx, other.ID, models.UserPatch{Email: ptr("a@x.com")})
	assert.ErrorIs(t, err, models.ErrDuplicateEmail)

	updated, err = theStorage.UpdateUser(ctx, other.ID, models.UserPatch{Email: ptr("c@x.com")})
	require.NoError(t, err)
	assert.Equal(t, "c@x.com", updated.Email)

	_, err = theStorage.UpdateUser(ctx, other.ID+1000, models.UserPatch{FirstName: ptr("Ghost")})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testBookmarks(t *testing.T, theStorage storage.Storage) {
	ctx := context.Background()

	owner, err := theStorage.CreateUser(ctx, &user.User{Email: "owner@x.com", Hash: "h"})
	require.NoError(t, err)
	stranger, err := theStorage.CreateUser(ctx, &user.User{Email: "stranger@x.com", Hash: "h"})
	require.NoError(t, err)

	empty, err := theStorage.GetBookmarksByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := theStorage.CreateBookmark(ctx, &models.Bookmark{
		UserID:      owner.ID,
		Title:       "Go",
		Description: ptr("The Go site"),
		Link:        "https://go.dev",
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, owner.ID, first.UserID)
	require.NotNil(t, first.Description)
	assert.Equal(t, "The Go site", *first.Description)

	second, err := theStorage.CreateBookmark(ctx, &models.Bookmark{
		UserID: owner.ID,
		Title:  "Chi",
		Link:   "https://go-chi.io",
	})
	require.NoError(t, err)
	assert.Nil(t, second.Description)

	foreign, err := theStorage.CreateBookmark(ctx, &models.Bookmark{
		UserID: stranger.ID,
		Title:  "Elsewhere",
		Link:   "https://example.com",
	})
	require.NoError(t, err)

	list, err := theStorage.GetBookmarksByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	unscoped, err := theStorage.GetBookmarkByID(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, stranger.ID, unscoped.UserID)

	_, err = theStorage.GetBookmarkByID(ctx, foreign.ID+1000)
	assert.ErrorIs(t, err, models.ErrNotFound)

	own, err := theStorage.GetUserBookmark(ctx, owner.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", own.Title)

	_, err = theStorage.GetUserBookmark(ctx, owner.ID, foreign.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	edited, err := theStorage.UpdateBookmark(ctx, owner.ID, first.ID, models.BookmarkPatch{Title: ptr("Go dev")})
	require.NoError(t, err)
	assert.Equal(t, "Go dev", edited.Title)
	assert.Equal(t, "https://go.dev", edited.Link)
	require.NotNil(t, edited.Description)
	assert.Equal(t, "The Go site", *edited.Description)
	assert.Equal(t, owner.ID, edited.UserID)

	_, err = theStorage.UpdateBookmark(ctx, owner.ID, foreign.ID, models.BookmarkPatch{Title: ptr("Mine now")})
	assert.ErrorIs(t, err, models.ErrNotFound)

	untouched, err := theStorage.GetBookmarkByID(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere", untouched.Title)

	assert.ErrorIs(t, theStorage.DeleteBookmark(ctx, owner.ID, foreign.ID), models.ErrNotFound)
	require.NoError(t, theStorage.DeleteBookmark(ctx, owner.ID, first.ID))
	assert.ErrorIs(t, theStorage.DeleteBookmark(ctx, owner.ID, first.ID), models.ErrNotFound)

	_, err = theStorage.GetBookmarkByID(ctx, first.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err = theStorage.GetBookmarksByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}

func testCounters(t *testing.T, theStorage storage.Storage) {
	ctx := context.Background()

	require.NoError(t, theStorage.Ping(ctx))

	users, err := theStorage.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), users)

	usr, err := theStorage.CreateUser(ctx, &user.User{Email: "count@x.com", Hash: "h"})
	require.NoError(t, err)
	for _, title := range []string{"one", "two", "three"} {
		_, err := theStorage.CreateBookmark(ctx, &models.Bookmark{UserID: usr.ID, Title: title, Link: "l"})
		require.NoError(t, err)
	}

	users, err = theStorage.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), users)

	bookmarks, err := theStorage.GetNumberOfBookmarks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), bookmarks)
}
