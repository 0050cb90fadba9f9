// Package jsondb is a storage backend that keeps users and bookmarks in memory
// and persists them to a JSON file: the file is read by New and rewritten by Close.
// An empty file name gives a purely in-memory store.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

// JSONDB implements storage.Storage on top of two maps guarded by a RWMutex.
type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	cache    cacheStruct
}

type storedUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Hash      string    `json:"hash"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cacheStruct struct {
	Users          map[int64]*storedUser      `json:"users"`
	Bookmarks      map[int64]*models.Bookmark `json:"bookmarks"`
	NextUserID     int64                      `json:"next_user_id"`
	NextBookmarkID int64                      `json:"next_bookmark_id"`
}

func newCache() cacheStruct {
	return cacheStruct{
		Users:          map[int64]*storedUser{},
		Bookmarks:      map[int64]*models.Bookmark{},
		NextUserID:     1,
		NextBookmarkID: 1,
	}
}

func (c *cacheStruct) normalize() {
	if c.Users == nil {
		c.Users = map[int64]*storedUser{}
	}
	if c.Bookmarks == nil {
		c.Bookmarks = map[int64]*models.Bookmark{}
	}
	for id := range c.Users {
		if id >= c.NextUserID {
			c.NextUserID = id + 1
		}
	}
	for id := range c.Bookmarks {
		if id >= c.NextBookmarkID {
			c.NextBookmarkID = id + 1
		}
	}
	if c.NextUserID < 1 {
		c.NextUserID = 1
	}
	if c.NextBookmarkID < 1 {
		c.NextBookmarkID = 1
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/writeToJSONFile(): error while `json.MarshalIndent()` calling: %w", err)
	}

	err = os.WriteFile(fileName, jsonData, 0600)
	if err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/writeToJSONFile(): error while `os.WriteFile()` calling: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *cacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return fmt.Errorf("in internal/db/jsondb/jsondb.go/parseJSONFile(): error while `decoder.Decode()` calling: %w", err)
	}

	return nil
}

// New loads the store from fileName, creating the file when it does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		cache:    newCache(),
	}
	if fileName == "" {
		return db, nil
	}

	err := parseJSONFile(fileName, &db.cache)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeToJSONFile(fileName, db.cache); err != nil {
			return nil, err
		}
		return db, nil
	}
	if err != nil {
		return nil, err
	}
	db.cache.normalize()

	return db, nil
}

// Ping always succeeds: the data lives in process memory.
func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the current state back to the file.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.cache)
}

// CreateUser stores a new user and returns it with its id and timestamps set.
func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.findUserByEmail(usr.Email) != nil {
		return nil, models.ErrDuplicateEmail
	}

	now := time.Now().UTC()
	stored := &storedUser{
		ID:        db.cache.NextUserID,
		Email:     usr.Email,
		Hash:      usr.Hash,
		FirstName: cloneString(usr.FirstName),
		LastName:  cloneString(usr.LastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	db.cache.Users[stored.ID] = stored
	db.cache.NextUserID++

	return stored.toUser(), nil
}

// GetUserByID returns models.ErrNotFound for unknown ids.
func (db *JSONDB) GetUserByID(ctx context.Context, userID int64) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, ok := db.cache.Users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}

	return stored.toUser(), nil
}

// GetUserByEmail returns models.ErrNotFound for unknown emails.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored := db.findUserByEmail(email)
	if stored == nil {
		return nil, models.ErrNotFound
	}

	return stored.toUser(), nil
}

// UpdateUser applies the non-nil fields of patch.
func (db *JSONDB) UpdateUser(ctx context.Context, userID int64, patch models.UserPatch) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.cache.Users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}

	if patch.Email != nil {
		if other := db.findUserByEmail(*patch.Email); other != nil && other.ID != userID {
			return nil, models.ErrDuplicateEmail
		}
		stored.Email = *patch.Email
	}
	if patch.FirstName != nil {
		stored.FirstName = cloneString(patch.FirstName)
	}
	if patch.LastName != nil {
		stored.LastName = cloneString(patch.LastName)
	}
	stored.UpdatedAt = time.Now().UTC()

	return stored.toUser(), nil
}

// CreateBookmark stores a new bookmark owned by bookmark.UserID.
func (db *JSONDB) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (*models.Bookmark, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.cache.Users[bookmark.UserID]; !ok {
		return nil, models.ErrNotFound
	}

	now := time.Now().UTC()
	stored := &models.Bookmark{
		ID:          db.cache.NextBookmarkID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       bookmark.Title,
		Description: cloneString(bookmark.Description),
		Link:        bookmark.Link,
		UserID:      bookmark.UserID,
	}
	db.cache.Bookmarks[stored.ID] = stored
	db.cache.NextBookmarkID++

	return cloneBookmark(stored), nil
}

// GetBookmarksByUser returns the user's bookmarks ordered by id.
func (db *JSONDB) GetBookmarksByUser(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	owned := funk.Filter(
		funk.Values(db.cache.Bookmarks),
		func(bookmark *models.Bookmark) bool {
			return bookmark.UserID == userID
		},
	).([]*models.Bookmark)

	result := make([]models.Bookmark, 0, len(owned))
	for _, bookmark := range owned {
		result = append(result, *cloneBookmark(bookmark))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// GetBookmarkByID looks the bookmark up by id alone.
func (db *JSONDB) GetBookmarkByID(ctx context.Context, bookmarkID int64) (*models.Bookmark, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, ok := db.cache.Bookmarks[bookmarkID]
	if !ok {
		return nil, models.ErrNotFound
	}

	return cloneBookmark(stored), nil
}

// GetUserBookmark returns the bookmark only when userID owns it.
func (db *JSONDB) GetUserBookmark(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, ok := db.cache.Bookmarks[bookmarkID]
	if !ok || stored.UserID != userID {
		return nil, models.ErrNotFound
	}

	return cloneBookmark(stored), nil
}

// UpdateBookmark applies the non-nil fields of patch to a bookmark owned by userID.
func (db *JSONDB) UpdateBookmark(
	ctx context.Context,
	userID,
	bookmarkID int64,
	patch models.BookmarkPatch,
) (*models.Bookmark, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.cache.Bookmarks[bookmarkID]
	if !ok || stored.UserID != userID {
		return nil, models.ErrNotFound
	}

	if patch.Title != nil {
		stored.Title = *patch.Title
	}
	if patch.Description != nil {
		stored.Description = cloneString(patch.Description)
	}
	if patch.Link != nil {
		stored.Link = *patch.Link
	}
	stored.UpdatedAt = time.Now().UTC()

	return cloneBookmark(stored), nil
}

// DeleteBookmark removes a bookmark owned by userID.
func (db *JSONDB) DeleteBookmark(ctx context.Context, userID, bookmarkID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.cache.Bookmarks[bookmarkID]
	if !ok || stored.UserID != userID {
		return models.ErrNotFound
	}
	delete(db.cache.Bookmarks, bookmarkID)

	return nil
}

// GetNumberOfUsers returns the number of registered users.
func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.cache.Users)), nil
}

// GetNumberOfBookmarks returns the number of stored bookmarks.
func (db *JSONDB) GetNumberOfBookmarks(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.cache.Bookmarks)), nil
}

func (db *JSONDB) findUserByEmail(email string) *storedUser {
	found := funk.Find(
		funk.Values(db.cache.Users),
		func(stored *storedUser) bool {
			return stored.Email == email
		},
	)
	if found == nil {
		return nil
	}

	return found.(*storedUser)
}

func (u *storedUser) toUser() *user.User {
	return &user.User{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Email:     u.Email,
		Hash:      u.Hash,
		FirstName: cloneString(u.FirstName),
		LastName:  cloneString(u.LastName),
	}
}

func cloneBookmark(bookmark *models.Bookmark) *models.Bookmark {
	result := *bookmark
	result.Description = cloneString(bookmark.Description)
	return &result
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	result := *value
	return &result
}
