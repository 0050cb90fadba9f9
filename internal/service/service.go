// Package service implements the business rules of the bookmarks API:
// account signup and signin, profile edits and owner-scoped bookmark CRUD.
// Transport layers (HTTP router, gRPC handler) translate its errors into statuses.
package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/bkmrk/internal/auth"
	"github.com/patric-chuzhbe/bkmrk/internal/metrics"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)
	GetUserByID(ctx context.Context, userID int64) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateUser(ctx context.Context, userID int64, patch models.UserPatch) (*user.User, error)
}

type bookmarkKeeper interface {
	CreateBookmark(ctx context.Context, bookmark *models.Bookmark) (*models.Bookmark, error)
	GetBookmarksByUser(ctx context.Context, userID int64) ([]models.Bookmark, error)
	GetBookmarkByID(ctx context.Context, bookmarkID int64) (*models.Bookmark, error)
	GetUserBookmark(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error)
	UpdateBookmark(ctx context.Context, userID, bookmarkID int64, patch models.BookmarkPatch) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, bookmarkID int64) error
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfBookmarks(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	bookmarkKeeper
	statsKeeper
	pinger
}

type tokenIssuer interface {
	IssueToken(usr *user.User) (string, error)
}

var (
	// ErrConflict is returned when the email is already registered.
	ErrConflict = errors.New("credentials taken")

	// ErrInvalidCredentials is returned by Signin for an unknown email and for a wrong password alike.
	ErrInvalidCredentials = errors.New("credentials incorrect")

	// ErrForbidden is returned when the bookmark exists but belongs to another user.
	ErrForbidden = errors.New("access to resources denied")

	// ErrNotFound is returned when a bookmark to edit or delete does not exist.
	ErrNotFound = models.ErrNotFound
)

// Service holds the storage and the token issuer shared by all operations.
type Service struct {
	db       storage
	tokens   tokenIssuer
	hashCost int
}

// InitOption configures a Service.
type InitOption func(*Service)

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) InitOption {
	return func(s *Service) {
		s.hashCost = cost
	}
}

// New creates a Service.
func New(db storage, tokens tokenIssuer, optionsProto ...InitOption) *Service {
	result := &Service{
		db:       db,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
	for _, protoOption := range optionsProto {
		protoOption(result)
	}

	return result
}

// Signup registers a new user. The input is expected to be validated already.
func (s *Service) Signup(ctx context.Context, email, password string) (*user.User, error) {
	hash, err := auth.HashPassword(password, s.hashCost)
	if err != nil {
		return nil, err
	}

	usr, err := s.db.CreateUser(ctx, &user.User{
		Email: email,
		Hash:  hash,
	})
	if errors.Is(err, models.ErrDuplicateEmail) {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "conflict").Inc()
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Signup(): error while `s.db.CreateUser()` calling: %w", err)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("signup", "success").Inc()

	return usr, nil
}

// Signin checks the credentials and returns a signed access token.
func (s *Service) Signin(ctx context.Context, email, password string) (string, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		metrics.AuthAttemptsTotal.WithLabelValues("signin", "failure").Inc()
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("in internal/service/service.go/Signin(): error while `s.db.GetUserByEmail()` calling: %w", err)
	}

	if !auth.CheckPassword(usr.Hash, password) {
		metrics.AuthAttemptsTotal.WithLabelValues("signin", "failure").Inc()
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(usr)
	if err != nil {
		return "", fmt.Errorf("in internal/service/service.go/Signin(): error while `s.tokens.IssueToken()` calling: %w", err)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("signin", "success").Inc()

	return token, nil
}

// GetCurrentUser returns the already authenticated user as is.
func (s *Service) GetCurrentUser(usr *user.User) *user.User {
	return usr
}

// EditUser applies the present fields of patch to the user's own record.
func (s *Service) EditUser(ctx context.Context, userID int64, patch models.UserPatch) (*user.User, error) {
	if patch.IsEmpty() {
		return s.db.GetUserByID(ctx, userID)
	}

	usr, err := s.db.UpdateUser(ctx, userID, patch)
	if errors.Is(err, models.ErrDuplicateEmail) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/EditUser(): error while `s.db.UpdateUser()` calling: %w", err)
	}

	return usr, nil
}

// CreateBookmark stores a bookmark owned by userID.
func (s *Service) CreateBookmark(
	ctx context.Context,
	userID int64,
	request models.CreateBookmarkRequest,
) (*models.Bookmark, error) {
	bookmark, err := s.db.CreateBookmark(ctx, &models.Bookmark{
		UserID:      userID,
		Title:       request.Title,
		Description: request.Description,
		Link:        request.Link,
	})
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/CreateBookmark(): error while `s.db.CreateBookmark()` calling: %w", err)
	}
	metrics.BookmarkOperationsTotal.WithLabelValues("create").Inc()

	return bookmark, nil
}

// GetBookmarks returns every bookmark owned by userID. The result is never nil.
func (s *Service) GetBookmarks(ctx context.Context, userID int64) ([]models.Bookmark, error) {
	bookmarks, err := s.db.GetBookmarksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/GetBookmarks(): error while `s.db.GetBookmarksByUser()` calling: %w", err)
	}
	if bookmarks == nil {
		bookmarks = []models.Bookmark{}
	}

	return bookmarks, nil
}

// GetBookmarkByID returns the caller's bookmark, or nil without an error when no bookmark has that id.
func (s *Service) GetBookmarkByID(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error) {
	if err := s.checkBookmarkOwner(ctx, userID, bookmarkID); err != nil {
		return nil, err
	}

	bookmark, err := s.db.GetUserBookmark(ctx, userID, bookmarkID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/GetBookmarkByID(): error while `s.db.GetUserBookmark()` calling: %w", err)
	}

	return bookmark, nil
}

// EditBookmarkByID applies the present fields of patch to the caller's bookmark.
func (s *Service) EditBookmarkByID(
	ctx context.Context,
	userID,
	bookmarkID int64,
	patch models.BookmarkPatch,
) (*models.Bookmark, error) {
	if err := s.checkBookmarkOwner(ctx, userID, bookmarkID); err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return s.getOwnBookmark(ctx, userID, bookmarkID)
	}

	bookmark, err := s.db.UpdateBookmark(ctx, userID, bookmarkID, patch)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/EditBookmarkByID(): error while `s.db.UpdateBookmark()` calling: %w", err)
	}
	metrics.BookmarkOperationsTotal.WithLabelValues("edit").Inc()

	return bookmark, nil
}

// DeleteBookmarkByID removes the caller's bookmark.
func (s *Service) DeleteBookmarkByID(ctx context.Context, userID, bookmarkID int64) error {
	if err := s.checkBookmarkOwner(ctx, userID, bookmarkID); err != nil {
		return err
	}

	err := s.db.DeleteBookmark(ctx, userID, bookmarkID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/DeleteBookmarkByID(): error while `s.db.DeleteBookmark()` calling: %w", err)
	}
	metrics.BookmarkOperationsTotal.WithLabelValues("delete").Inc()

	return nil
}

// GetInternalStats returns the number of users and bookmarks.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, fmt.Errorf("in internal/service/service.go/GetInternalStats(): error while `s.db.GetNumberOfUsers()` calling: %w", err)
	}

	bookmarks, err := s.db.GetNumberOfBookmarks(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, fmt.Errorf("in internal/service/service.go/GetInternalStats(): error while `s.db.GetNumberOfBookmarks()` calling: %w", err)
	}

	return models.InternalStatsResponse{
		Users:     users,
		Bookmarks: bookmarks,
	}, nil
}

// Ping checks that the storage is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// checkBookmarkOwner looks the bookmark up by id alone. A bookmark owned by
// someone else is ErrForbidden; a missing bookmark is left for the following
// owner-scoped storage call to report.
func (s *Service) checkBookmarkOwner(ctx context.Context, userID, bookmarkID int64) error {
	bookmark, err := s.db.GetBookmarkByID(ctx, bookmarkID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/checkBookmarkOwner(): error while `s.db.GetBookmarkByID()` calling: %w", err)
	}
	if bookmark.UserID != userID {
		metrics.ForbiddenAccessTotal.Inc()
		return ErrForbidden
	}

	return nil
}

func (s *Service) getOwnBookmark(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error) {
	bookmark, err := s.db.GetUserBookmark(ctx, userID, bookmarkID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/getOwnBookmark(): error while `s.db.GetUserBookmark()` calling: %w", err)
	}

	return bookmark, nil
}
