package grpcserver

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/bkmrk/internal/auth"
	"github.com/patric-chuzhbe/bkmrk/internal/logger"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/service"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
	"github.com/patric-chuzhbe/bkmrk/internal/validation"
)

type bookmarksService interface {
	Signup(ctx context.Context, email, password string) (*user.User, error)
	Signin(ctx context.Context, email, password string) (string, error)
	GetCurrentUser(usr *user.User) *user.User
	EditUser(ctx context.Context, userID int64, patch models.UserPatch) (*user.User, error)
	CreateBookmark(ctx context.Context, userID int64, request models.CreateBookmarkRequest) (*models.Bookmark, error)
	GetBookmarks(ctx context.Context, userID int64) ([]models.Bookmark, error)
	GetBookmarkByID(ctx context.Context, userID, bookmarkID int64) (*models.Bookmark, error)
	EditBookmarkByID(ctx context.Context, userID, bookmarkID int64, patch models.BookmarkPatch) (*models.Bookmark, error)
	DeleteBookmarkByID(ctx context.Context, userID, bookmarkID int64) error
	Ping(ctx context.Context) error
}

// BookmarksHandler implements BookmarkServiceServer on top of the service layer.
type BookmarksHandler struct {
	svc       bookmarksService
	validator *validation.Validator
}

// NewBookmarksHandler creates a handler.
func NewBookmarksHandler(svc bookmarksService) *BookmarksHandler {
	return &BookmarksHandler{
		svc:       svc,
		validator: validation.New(),
	}
}

func (h *BookmarksHandler) Ping(ctx context.Context, _ *Empty) (*Empty, error) {
	if err := h.svc.Ping(ctx); err != nil {
		return nil, status.Error(codes.Unavailable, "storage is unavailable")
	}
	return &Empty{}, nil
}

func (h *BookmarksHandler) Signup(ctx context.Context, req *models.AuthRequest) (*user.User, error) {
	if err := h.validate(req); err != nil {
		return nil, err
	}

	usr, err := h.svc.Signup(ctx, req.Email, req.Password)
	if err != nil {
		return nil, statusFromError(err, "h.svc.Signup()")
	}

	return usr, nil
}

func (h *BookmarksHandler) Signin(ctx context.Context, req *models.AuthRequest) (*models.SigninResponse, error) {
	if err := h.validate(req); err != nil {
		return nil, err
	}

	token, err := h.svc.Signin(ctx, req.Email, req.Password)
	if err != nil {
		return nil, statusFromError(err, "h.svc.Signin()")
	}

	return &models.SigninResponse{AccessToken: token}, nil
}

func (h *BookmarksHandler) GetMe(ctx context.Context, _ *Empty) (*user.User, error) {
	usr, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	return h.svc.GetCurrentUser(usr), nil
}

func (h *BookmarksHandler) EditUser(ctx context.Context, req *models.EditUserRequest) (*user.User, error) {
	usr, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validate(req); err != nil {
		return nil, err
	}

	edited, err := h.svc.EditUser(ctx, usr.ID, req.Patch())
	if err != nil {
		return nil, statusFromError(err, "h.svc.EditUser()")
	}

	return edited, nil
}

func (h *BookmarksHandler) CreateBookmark(ctx context.Context, req *models.CreateBookmarkRequest) (*models.Bookmark, error) {
	usr, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validate(req); err != nil {
		return nil, err
	}

	bookmark, err := h.svc.CreateBookmark(ctx, usr.ID, *req)
	if err != nil {
		return nil, statusFromError(err, "h.svc.CreateBookmark()")
	}

	return bookmark, nil
}

func (h *BookmarksHandler) GetBookmarks(ctx context.Context, _ *Empty) (*BookmarkListResponse, error) {
	usr, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	bookmarks, err := h.svc.GetBookmarks(ctx, usr.ID)
	if err != nil {
		return nil, statusFromError(err, "h.svc.GetBookmarks()")
	}

	return &BookmarkListResponse{Bookmarks: bookmarks}, nil
}

func (h *BookmarksHandler) GetBookmark(ctx context.Context, req *BookmarkIDRequest) (*BookmarkResponse, error) {
	usr, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	bookmark, err := h.svc.GetBookmarkByID(ctx, usr.ID, req.ID)
	if err != nil {
		return nil, statusFromError(err, "h.svc.GetBookmarkByID()")
	}

	return &BookmarkResponse{Bookmark: bookmark}, nil
}

func (h *BookmarksHandler) EditBookmark(ctx context.Context, req *EditBookmarkRequest) (*models.Bookmark, error) {
	usr, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validate(&req.EditBookmarkRequest); err != nil {
		return nil, err
	}

	bookmark, err := h.svc.EditBookmarkByID(ctx, usr.ID, req.ID, req.Patch())
	if err != nil {
		return nil, statusFromError(err, "h.svc.EditBookmarkByID()")
	}

	return bookmark, nil
}

func (h *BookmarksHandler) DeleteBookmark(ctx context.Context, req *BookmarkIDRequest) (*Empty, error) {
	usr, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.svc.DeleteBookmarkByID(ctx, usr.ID, req.ID); err != nil {
		return nil, statusFromError(err, "h.svc.DeleteBookmarkByID()")
	}

	return &Empty{}, nil
}

func (h *BookmarksHandler) validate(req interface{}) error {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}

	details, ok := validation.Details(err)
	if !ok {
		logger.Log.Errorln("Error calling the `h.validator.Struct()`: ", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}

	fields := make([]string, 0, len(details))
	for field := range details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	reasons := make([]string, 0, len(fields))
	for _, field := range fields {
		reasons = append(reasons, field+": "+details[field])
	}

	return status.Error(codes.InvalidArgument, validation.ErrValidation.Error()+": "+strings.Join(reasons, "; "))
}

func currentUser(ctx context.Context) (*user.User, error) {
	usr, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	return usr, nil
}

func statusFromError(err error, calledFunc string) error {
	switch {
	case errors.Is(err, service.ErrConflict):
		return status.Error(codes.AlreadyExists, service.ErrConflict.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.PermissionDenied, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, service.ErrForbidden.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, service.ErrNotFound.Error())
	default:
		logger.Log.Errorln("Error calling the `"+calledFunc+"`: ", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
