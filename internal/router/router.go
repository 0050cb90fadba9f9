// Package router wires the chi HTTP surface of the bookmarks API: routing,
// middleware, request decoding and the mapping of service errors to statuses.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/bkmrk/internal/auth"
	"github.com/patric-chuzhbe/bkmrk/internal/authenticator"
	"github.com/patric-chuzhbe/bkmrk/internal/gzippedhttp"
	"github.com/patric-chuzhbe/bkmrk/internal/logger"
	"github.com/patric-chuzhbe/bkmrk/internal/metrics"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/service"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
	"github.com/patric-chuzhbe/bkmrk/internal/validation"
)

type ipChecker interface {
	TrustedOnly(h http.Handler) http.Handler
}

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
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
	Ping(ctx context.Context) error
}

// Router holds the dependencies shared by the HTTP handlers.
type Router struct {
	svc       bookmarksService
	validator *validation.Validator
}

type initOptions struct {
	authRateLimit int
}

// InitOption configures New.
type InitOption func(*initOptions)

// WithAuthRateLimit limits /auth requests per connection IP per minute. Zero disables the limit.
// Forwarding headers are not consulted, so clients cannot pick their own key.
func WithAuthRateLimit(requestsPerMinute int) InitOption {
	return func(options *initOptions) {
		options.authRateLimit = requestsPerMinute
	}
}

// New builds the chi router of the service.
func New(
	authMiddleware authenticator.Authenticator,
	checker ipChecker,
	svc bookmarksService,
	optionsProto ...InitOption,
) *chi.Mux {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	theRouter := &Router{
		svc:       svc,
		validator: validation.New(),
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
	})

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		secureMiddleware.Handler,
		metrics.Middleware,
	)

	router.Get(`/metrics`, promhttp.Handler().ServeHTTP)

	router.Group(func(router chi.Router) {
		router.Use(
			gzippedhttp.UngzipRequest,
			gzippedhttp.GzipResponse,
		)

		router.Get(`/ping`, theRouter.GetPing)
		router.With(checker.TrustedOnly).Get(`/internal/stats`, theRouter.GetInternalstats)

		router.Route(`/auth`, func(router chi.Router) {
			if options.authRateLimit > 0 {
				router.Use(httprate.Limit(
					options.authRateLimit,
					time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(response http.ResponseWriter, request *http.Request) {
						writeError(response, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), nil)
					}),
				))
			}
			router.Post(`/signup`, theRouter.PostAuthsignup)
			router.Post(`/signin`, theRouter.PostAuthsignin)
		})

		router.Group(func(router chi.Router) {
			router.Use(authMiddleware.AuthenticateUser)

			router.Get(`/users/me`, theRouter.GetUsersme)
			router.Patch(`/users`, theRouter.PatchUsers)

			router.Post(`/bookmarks`, theRouter.PostBookmarks)
			router.Get(`/bookmarks`, theRouter.GetBookmarks)
			router.Get(`/bookmarks/{id}`, theRouter.GetBookmarksid)
			router.Patch(`/bookmarks/{id}`, theRouter.PatchBookmarksid)
			router.Delete(`/bookmarks/{id}`, theRouter.DeleteBookmarksid)
		})
	})

	return router
}

// GetPing answers 200 when the storage is reachable.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorln("Error calling the `router.svc.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalstats returns the number of users and bookmarks.
func (router *Router) GetInternalstats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		router.writeServiceError(response, err, "router.svc.GetInternalStats()")
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// PostAuthsignup registers a user and returns it without the password hash.
func (router *Router) PostAuthsignup(response http.ResponseWriter, request *http.Request) {
	var payload models.AuthRequest
	if !router.decodeRequest(response, request, &payload) {
		return
	}

	usr, err := router.svc.Signup(request.Context(), payload.Email, payload.Password)
	if err != nil {
		router.writeServiceError(response, err, "router.svc.Signup()")
		return
	}

	writeJSON(response, http.StatusCreated, usr)
}

// PostAuthsignin exchanges valid credentials for an access token.
func (router *Router) PostAuthsignin(response http.ResponseWriter, request *http.Request) {
	var payload models.AuthRequest
	if !router.decodeRequest(response, request, &payload) {
		return
	}

	token, err := router.svc.Signin(request.Context(), payload.Email, payload.Password)
	if err != nil {
		router.writeServiceError(response, err, "router.svc.Signin()")
		return
	}

	writeJSON(response, http.StatusOK, models.SigninResponse{AccessToken: token})
}

// GetUsersme returns the authenticated user.
func (router *Router) GetUsersme(response http.ResponseWriter, request *http.Request) {
	usr, ok := currentUser(response, request)
	if !ok {
		return
	}

	writeJSON(response, http.StatusOK, router.svc.GetCurrentUser(usr))
}

// PatchUsers applies a merge patch to the authenticated user.
func (router *Router) PatchUsers(response http.ResponseWriter, request *http.Request) {
	usr, ok := currentUser(response, request)
	if !ok {
		return
	}

	var payload models.EditUserRequest
	if !router.decodeRequest(response, request, &payload) {
		return
	}

	edited, err := router.svc.EditUser(request.Context(), usr.ID, payload.Patch())
	if err != nil {
		router.writeServiceError(response, err, "router.svc.EditUser()")
		return
	}

	writeJSON(response, http.StatusOK, edited)
}

// PostBookmarks creates a bookmark owned by the authenticated user.
func (router *Router) PostBookmarks(response http.ResponseWriter, request *http.Request) {
	usr, ok := currentUser(response, request)
	if !ok {
		return
	}

	var payload models.CreateBookmarkRequest
	if !router.decodeRequest(response, request, &payload) {
		return
	}

	bookmark, err := router.svc.CreateBookmark(request.Context(), usr.ID, payload)
	if err != nil {
		router.writeServiceError(response, err, "router.svc.CreateBookmark()")
		return
	}

	writeJSON(response, http.StatusCreated, bookmark)
}

// GetBookmarks lists the authenticated user's bookmarks.
func (router *Router) GetBookmarks(response http.ResponseWriter, request *http.Request) {
	usr, ok := currentUser(response, request)
	if !ok {
		return
	}

	bookmarks, err := router.svc.GetBookmarks(request.Context(), usr.ID)
	if err != nil {
		router.writeServiceError(response, err, "router.svc.GetBookmarks()")
		return
	}

	writeJSON(response, http.StatusOK, bookmarks)
}

// GetBookmarksid returns one bookmark, or JSON null when the id is unknown.
func (router *Router) GetBookmarksid(response http.ResponseWriter, request *http.Request) {
	usr, ok := currentUser(response, request)
	if !ok {
		return
	}
	bookmarkID, ok := bookmarkIDParam(response, request)
	if !ok {
		return
	}

	bookmark, err := router.svc.GetBookmarkByID(request.Context(), usr.ID, bookmarkID)
	if err != nil {
		router.writeServiceError(response, err, "router.svc.GetBookmarkByID()")
		return
	}

	writeJSON(response, http.StatusOK, bookmark)
}

// PatchBookmarksid applies a merge patch to one of the user's bookmarks.
func (router *Router) PatchBookmarksid(response http.ResponseWriter, request *http.Request) {
	usr, ok := currentUser(response, request)
	if !ok {
		return
	}
	bookmarkID, ok := bookmarkIDParam(response, request)
	if !ok {
		return
	}

	var payload models.EditBookmarkRequest
	if !router.decodeRequest(response, request, &payload) {
		return
	}

	bookmark, err := router.svc.EditBookmarkByID(request.Context(), usr.ID, bookmarkID, payload.Patch())
	if err != nil {
		router.writeServiceError(response, err, "router.svc.EditBookmarkByID()")
		return
	}

	writeJSON(response, http.StatusOK, bookmark)
}

// DeleteBookmarksid removes one of the user's bookmarks.
func (router *Router) DeleteBookmarksid(response http.ResponseWriter, request *http.Request) {
	usr, ok := currentUser(response, request)
	if !ok {
		return
	}
	bookmarkID, ok := bookmarkIDParam(response, request)
	if !ok {
		return
	}

	err := router.svc.DeleteBookmarkByID(request.Context(), usr.ID, bookmarkID)
	if err != nil {
		router.writeServiceError(response, err, "router.svc.DeleteBookmarkByID()")
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// maxRequestBodyBytes caps a JSON body after any gzip decoding.
const maxRequestBodyBytes = 1 << 20

// decodeRequest reads a single JSON value into payload and validates it.
// On failure the error response is already written and false is returned.
func (router *Router) decodeRequest(response http.ResponseWriter, request *http.Request, payload interface{}) bool {
	request.Body = http.MaxBytesReader(response, request.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(request.Body)

	err := decoder.Decode(payload)
	if errors.Is(err, io.EOF) {
		writeError(response, http.StatusBadRequest, "request body is required", nil)
		return false
	}
	if err == nil {
		err = expectEndOfBody(decoder)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(response, http.StatusRequestEntityTooLarge, "request body is too large", nil)
		return false
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `json.Decoder.Decode()`: ", zap.Error(err))
		writeError(response, http.StatusBadRequest, "malformed JSON body", nil)
		return false
	}

	err = router.validator.Struct(payload)
	if details, ok := validation.Details(err); ok {
		writeError(response, http.StatusBadRequest, validation.ErrValidation.Error(), details)
		return false
	}
	if err != nil {
		logger.Log.Errorln("Error calling the `router.validator.Struct()`: ", zap.Error(err))
		writeError(response, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
		return false
	}

	return true
}

func expectEndOfBody(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}

	return errors.New("unexpected data after the JSON value")
}

func (router *Router) writeServiceError(response http.ResponseWriter, err error, calledFunc string) {
	switch {
	case errors.Is(err, service.ErrConflict):
		writeError(response, http.StatusConflict, service.ErrConflict.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(response, http.StatusForbidden, service.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, service.ErrForbidden):
		writeError(response, http.StatusForbidden, service.ErrForbidden.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		writeError(response, http.StatusNotFound, service.ErrNotFound.Error(), nil)
	default:
		logger.Log.Errorln("Error calling the `"+calledFunc+"`: ", zap.Error(err))
		writeError(response, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
	}
}

func currentUser(response http.ResponseWriter, request *http.Request) (*user.User, bool) {
	usr, ok := auth.UserFromContext(request.Context())
	if !ok {
		writeError(response, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), nil)
		return nil, false
	}

	return usr, true
}

func bookmarkIDParam(response http.ResponseWriter, request *http.Request) (int64, bool) {
	bookmarkID, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil {
		writeError(response, http.StatusBadRequest, "id must be an integer", nil)
		return 0, false
	}

	return bookmarkID, true
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)

	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.Encoder.Encode()`: ", zap.Error(err))
	}
}

func writeError(response http.ResponseWriter, status int, message string, details map[string]string) {
	writeJSON(response, status, models.ErrorResponse{
		Error:   message,
		Details: details,
	})
}
