// Package auth provides JWT issuing, the bearer-token middleware that guards
// protected routes and helpers to reach the authenticated user from a context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/bkmrk/internal/logger"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID int64) (*user.User, error)
}

// Auth issues signed tokens and resolves them back to stored users.
type Auth struct {
	// db is the interface to the user data storage.
	db userKeeper

	// signingKey is the HMAC key used to sign and verify JWTs.
	signingKey []byte

	// tokenTTL is the lifetime of an issued token.
	tokenTTL time.Duration
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the user identifier and email.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserKey is the context key used to store and retrieve the authenticated user.
const UserKey ContextKey = "user"

const bearerPrefix = "Bearer "

// ErrInvalidToken is returned when a token is missing, malformed, expired,
// signed with an unexpected key or method, or points at an unknown user.
var ErrInvalidToken = errors.New("invalid or expired token")

// New creates a new Auth with the given user storage, signing key and token lifetime.
func New(db userKeeper, signingKey []byte, tokenTTL time.Duration) *Auth {
	return &Auth{
		db:         db,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
	}
}

// IssueToken builds a signed token for the given user that expires after the configured TTL.
func (a *Auth) IssueToken(usr *user.User) (string, error) {
	now := time.Now()

	return a.BuildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(usr.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID: usr.ID,
		Email:  usr.Email,
	})
}

// BuildJWTString signs the claims with HS256.
func (a *Auth) BuildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/BuildJWTString(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies the token signature, method and expiry and returns the encoded user id.
func (a *Auth) GetUserIDFromToken(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 || claims.ExpiresAt == nil {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

// ResolveUser turns a raw token (without the "Bearer " prefix) into the stored user.
func (a *Auth) ResolveUser(ctx context.Context, tokenString string) (*user.User, error) {
	userID, err := a.GetUserIDFromToken(tokenString)
	if err != nil {
		return nil, err
	}

	usr, err := a.db.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/ResolveUser(): error while `a.db.GetUserByID()` calling: %w", err)
	}

	return usr, nil
}

// TokenFromAuthorizationHeader extracts the token from a "Bearer <token>" header value.
func TokenFromAuthorizationHeader(header string) (string, error) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrInvalidToken
	}

	return strings.TrimSpace(header[len(bearerPrefix):]), nil
}

// AuthenticateUser is an HTTP middleware that rejects requests without a valid
// bearer token with 401 and stores the resolved user in the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString, err := TokenFromAuthorizationHeader(request.Header.Get("Authorization"))
		if err != nil {
			writeUnauthorized(response)
			return
		}

		usr, err := a.ResolveUser(request.Context(), tokenString)
		if errors.Is(err, ErrInvalidToken) {
			logger.Log.Debugln("Error calling the `a.ResolveUser()`: ", zap.Error(err))
			writeUnauthorized(response)
			return
		}
		if err != nil {
			logger.Log.Errorln("Error calling the `a.ResolveUser()`: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		h.ServeHTTP(response, request.WithContext(ContextWithUser(request.Context(), usr)))
	}

	return http.HandlerFunc(middleware)
}

// ContextWithUser returns a copy of ctx carrying the authenticated user.
func ContextWithUser(ctx context.Context, usr *user.User) context.Context {
	return context.WithValue(ctx, UserKey, usr)
}

// UserFromContext returns the user stored by AuthenticateUser or the gRPC auth interceptor.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	usr, ok := ctx.Value(UserKey).(*user.User)
	return usr, ok && usr != nil
}

func writeUnauthorized(response http.ResponseWriter) {
	response.Header().Set("Content-Type", "application/json")
	response.Header().Set("WWW-Authenticate", `Bearer`)
	response.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(response).Encode(models.ErrorResponse{Error: http.StatusText(http.StatusUnauthorized)})
}
