package interceptor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/bkmrk/internal/auth"
	"github.com/patric-chuzhbe/bkmrk/internal/logger"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

type userResolver interface {
	ResolveUser(ctx context.Context, tokenString string) (*user.User, error)
}

// AuthInterceptor authenticates gRPC calls with the same bearer tokens as the HTTP API.
type AuthInterceptor struct {
	auth userResolver
}

func NewAuthInterceptor(auth userResolver) *AuthInterceptor {
	return &AuthInterceptor{auth: auth}
}

// UnaryAuthInterceptor resolves the "authorization: Bearer <token>" metadata to a user
// and attaches it to the context. Methods listed in publicMethods are passed through.
func (a *AuthInterceptor) UnaryAuthInterceptor(publicMethods []string) grpc.UnaryServerInterceptor {
	public := make(map[string]struct{}, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := public[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeader := md.Get("authorization")
		if len(authHeader) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization metadata")
		}

		tokenString, err := auth.TokenFromAuthorizationHeader(authHeader[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		usr, err := a.auth.ResolveUser(ctx, tokenString)
		if errors.Is(err, auth.ErrInvalidToken) {
			logger.Log.Debugln("Error calling the `a.auth.ResolveUser()`: ", zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, auth.ErrInvalidToken.Error())
		}
		if err != nil {
			logger.Log.Errorln("Error calling the `a.auth.ResolveUser()`: ", zap.Error(err))
			return nil, status.Error(codes.Internal, "internal error")
		}

		return handler(auth.ContextWithUser(ctx, usr), req)
	}
}
