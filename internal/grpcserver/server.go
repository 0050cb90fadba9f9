package grpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bkmrk/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

type userResolver interface {
	ResolveUser(ctx context.Context, tokenString string) (*user.User, error)
}

// NewGRPCServer listens on addr and returns a server with the bookmarks service
// registered behind the logging and auth interceptors.
func NewGRPCServer(
	addr string,
	handler BookmarkServiceServer,
	authenticator userResolver,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	return newServer(handler, authenticator), lis, nil
}

func newServer(handler BookmarkServiceServer, authenticator userResolver) *grpc.Server {
	allMethods := make([]string, 0, len(BookmarkServiceDesc.Methods))
	for _, method := range BookmarkServiceDesc.Methods {
		allMethods = append(allMethods, FullMethod(method.MethodName))
	}

	server := grpc.NewServer(
		grpc.ForceServerCodec(Codec{}),
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(allMethods),
			interceptor.NewAuthInterceptor(authenticator).UnaryAuthInterceptor([]string{
				FullMethod("Ping"),
				FullMethod("Signup"),
				FullMethod("Signin"),
			}),
		),
	)
	RegisterBookmarkServiceServer(server, handler)

	return server
}
