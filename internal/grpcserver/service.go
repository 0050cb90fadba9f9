package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bookmarks.v1.BookmarkService"

// Empty is the request or response of methods that carry no data.
type Empty struct{}

// BookmarkIDRequest addresses a single bookmark.
type BookmarkIDRequest struct {
	ID int64 `json:"id"`
}

// EditBookmarkRequest addresses a bookmark and carries the merge patch for it.
type EditBookmarkRequest struct {
	ID int64 `json:"id"`
	models.EditBookmarkRequest
}

// BookmarkResponse wraps a bookmark that may be absent.
type BookmarkResponse struct {
	Bookmark *models.Bookmark `json:"bookmark"`
}

// BookmarkListResponse is the caller's bookmarks ordered by id.
type BookmarkListResponse struct {
	Bookmarks []models.Bookmark `json:"bookmarks"`
}

// BookmarkServiceServer is implemented by BookmarksHandler.
type BookmarkServiceServer interface {
	Ping(ctx context.Context, req *Empty) (*Empty, error)
	Signup(ctx context.Context, req *models.AuthRequest) (*user.User, error)
	Signin(ctx context.Context, req *models.AuthRequest) (*models.SigninResponse, error)
	GetMe(ctx context.Context, req *Empty) (*user.User, error)
	EditUser(ctx context.Context, req *models.EditUserRequest) (*user.User, error)
	CreateBookmark(ctx context.Context, req *models.CreateBookmarkRequest) (*models.Bookmark, error)
	GetBookmarks(ctx context.Context, req *Empty) (*BookmarkListResponse, error)
	GetBookmark(ctx context.Context, req *BookmarkIDRequest) (*BookmarkResponse, error)
	EditBookmark(ctx context.Context, req *EditBookmarkRequest) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, req *BookmarkIDRequest) (*Empty, error)
}

// BookmarkServiceDesc describes the service for grpc.Server.RegisterService.
var BookmarkServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookmarkServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Ping", BookmarkServiceServer.Ping),
		unaryMethod("Signup", BookmarkServiceServer.Signup),
		unaryMethod("Signin", BookmarkServiceServer.Signin),
		unaryMethod("GetMe", BookmarkServiceServer.GetMe),
		unaryMethod("EditUser", BookmarkServiceServer.EditUser),
		unaryMethod("CreateBookmark", BookmarkServiceServer.CreateBookmark),
		unaryMethod("GetBookmarks", BookmarkServiceServer.GetBookmarks),
		unaryMethod("GetBookmark", BookmarkServiceServer.GetBookmark),
		unaryMethod("EditBookmark", BookmarkServiceServer.EditBookmark),
		unaryMethod("DeleteBookmark", BookmarkServiceServer.DeleteBookmark),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookmarks/v1/bookmarks",
}

// FullMethod returns the "/service/method" path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegisterBookmarkServiceServer registers srv on s.
func RegisterBookmarkServiceServer(s grpc.ServiceRegistrar, srv BookmarkServiceServer) {
	s.RegisterService(&BookmarkServiceDesc, srv)
}

func unaryMethod[Req any, Resp any](
	method string,
	call func(BookmarkServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(
			srv interface{},
			ctx context.Context,
			dec func(interface{}) error,
			interceptor grpc.UnaryServerInterceptor,
		) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookmarkServiceServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(BookmarkServiceServer), ctx, req.(*Req))
			}

			return interceptor(ctx, in, info, handler)
		},
	}
}
