package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/user"
)

// Client calls the bookmarks gRPC service over an established connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn. Calls are encoded with the JSON Codec.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	return c.conn.Invoke(ctx, FullMethod(method), in, out, opts...)
}

// Ping checks that the server can reach its storage.
func (c *Client) Ping(ctx context.Context, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "Ping", &Empty{}, &Empty{}, opts)
}

// Signup registers a user.
func (c *Client) Signup(ctx context.Context, in *models.AuthRequest, opts ...grpc.CallOption) (*user.User, error) {
	out := new(user.User)
	if err := c.invoke(ctx, "Signup", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// Signin exchanges credentials for an access token.
func (c *Client) Signin(ctx context.Context, in *models.AuthRequest, opts ...grpc.CallOption) (*models.SigninResponse, error) {
	out := new(models.SigninResponse)
	if err := c.invoke(ctx, "Signin", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMe returns the caller.
func (c *Client) GetMe(ctx context.Context, opts ...grpc.CallOption) (*user.User, error) {
	out := new(user.User)
	if err := c.invoke(ctx, "GetMe", &Empty{}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// EditUser applies a merge patch to the caller.
func (c *Client) EditUser(ctx context.Context, in *models.EditUserRequest, opts ...grpc.CallOption) (*user.User, error) {
	out := new(user.User)
	if err := c.invoke(ctx, "EditUser", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBookmark stores a bookmark owned by the caller.
func (c *Client) CreateBookmark(
	ctx context.Context,
	in *models.CreateBookmarkRequest,
	opts ...grpc.CallOption,
) (*models.Bookmark, error) {
	out := new(models.Bookmark)
	if err := c.invoke(ctx, "CreateBookmark", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBookmarks lists the caller's bookmarks.
func (c *Client) GetBookmarks(ctx context.Context, opts ...grpc.CallOption) (*BookmarkListResponse, error) {
	out := new(BookmarkListResponse)
	if err := c.invoke(ctx, "GetBookmarks", &Empty{}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBookmark returns one bookmark; Bookmark is nil when the id is unknown.
func (c *Client) GetBookmark(ctx context.Context, in *BookmarkIDRequest, opts ...grpc.CallOption) (*BookmarkResponse, error) {
	out := new(BookmarkResponse)
	if err := c.invoke(ctx, "GetBookmark", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// EditBookmark applies a merge patch to one of the caller's bookmarks.
func (c *Client) EditBookmark(ctx context.Context, in *EditBookmarkRequest, opts ...grpc.CallOption) (*models.Bookmark, error) {
	out := new(models.Bookmark)
	if err := c.invoke(ctx, "EditBookmark", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBookmark removes one of the caller's bookmarks.
func (c *Client) DeleteBookmark(ctx context.Context, in *BookmarkIDRequest, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "DeleteBookmark", in, &Empty{}, opts)
}
