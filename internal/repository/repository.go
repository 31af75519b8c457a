// Package repository defines the persistence interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite);
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/mehedi/linkloom/internal/model"
)

// ListOptions controls feed pagination.
//
// CURSOR, NOT OFFSET:
// Before is a timestamp cursor — "give me posts strictly older than this".
// Unlike OFFSET, a cursor doesn't skip or duplicate items when new posts
// arrive between page fetches: the page boundary is pinned to a point in
// time, not to a row count.
type ListOptions struct {
	Limit  int
	Before time.Time // zero value means "from the newest"
}

// UserRepository reads and writes user accounts.
//
// Method names carry the entity (CreateUser, not Create) because the
// sqlite.DB type implements both this interface and PostRepository.
type UserRepository interface {
	// CreateUser inserts a new user and fills ID and timestamps. A
	// username or email collision is reported as an apperror.ErrDuplicate,
	// never as a raw driver error.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateUserPassword replaces the stored password hash.
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

// PostRepository reads and writes posts and votes.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	// GetPostByID returns the post with its creator joined in.
	GetPostByID(ctx context.Context, id int64) (*model.Post, error)
	// ListPosts returns posts newest-first, creator joined in, honouring
	// the cursor in opts. An exhausted feed is an empty slice, not an error.
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	UpdatePostTitle(ctx context.Context, id int64, title string) error
	// DeletePost removes a post by id. Deleting an absent id is not an
	// error.
	DeletePost(ctx context.Context, id int64) error
	// VotePost records userID's vote (+1/-1) on postID and adjusts the
	// post's points atomically. Re-casting the same vote is a no-op;
	// flipping sides moves points by twice the value.
	VotePost(ctx context.Context, userID, postID int64, value int) error
}
