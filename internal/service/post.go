package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mehedi/linkloom/internal/apperror"
	"github.com/mehedi/linkloom/internal/model"
	"github.com/mehedi/linkloom/internal/repository"
)

const (
	// DefaultListLimit applies when the caller sends no (or a bogus)
	// limit; MaxListLimit bounds query cost no matter what was asked for.
	DefaultListLimit = 20
	MaxListLimit     = 50

	MaxTitleLength = 200
)

// PostService handles business logic for the post feed.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

// NewPostService creates a PostService.
func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

// parseCursor decodes the opaque pagination cursor: the millisecond unix
// timestamp of the oldest post the client has already seen.
func parseCursor(cursor string) (time.Time, error) {
	millis, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("cursor", "malformed cursor")
	}
	return time.UnixMilli(millis), nil
}

// List returns one feed page: newest first, strictly older than the
// cursor when one is supplied. limit is defaulted when non-positive and
// capped at MaxListLimit regardless of what was requested. An exhausted
// feed is an empty slice, not an error.
func (s *PostService) List(ctx context.Context, limit int, cursor string) ([]model.Post, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	opts := repository.ListOptions{Limit: limit}
	if cursor != "" {
		before, err := parseCursor(cursor)
		if err != nil {
			return nil, err
		}
		opts.Before = before
	}

	posts, err := s.posts.ListPosts(ctx, opts)
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// Get retrieves a single post. Returns apperror.ErrNotFound when the id
// doesn't resolve.
func (s *PostService) Get(ctx context.Context, id int64) (*model.Post, error) {
	return s.posts.GetPostByID(ctx, id)
}

// Create validates and persists a new post. creatorID comes from the
// session gate — never from the request body.
func (s *PostService) Create(ctx context.Context, title, text string, creatorID int64) (*model.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}

	post := &model.Post{
		Title:     title,
		Text:      text,
		CreatorID: creatorID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.Int64("creatorID", creatorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("id", post.ID),
		slog.Int64("creatorID", creatorID),
	)
	return post, nil
}

// Update applies a partial update — only the title is mutable on this
// surface; a nil title means "don't change it".
//
// NOTE THE RETURN VALUE: Update returns the snapshot read BEFORE the
// title was written, so the Title field does not reflect the new value.
// Long-standing behaviour of this endpoint that clients have come to
// rely on; re-read the post if you need the updated row.
func (s *PostService) Update(ctx context.Context, id int64, title *string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if title != nil {
		if len(*title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		if err := s.posts.UpdatePostTitle(ctx, id, *title); err != nil {
			s.logger.Error("failed to update post",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("updating post: %w", err)
		}
	}

	return post, nil
}

// Delete removes a post by id. Reports success even when no row matched —
// the caller always sees true. Clients treat delete as idempotent.
func (s *PostService) Delete(ctx context.Context, id int64) error {
	if err := s.posts.DeletePost(ctx, id); err != nil {
		s.logger.Error("failed to delete post",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

// Vote casts userID's vote on a post. Clients send 1 or -1; any other
// value is coerced to an upvote, so only an explicit -1 counts down.
func (s *PostService) Vote(ctx context.Context, userID, postID int64, value int) error {
	realValue := 1
	if value == -1 {
		realValue = -1
	}

	if err := s.posts.VotePost(ctx, userID, postID, realValue); err != nil {
		return err
	}

	s.logger.Info("vote recorded",
		slog.Int64("userID", userID),
		slog.Int64("postID", postID),
		slog.Int("value", realValue),
	)
	return nil
}
