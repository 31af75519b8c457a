package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mehedi/linkloom/internal/apperror"
	"github.com/mehedi/linkloom/internal/model"
	"github.com/mehedi/linkloom/internal/repository"
)

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

// CreatePost inserts a new post and fills in the generated ID and timestamps.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (title, text, points, creator_id, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?, ?)`,
		post.Title,
		post.Text,
		post.CreatorID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post: %w", err)
	}

	post.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new post id: %w", err)
	}
	post.Points = 0
	return nil
}

// postWithCreatorColumns selects a post together with its creator's
// public-facing columns. The creator's password hash is deliberately not
// selected — it never leaves the database on a read path that serves it.
const postWithCreatorColumns = `
	p.id, p.title, p.text, p.points, p.creator_id, p.created_at, p.updated_at,
	u.username, u.email, u.created_at, u.updated_at`

// scanPostWithCreator reads one joined post+creator row.
func scanPostWithCreator(scan func(dest ...any) error) (*model.Post, error) {
	var p model.Post
	var creator model.User
	err := scan(
		&p.ID, &p.Title, &p.Text, &p.Points, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
		&creator.Username, &creator.Email, &creator.CreatedAt, &creator.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	creator.ID = p.CreatorID
	p.Creator = &creator
	return &p, nil
}

// GetPostByID retrieves a post by id with its creator joined in.
func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+postWithCreatorColumns+`
		 FROM posts p
		 JOIN users u ON u.id = p.creator_id
		 WHERE p.id = ?`, id)

	post, err := scanPostWithCreator(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("id", "post not found")
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}
	return post, nil
}

// ListPosts returns posts newest-first with their creators joined in.
//
// The cursor (opts.Before) pins the page boundary to a point in time:
// "strictly older than" means a post created at exactly the cursor
// timestamp is excluded, so pages never overlap and never skip, no matter
// how many posts are inserted between fetches.
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	query := `SELECT ` + postWithCreatorColumns + `
		 FROM posts p
		 JOIN users u ON u.id = p.creator_id`
	args := []any{}

	if !opts.Before.IsZero() {
		query += ` WHERE p.created_at < ?`
		args = append(args, opts.Before)
	}
	// id breaks ties between posts created in the same instant.
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`
	args = append(args, opts.Limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, opts.Limit)
	for rows.Next() {
		post, err := scanPostWithCreator(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// UpdatePostTitle sets a post's title. The caller (service layer) has
// already confirmed the post exists and holds the pre-update snapshot.
func (db *DB) UpdatePostTitle(ctx context.Context, id int64, title string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %d: %w", id, err)
	}
	return nil
}

// DeletePost removes a post (votes cascade). No rows-affected check:
// deleting an id that never existed reports the same success as deleting
// a real row. That matches the delete operation's contract — callers
// always see true.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}
	return nil
}

// VotePost records a user's vote on a post and keeps the points aggregate
// consistent, all inside one transaction.
//
// Three cases:
//   - no previous vote:  insert the vote, move points by value
//   - flipped vote:      rewrite the vote, move points by 2*value
//     (undo the old vote, apply the new one)
//   - same vote again:   no-op
func (db *DB) VotePost(ctx context.Context, userID, postID int64, value int) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning vote tx: %w", err)
	}
	// Rollback after a successful Commit is a harmless no-op.
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM votes WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	).Scan(&existing)

	switch {
	case err == sql.ErrNoRows:
		// First vote on this post by this user.
		result, err := tx.ExecContext(ctx,
			`UPDATE posts SET points = points + ? WHERE id = ?`, value, postID)
		if err != nil {
			return fmt.Errorf("sqlite: adjusting points for post %d: %w", postID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if affected == 0 {
			return apperror.NotFound("postId", "post not found")
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO votes (user_id, post_id, value) VALUES (?, ?, ?)`,
			userID, postID, value); err != nil {
			return fmt.Errorf("sqlite: inserting vote: %w", err)
		}

	case err != nil:
		return fmt.Errorf("sqlite: looking up vote: %w", err)

	case existing != value:
		// Changing sides: the swing is twice the value (remove the old
		// vote, apply the new one).
		if _, err := tx.ExecContext(ctx,
			`UPDATE votes SET value = ? WHERE user_id = ? AND post_id = ?`,
			value, userID, postID); err != nil {
			return fmt.Errorf("sqlite: updating vote: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET points = points + ? WHERE id = ?`,
			2*value, postID); err != nil {
			return fmt.Errorf("sqlite: adjusting points for post %d: %w", postID, err)
		}

	default:
		// Same vote again — nothing to do.
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing vote tx: %w", err)
	}
	return nil
}
