package model

// Vote records one user's vote on one post. The (UserID, PostID) pair is
// the primary key — a user has at most one vote per post. Value is +1 for
// an upvote and -1 for a downvote; flipping sides rewrites this row and
// swings the post's Points by twice the value.
type Vote struct {
	UserID int64 `json:"userId"`
	PostID int64 `json:"postId"`
	Value  int   `json:"value"`
}
