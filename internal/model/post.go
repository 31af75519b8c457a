package model

import "time"

// Post represents a submitted link/text post.
//
// Points is the running vote aggregate — it is adjusted transactionally
// whenever a vote is cast or flipped, so readers never have to sum the
// votes table themselves.
//
// Creator is populated by the repository's list/get queries (a JOIN on
// users), so the feed can show who posted without a second round trip.
// It is a pointer because a bare Post (e.g. fresh from Create) may not
// carry it.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Points    int       `json:"points"`
	CreatorID int64     `json:"creatorId"`
	Creator   *User     `json:"creator,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
