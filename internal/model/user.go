// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// WHY json:"-" ON Password?
// Password holds the argon2id encoded hash, never the plaintext. The `-`
// tag tells encoding/json to skip the field entirely, so a User can never
// leak its hash through an API response, no matter which handler encodes it.
//
// Email visibility is a separate concern: every user CAN see their own
// email, but nobody else's. That rule lives at the serialization boundary
// (see internal/handler), not here — the model always carries the email.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // argon2id hash, never serialized
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
