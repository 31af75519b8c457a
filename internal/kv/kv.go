// Package kv defines the key-value store used for expiring server-side
// state: login sessions and password-reset tokens.
//
// Both consumers need exactly three operations — set with a TTL, get, and
// delete — so that is the whole interface. The production implementation
// is Redis (redis.go); tests use the in-memory implementation (memory.go),
// which honours TTLs without a running server.
//
// Key namespaces are the callers' responsibility: sessions use "sess:",
// reset tokens use "forget-password:". Prefixing keeps the two from ever
// colliding in a shared Redis database.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent — either never
// set, deleted, or past its TTL. Callers cannot tell which, and must not
// need to.
var ErrNotFound = errors.New("kv: key not found")

// Store is a minimal expiring key-value store.
type Store interface {
	// Set stores value under key. A positive ttl makes the key vanish
	// after that duration; zero means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}
