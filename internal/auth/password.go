// Package auth — password hashing utilities.
//
// WHY ARGON2ID (AND NOT BCRYPT OR SHA-256)?
// argon2id is a memory-hard password hash: cracking it needs not just CPU
// time but a large amount of RAM per guess, which is exactly what GPUs and
// ASICs are bad at. It won the Password Hashing Competition and is the
// current OWASP first choice. Fast hashes (MD5, SHA-256) are never
// acceptable for passwords.
//
// The encoded hash is self-contained, in the standard PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<base64 salt>$<base64 key>
//
// Parameters and salt travel inside the string, so Verify can check a
// password against a hash produced with older parameters — no separate
// salt or params columns needed.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMismatch is returned by Verify when the password does not match the
// stored hash. Callers should treat any other error as an internal fault,
// not as "wrong password".
var ErrMismatch = errors.New("auth: password does not match")

// Params are the argon2id cost settings. The defaults follow RFC 9106's
// low-memory recommendation (64 MiB, 1 pass, 4 lanes) — roughly 50ms on a
// modern server. Tests inject much smaller values to stay fast.
type Params struct {
	Time        uint32 // number of passes over memory
	MemoryKiB   uint32 // memory per hash, in KiB
	Parallelism uint8  // number of lanes
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns the production cost settings.
func DefaultParams() Params {
	return Params{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// PasswordService hashes and verifies passwords. It is a struct (not free
// functions) so the cost parameters can be injected — tests use tiny
// memory settings without touching the logic under test.
type PasswordService struct {
	params Params
}

// NewPasswordService creates a PasswordService with the default parameters.
func NewPasswordService() *PasswordService {
	return &PasswordService{params: DefaultParams()}
}

// NewPasswordServiceWithParams creates a PasswordService with custom cost
// settings. Intended for tests; production code should use the defaults.
func NewPasswordServiceWithParams(p Params) *PasswordService {
	return &PasswordService{params: p}
}

// Hash derives an argon2id hash of the plaintext with a fresh random salt
// and returns it in the encoded PHC format described in the package doc.
func (s *PasswordService) Hash(plaintext string) (string, error) {
	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt,
		s.params.Time, s.params.MemoryKiB, s.params.Parallelism, s.params.KeyLength)

	// RawStdEncoding (no padding) is what every argon2 implementation uses
	// inside PHC strings.
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.params.MemoryKiB, s.params.Time, s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks a plaintext password against a stored encoded hash.
// Returns nil on match, ErrMismatch on a wrong password, and some other
// error if the stored hash is malformed.
//
// The parameters are read from the hash itself, so passwords hashed under
// older cost settings still verify.
func (s *PasswordService) Verify(encoded, plaintext string) error {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return err
	}

	candidate := argon2.IDKey([]byte(plaintext), salt,
		p.Time, p.MemoryKiB, p.Parallelism, uint32(len(key)))

	// subtle.ConstantTimeCompare takes the same time whether the first or
	// the last byte differs, so response timing leaks nothing.
	if subtle.ConstantTimeCompare(key, candidate) == 1 {
		return nil
	}
	return ErrMismatch
}

// decodeHash parses a PHC-format argon2id string back into its parts.
func decodeHash(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	// ["", "argon2id", "v=19", "m=..,t=..,p=..", salt, key]
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, errors.New("auth: malformed password hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, fmt.Errorf("auth: parsing hash version: %w", err)
	}
	if version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("auth: unsupported argon2 version %d", version)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Parallelism); err != nil {
		return Params{}, nil, nil, fmt.Errorf("auth: parsing hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("auth: decoding salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, fmt.Errorf("auth: decoding key: %w", err)
	}

	return p, salt, key, nil
}
