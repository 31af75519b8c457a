package auth

import (
	"errors"
	"strings"
	"testing"
)

// testParams keeps hashing fast; production-strength costs would add
// tens of milliseconds to every test.
var testParams = Params{
	Time:        1,
	MemoryKiB:   64,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceWithParams(testParams)
}

func TestHashAndVerify(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash %q is not in PHC format", hash)
	}

	if err := ps.Verify(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Verify() with correct password error = %v", err)
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("right")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	err = ps.Verify(hash, "wrong")
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("Verify() with wrong password error = %v, want ErrMismatch", err)
	}
}

func TestHashIsSalted(t *testing.T) {
	ps := newTestPasswordService()

	// Same password twice must give different hashes — the salt is
	// random per call.
	h1, err := ps.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := ps.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password are identical — missing salt?")
	}

	// Both still verify.
	if err := ps.Verify(h1, "hunter2"); err != nil {
		t.Errorf("Verify(h1) error = %v", err)
	}
	if err := ps.Verify(h2, "hunter2"); err != nil {
		t.Errorf("Verify(h2) error = %v", err)
	}
}

func TestVerifyUsesParamsFromHash(t *testing.T) {
	// A hash produced with one set of cost parameters must verify with a
	// service configured with different ones — the parameters travel in
	// the encoded string.
	old := NewPasswordServiceWithParams(Params{
		Time: 2, MemoryKiB: 32, Parallelism: 1, SaltLength: 8, KeyLength: 16,
	})
	hash, err := old.Hash("pw")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	current := newTestPasswordService()
	if err := current.Verify(hash, "pw"); err != nil {
		t.Errorf("Verify() across parameter change error = %v", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	ps := newTestPasswordService()

	for _, hash := range []string{
		"",
		"not a hash",
		"$argon2id$v=19$m=64,t=1,p=1$%%%$zzz",   // bad base64
		"$bcrypt$v=19$m=64,t=1,p=1$c2FsdA$a2V5", // wrong algorithm
	} {
		err := ps.Verify(hash, "pw")
		if err == nil {
			t.Errorf("Verify(%q) = nil, want error", hash)
		}
		if errors.Is(err, ErrMismatch) {
			t.Errorf("Verify(%q) = ErrMismatch, want a malformed-hash error", hash)
		}
	}
}
