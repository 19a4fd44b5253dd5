// Package auth provides password hashing, session tokens and input validation.
//
// WHY ARGON2ID?
// argon2id is a memory-hard password hashing function: every guess costs
// an attacker not just CPU time but tens of megabytes of RAM, which kills
// the economics of GPU and ASIC cracking rigs.
//
// Unlike bcrypt, argon2 does not embed the salt in its output. We store the
// two parts side by side on the user record:
//
//	passwordHash: base64(argon2id(password, salt))   32 bytes → 44 chars
//	salt:         base64(16 random bytes)            16 bytes → 24 chars
//
// NEVER store passwords in plain text or with fast hashes (MD5, SHA-256).
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength = 16
	keyLength  = 32
)

// Params are the argon2id cost parameters.
//
// The defaults (t=1, m=64 MiB, p=4) are the RFC 9106 "second recommended"
// option. Hashing takes a few tens of milliseconds on a laptop.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams are used by NewPasswordHasher.
var DefaultParams = Params{Time: 1, Memory: 64 * 1024, Threads: 4}

// Hash is a derived key and the salt it was derived with, both base64.
type Hash struct {
	Hash string
	Salt string
}

// PasswordHasher hashes and verifies passwords with argon2id.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests. A hash only verifies under the parameters it was made with.
type PasswordHasher struct {
	params Params
}

// NewPasswordHasher creates a PasswordHasher with DefaultParams.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{params: DefaultParams}
}

// NewPasswordHasherForTest creates a hasher with the cheapest parameters
// argon2 accepts (64 KiB, one pass). Use this in tests in other packages to
// avoid allocating 64 MiB per hash.
//
// Do NOT use in production.
func NewPasswordHasherForTest() *PasswordHasher {
	return &PasswordHasher{params: Params{Time: 1, Memory: 64, Threads: 1}}
}

// HashPasswordSecure derives a key from password with a fresh random salt.
//
// Two calls with the same password return different hashes because the
// salts differ.
func (p *PasswordHasher) HashPasswordSecure(password string) (Hash, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return Hash{}, fmt.Errorf("auth: generating salt: %w", err)
	}

	key := p.derive(password, salt, keyLength)
	return Hash{
		Hash: base64.StdEncoding.EncodeToString(key),
		Salt: base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// VerifyPassword reports whether password matches the stored hash and salt.
//
// TIMING SAFETY:
// The comparison is subtle.ConstantTimeCompare, so response time does not
// leak how many leading bytes matched.
//
// Malformed base64 in either argument is a mismatch, not an error: the
// caller answers "invalid email or password" either way.
func (p *PasswordHasher) VerifyPassword(password, hash, salt string) bool {
	want, err := base64.StdEncoding.DecodeString(hash)
	if err != nil || len(want) == 0 {
		return false
	}
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil || len(rawSalt) == 0 {
		return false
	}

	got := p.derive(password, rawSalt, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (p *PasswordHasher) derive(password string, salt []byte, length uint32) []byte {
	return argon2.IDKey([]byte(password), salt, p.params.Time, p.params.Memory, p.params.Threads, length)
}
