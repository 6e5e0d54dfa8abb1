package cryptox

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for every new hash.
const PasswordCost = 12

// MaxPasswordBytes is the longest input bcrypt will hash. Anything past it
// would otherwise be silently ignored by the algorithm.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by HashPassword for inputs over MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("cryptox: password exceeds 72 bytes")

// dummyHash is compared against when a login names an unknown user so both
// paths pay the same bcrypt cost.
var dummyHash = mustHash("it-ops-dashboard/timing-equaliser")

// HashPassword returns a bcrypt hash of password. Each call draws a fresh
// salt, so hashing the same input twice gives different strings.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. A malformed or empty
// hash is treated as a mismatch, and so is any password over
// MaxPasswordBytes, since bcrypt would compare only its prefix.
func VerifyPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	if len(password) > MaxPasswordBytes {
		BurnPasswordCheck(password[:MaxPasswordBytes])
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck runs one comparison against a fixed hash and discards
// the result.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func mustHash(s string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(s), PasswordCost)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to build dummy hash: %v", err))
	}
	return h
}
