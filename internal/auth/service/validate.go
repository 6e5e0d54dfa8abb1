package service

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ehsh01/it-ops-dashboard/pkg/cryptox"
)

const (
	MinPasswordLength = 6
	MinUsernameLength = 3
	MaxUsernameLength = 64
)

var (
	ErrWeakPassword    = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	ErrInvalidUsername = errors.New("username must be 3-64 characters without spaces")
	ErrInvalidEmail    = errors.New("invalid email address")
)

// ValidatePassword enforces the length rules. Length is counted in
// characters for the minimum and in bytes for bcrypt's maximum.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(password) > cryptox.MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return ErrInvalidUsername
	}
	return nil
}

// NormalizeEmail returns the bare, lower-cased address or ErrInvalidEmail.
// Display-name forms ("Alice <a@b>") are rejected.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
