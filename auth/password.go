package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// ErrInvalidPassword is returned when a login secret does not match.
var ErrInvalidPassword = errors.New("invalid password")

// CheckPassword compares a submitted password with the stored one. Both
// sides are trimmed; the remote roster stores secrets as plain cell values.
func CheckPassword(stored, given string) error {
	a := []byte(strings.TrimSpace(stored))
	b := []byte(strings.TrimSpace(given))
	if len(a) == 0 || subtle.ConstantTimeCompare(a, b) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
