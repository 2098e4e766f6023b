package util

import (
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

// ShortUUID generates a short UUID with 22 symbols
func ShortUUID() string {
	u := uuid.New()
	return base64.RawURLEncoding.EncodeToString(u[:]) // 22 symbols
}

// NewInviteCode generates a lowercase hex invite code of the given length,
// suitable for a human to type. Length is capped at 32.
func NewInviteCode(length int) (string, error) {
	u := uuid.New()
	encoded := hex.EncodeToString(u[:]) // 32 symbols

	if length <= 0 || length > len(encoded) {
		return "", errors.New("invalid invite code length")
	}

	return encoded[:length], nil
}
