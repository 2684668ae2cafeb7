package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUIDv4 string.
func NewID() string {
	return uuid.NewString()
}

// ShortToken returns n hex characters of a random UUID (1 <= n <= 32).
func ShortToken(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}
