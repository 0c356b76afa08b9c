package types

import (
	"fmt"
	"unicode/utf8"
)

// MaxKeyLength is the longest key ValidateKey accepts, in bytes.
const MaxKeyLength = 1024

// ValidateKey rejects keys the backend cannot store safely. A rejected key
// fails the same way on every attempt, so validation failures are never
// retried.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}

	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: key length %d exceeds maximum %d bytes",
			ErrInvalidKey, len(key), MaxKeyLength)
	}

	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: key contains invalid UTF-8", ErrInvalidKey)
	}

	// Control characters (ASCII 0-31 and 127)
	for i, r := range key {
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: key contains control character at position %d", ErrInvalidKey, i)
		}
	}

	return nil
}
