package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// NewResetToken returns n bytes from crypto/rand rendered as lowercase hex.
// The string is both the token's identity and its bearer credential, so n
// must carry enough entropy to make guessing infeasible.
func NewResetToken(n int) (string, error) {
	if n < 16 {
		return "", errors.New("reset token entropy too small")
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
