package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// GenerateRandomHex returns n random bytes in hex form, so the result has 2n characters.
func GenerateRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// ConstantTimeEqual reports whether a and b are equal. Lengths are compared first, then the
// content is compared in constant time.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
