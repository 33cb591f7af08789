package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"regexp"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordIterations = 100000
	passwordKeyLength  = 32
	passwordSaltLength = 16
)

type PasswordStrength string

const (
	PasswordWeak   PasswordStrength = "weak"
	PasswordMedium PasswordStrength = "medium"
	PasswordStrong PasswordStrength = "strong"
)

var (
	upperRegex   = regexp.MustCompile(`[A-Z]`)
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	numberRegex  = regexp.MustCompile(`\d`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// HashPassword derives a PBKDF2-SHA256 key from the password. Both the hash and the salt are
// returned base64 encoded. A random salt is generated when salt is empty.
func HashPassword(password, salt string) (string, string, error) {
	var saltBytes []byte
	if salt == "" {
		saltBytes = make([]byte, passwordSaltLength)
		if _, err := rand.Read(saltBytes); err != nil {
			return "", "", err
		}
		salt = base64.StdEncoding.EncodeToString(saltBytes)
	} else {
		var err error
		saltBytes, err = base64.StdEncoding.DecodeString(salt)
		if err != nil {
			return "", "", errors.New("invalid salt")
		}
	}

	key := pbkdf2.Key([]byte(password), saltBytes, passwordIterations, passwordKeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key), salt, nil
}

func VerifyPassword(password, hash, salt string) bool {
	if hash == "" || salt == "" {
		return false
	}

	computed, _, err := HashPassword(password, salt)
	if err != nil {
		return false
	}

	return ConstantTimeEqual(hash, computed)
}

func CheckPasswordStrength(password string) PasswordStrength {
	if len(password) < 8 {
		return PasswordWeak
	}

	strength := 0
	for _, r := range []*regexp.Regexp{upperRegex, lowerRegex, numberRegex, specialRegex} {
		if r.MatchString(password) {
			strength++
		}
	}

	switch {
	case strength >= 3 && len(password) >= 12:
		return PasswordStrong
	case strength >= 2 && len(password) >= 10:
		return PasswordMedium
	default:
		return PasswordWeak
	}
}
