package common

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kizuna-social/backend/pkg/crypto"
)

const (
	maxHandleBaseLength = 24
	minHandleLength     = 3
	maxHandleSuffix     = 50

	// A random suffix is "_" and 8 hex digits, the result must still fit the 30 chars of a handle.
	maxRandomHandleBaseLength = 21
)

var (
	HandleRegex = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

	invalidHandleChars = regexp.MustCompile(`[^a-z0-9_]`)
)

type HandleChecker interface {
	ExistsHandle(ctx context.Context, handle string) (bool, error)
}

// HandleBase derives a handle from the local part of email, or from fallback if email has no
// usable local part.
func HandleBase(email, fallback string) string {
	source := fallback
	if at := strings.Index(email, "@"); at > 0 {
		source = email[:at]
	}

	base := invalidHandleChars.ReplaceAllString(strings.ToLower(source), "")
	if len(base) > maxHandleBaseLength {
		base = base[:maxHandleBaseLength]
	}

	if len(base) < minHandleLength {
		base += "user"
	}

	return base
}

// GenerateHandle returns the first free handle among base, base_2, ..., base_50. When all of
// them are taken, a random hex suffix is used.
func GenerateHandle(ctx context.Context, checker HandleChecker, email, fallback string) (string, error) {
	base := HandleBase(email, fallback)

	for i := 1; i <= maxHandleSuffix; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d", base, i)
		}

		exists, err := checker.ExistsHandle(ctx, candidate)
		if err != nil {
			return "", err
		}

		if !exists {
			return candidate, nil
		}
	}

	return RandomHandle(email, fallback)
}

// RandomHandle returns the base handle with a random hex suffix, without checking whether it is
// free.
func RandomHandle(email, fallback string) (string, error) {
	suffix, err := crypto.GenerateRandomHex(4)
	if err != nil {
		return "", err
	}

	base := HandleBase(email, fallback)
	if len(base) > maxRandomHandleBaseLength {
		base = base[:maxRandomHandleBaseLength]
	}

	return base + "_" + suffix, nil
}
