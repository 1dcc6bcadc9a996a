package core

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	guidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	guidLength   = 8

	// TempIDPrefix namespaces ids of locally created, unconfirmed messages.
	TempIDPrefix = "tmp-"
)

// NewTempID returns a time-ordered id for a pending message.
func NewTempID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate temp id: %w", err)
	}
	return TempIDPrefix + id.String(), nil
}

// IsTempID reports whether id was produced by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// GenerateGUID creates a short GUID with the provided prefix.
func GenerateGUID(prefix string) (string, error) {
	normalized := strings.TrimSuffix(prefix, "-")

	buf := make([]byte, guidLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate guid: %w", err)
	}

	id := make([]byte, guidLength)
	for i := 0; i < guidLength; i++ {
		id[i] = guidAlphabet[int(buf[i])%len(guidAlphabet)]
	}

	return fmt.Sprintf("%s-%s", normalized, string(id)), nil
}

// ShortID trims the namespace from an id for display.
func ShortID(id string, length int) string {
	base := id
	if idx := strings.IndexByte(base, '-'); idx >= 0 && idx < 4 {
		base = base[idx+1:]
	}
	if length <= 0 {
		return ""
	}
	if length > len(base) {
		length = len(base)
	}
	return base[:length]
}
