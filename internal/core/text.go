package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the longest message body accepted, in runes.
const DefaultMaxLength = 2000

// ValidationReason names why a message body was rejected.
type ValidationReason string

const (
	ReasonEmpty   ValidationReason = "empty"
	ReasonTooLong ValidationReason = "too-long"
)

// ValidationError is returned for bodies rejected before any state change.
type ValidationError struct {
	Reason ValidationReason
	Length int
	Limit  int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "message is empty"
	case ReasonTooLong:
		return fmt.Sprintf("message is too long (%d/%d characters)", e.Length, e.Limit)
	default:
		return "invalid message"
	}
}

// NormalizeText collapses CRLF and CR line endings to LF and trims surrounding whitespace.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// ValidateText checks an already-normalized body. maxRunes <= 0 uses DefaultMaxLength.
func ValidateText(text string, maxRunes int) error {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxLength
	}
	if text == "" {
		return &ValidationError{Reason: ReasonEmpty, Limit: maxRunes}
	}
	if n := utf8.RuneCountInString(text); n > maxRunes {
		return &ValidationError{Reason: ReasonTooLong, Length: n, Limit: maxRunes}
	}
	return nil
}
