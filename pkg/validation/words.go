package validation

import (
	"errors"
	"strings"
)

const (
	// MaxDetailsWords caps the free-text incident description.
	MaxDetailsWords = 2700
	// MaxActionWords caps the review action text.
	MaxActionWords = 5000
)

// ErrWordLimit is returned when an edit would push a field past its cap.
var ErrWordLimit = errors.New("validation: word limit exceeded")

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ApplyWordLimit returns next when it fits within limit. Otherwise the edit is
// rejected: current is returned unchanged together with ErrWordLimit.
func ApplyWordLimit(current, next string, limit int) (string, error) {
	if limit > 0 && CountWords(next) > limit {
		return current, ErrWordLimit
	}
	return next, nil
}
