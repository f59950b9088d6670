package http

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxMessageLength      = 10000
	MaxBusinessNameLength = 256
	MaxCustomPromptLength = 50000 // For AI prompts
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidSlug checks if an identifier is safe (alphanumeric + underscore + hyphen)
func ValidSlug(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	return slugPattern.MatchString(s)
}

// SanitizeString removes null bytes and control characters
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	// Keep only valid UTF-8
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// ValidateLength checks if string is within bounds
func ValidateLength(s string, min, max int) bool {
	l := len(s)
	return l >= min && l <= max
}
