package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength caps URL paths in log fields.
	MaxPathLength = 500
	// MaxErrorMessageLength caps error strings in log fields.
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the fallback cap for other string fields.
	MaxGeneralStringLength = 2000
)

// SanitizePath makes a URL path safe to log: valid UTF-8, no control
// characters, bounded length. Questions never appear in paths, but attacker
// supplied paths can still carry injection attempts.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString strips control characters, repairs invalid UTF-8, and
// truncates to maxLength (with an ellipsis marker when cut).
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// SanitizeError renders an error for a log field under the same rules.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}
