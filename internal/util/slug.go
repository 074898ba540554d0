package util

import (
	"strings"
	"unicode"
)

// Slug converts a name into a filesystem-safe file stem.
// Letters and digits are lowercased, '-' and '_' are kept, every other rune
// becomes '-', and leading/trailing hyphens are trimmed. An empty result
// becomes "task".
func Slug(name string) string {
	var result strings.Builder

	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			result.WriteRune(r)
		default:
			result.WriteRune('-')
		}
	}

	str := strings.Trim(result.String(), "-")
	if str == "" {
		return "task"
	}
	return str
}
