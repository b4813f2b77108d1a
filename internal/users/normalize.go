package users

import "strings"

// NormalizeEmail lowercases and trims the address. Returns "" when the
// input has no usable content.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitName splits a display name into first and last on the first
// whitespace run. A single token becomes the first name; everything
// after the first token joins into the last name.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
