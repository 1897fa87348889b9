package component

import "strings"

// ID identifies a loaded component, derived from its artifact's filename
// stem by SanitizeID.
type ID string

// SanitizeID lowercases stem and replaces any rune outside [a-zA-Z0-9_-] with
// an underscore, collapsing repeats, trimming leading/trailing underscores.
// It normalizes an artifact filename stem into a safe, stable registry key.
func SanitizeID(stem string) ID {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return ID(strings.Trim(b.String(), "_"))
}
