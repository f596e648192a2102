package sanitizer

import "strings"

// TrimAndNormalize trims s and collapses every run of Unicode whitespace
// into a single space.
func TrimAndNormalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeName is applied to attendee, user and class option names.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeLocation(location string) string {
	return TrimAndNormalize(location)
}
