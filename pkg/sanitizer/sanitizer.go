package sanitizer

import (
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

func lower(s string) string {
	return strings.ToLower(s)
}

func upper(s string) string {
	return strings.ToUpper(s)
}

// NormalizeEmail is the form emails are stored and compared in. Two
// attendees with the same normalized email are the same user.
func NormalizeEmail(email string) string {
	return Pipeline{trim, lower}.Apply(email)
}

func NormalizeCurrency(currency string) string {
	return Pipeline{trim, upper}.Apply(currency)
}
