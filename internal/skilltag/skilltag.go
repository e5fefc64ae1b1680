// Package skilltag normalizes the free-text skill labels attached to questions.
//
// Two tags that normalize to the same string are the same skill for
// counting and reinforcement lookup.
package skilltag

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize converts a raw skill tag into its canonical display form.
// Underscores and hyphens become spaces, runs of whitespace collapse, and
// every word is title-cased ("place_value-ROUNDING" → "Place Value Rounding").
func Normalize(tag string) string {
	tag = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, tag)

	words := strings.Fields(tag)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

// Equal reports whether two raw tags name the same skill.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

func titleWord(w string) string {
	first, size := utf8.DecodeRuneInString(w)
	if first == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(w[size:])
}
