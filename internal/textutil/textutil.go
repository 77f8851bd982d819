// Package textutil holds the small text normalization helpers shared by the
// cataloging pipeline.
package textutil

import (
	"strings"
	"unicode"
)

// PriceFromFilename returns the leading run of digits in name, or "" when
// the name does not start with a digit. Sellers encode the asking price at
// the front of the photo filename, e.g. "380.1.jpg" -> "380".
func PriceFromFilename(name string) string {
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	return name[:end]
}

// TitleCase uppercases the first rune of every whitespace-delimited word and
// lowercases the rest. Whitespace is carried through unchanged, so the word
// count and spacing of the input survive.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			startOfWord = true
			b.WriteRune(r)
		case startOfWord:
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
