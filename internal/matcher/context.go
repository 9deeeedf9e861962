// Package matcher decides whether a post is relevant to a business profile.
// It finds the highest-priority monitoring term in a post's text, extracts a
// bounded snippet around the match, and renders highlighted snippets for
// display. Everything in this package is pure and safe for concurrent use.
//
// Offsets and lengths are counted in runes, so multi-byte text is never split
// mid-character and the case-folded copy of a text always lines up with the
// original.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultWindowSize is the snippet length, in characters, used when the
// caller does not configure one. It includes the matched term.
const DefaultWindowSize = 150

const ellipsis = "..."

// ExtractContext returns a snippet of text around the first case-insensitive
// occurrence of term. The snippet is windowSize characters long when the text
// allows it, keeps the original casing, and carries "..." on every side where
// text was cut off. It returns "" when text or term is empty or when term does
// not occur in text.
func ExtractContext(text, term string, windowSize int) string {
	if text == "" || term == "" {
		return ""
	}
	idx := foldIndex(fold(text), fold(term))
	if idx < 0 {
		return ""
	}
	return snippet([]rune(text), idx, utf8.RuneCountInString(term), windowSize)
}

// snippet cuts the window around src[idx:idx+termLen]. The bounds are computed
// once and always contain the whole term.
func snippet(src []rune, idx, termLen, windowSize int) string {
	n := len(src)
	half := (windowSize - termLen) / 2
	if half < 0 {
		half = 0
	}

	start := max(0, idx-half)
	end := min(n, idx+termLen+half)

	// Spend the unused half of the window on the other side when the match
	// sits near an edge.
	if start == 0 {
		end = min(n, windowSize)
	} else if end == n {
		start = max(0, n-windowSize)
	}
	end = max(end, idx+termLen)
	start = min(start, idx)

	var b strings.Builder
	b.Grow(end - start + 2*len(ellipsis))
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(src[start:end]))
	if end < n {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// fold lower-cases s rune by rune. The result has exactly as many runes as s.
func fold(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// foldIndex returns the rune index of the first occurrence of needle in
// haystack, or -1. Both arguments must already be folded.
func foldIndex(haystack, needle string) int {
	b := strings.Index(haystack, needle)
	if b < 0 {
		return -1
	}
	return utf8.RuneCountInString(haystack[:b])
}
