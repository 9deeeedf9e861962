package matcher

import (
	"html"
	"slices"
	"strings"
)

// Marker is the pair of strings wrapped around every highlighted occurrence.
type Marker struct {
	Open  string
	Close string
}

// HTMLMarker wraps matches in a <mark> element.
var HTMLMarker = Marker{Open: "<mark>", Close: "</mark>"}

// Highlight wraps every case-insensitive occurrence of term in context with
// m. Occurrences are found by literal scanning, left to right and without
// overlap, so term may contain any characters. An empty term returns context
// unchanged.
func Highlight(context, term string, m Marker) string {
	return highlight(context, term, m, func(s string) string { return s })
}

// HighlightHTML is Highlight for HTML output: the text between and inside the
// markers is escaped, and the markers are HTMLMarker.
func HighlightHTML(context, term string) string {
	return highlight(context, term, HTMLMarker, html.EscapeString)
}

func highlight(context, term string, m Marker, escape func(string) string) string {
	if context == "" || term == "" {
		return escape(context)
	}
	src := []rune(context)
	hay := []rune(fold(context))
	needle := []rune(fold(term))
	n := len(needle)

	var b strings.Builder
	last := 0
	for i := 0; i+n <= len(hay); {
		if !slices.Equal(hay[i:i+n], needle) {
			i++
			continue
		}
		b.WriteString(escape(string(src[last:i])))
		b.WriteString(m.Open)
		b.WriteString(escape(string(src[i : i+n])))
		b.WriteString(m.Close)
		i += n
		last = i
	}
	b.WriteString(escape(string(src[last:])))
	return b.String()
}
