package matcher

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Category names the configured field that produced a match.
type Category int

const (
	CategoryKeyword Category = iota + 1
	CategoryLocation
	CategoryBusiness
	CategoryIndustry
)

func (c Category) String() string {
	switch c {
	case CategoryKeyword:
		return "keyword"
	case CategoryLocation:
		return "location"
	case CategoryBusiness:
		return "business"
	case CategoryIndustry:
		return "industry"
	default:
		return "unknown"
	}
}

// Label is the display label used by the dashboard.
func (c Category) Label() string {
	switch c {
	case CategoryKeyword:
		return "Keyword"
	case CategoryLocation:
		return "Location"
	case CategoryBusiness:
		return "Business"
	case CategoryIndustry:
		return "Industry"
	default:
		return "Unknown"
	}
}

// ParseCategory converts the stored form of a category back into a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keyword":
		return CategoryKeyword, nil
	case "location":
		return CategoryLocation, nil
	case "business":
		return CategoryBusiness, nil
	case "industry":
		return CategoryIndustry, nil
	}
	return 0, fmt.Errorf("unknown match category %q", s)
}

// MarshalText encodes the stored form. Values outside the known categories
// encode as "unknown".
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TermSet is one user's matching configuration for one monitored subreddit.
// Keywords are checked in order; the profile fields are fallbacks.
type TermSet struct {
	Keywords     []string
	Location     string
	BusinessName string
	Industry     string
}

// Match is the single highest-priority hit for a post.
type Match struct {
	// Term is the configured string that matched, in its configured casing.
	Term     string   `json:"term"`
	Category Category `json:"category"`
	Context  string   `json:"context"`
	// Offset is the character index of the match in the original text.
	Offset int `json:"offset"`
}

type candidate struct {
	term     string
	category Category
}

// candidates lists the terms of ts in priority order with blank terms removed.
func (ts TermSet) candidates() []candidate {
	out := make([]candidate, 0, len(ts.Keywords)+3)
	for _, kw := range ts.Keywords {
		if strings.TrimSpace(kw) != "" {
			out = append(out, candidate{term: kw, category: CategoryKeyword})
		}
	}
	for _, c := range []candidate{
		{term: ts.Location, category: CategoryLocation},
		{term: ts.BusinessName, category: CategoryBusiness},
		{term: ts.Industry, category: CategoryIndustry},
	} {
		if strings.TrimSpace(c.term) != "" {
			out = append(out, c)
		}
	}
	return out
}

// IsEmpty reports whether ts has no usable term at all.
func (ts TermSet) IsEmpty() bool {
	return len(ts.candidates()) == 0
}

// Resolver finds matches using a fixed snippet window.
type Resolver struct {
	windowSize int
}

// NewResolver returns a Resolver whose snippets are windowSize characters
// long. A non-positive size selects DefaultWindowSize.
func NewResolver(windowSize int) *Resolver {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Resolver{windowSize: windowSize}
}

// WindowSize returns the snippet window the resolver was built with.
func (r *Resolver) WindowSize() int {
	return r.windowSize
}

// FindFirstMatch returns the first term of terms found in text, in priority
// order: keywords by list position, then location, business name and
// industry. The boolean is false when nothing matched.
func (r *Resolver) FindFirstMatch(text string, terms TermSet) (Match, bool) {
	if text == "" {
		return Match{}, false
	}
	folded := fold(text)
	var src []rune
	for _, c := range terms.candidates() {
		idx := foldIndex(folded, fold(c.term))
		if idx < 0 {
			continue
		}
		if src == nil {
			src = []rune(text)
		}
		ctx := snippet(src, idx, utf8.RuneCountInString(c.term), r.windowSize)
		if ctx == "" {
			continue
		}
		return Match{
			Term:     c.term,
			Category: c.category,
			Context:  ctx,
			Offset:   idx,
		}, true
	}
	return Match{}, false
}

var defaultResolver = NewResolver(DefaultWindowSize)

// FindFirstMatch resolves text against terms with DefaultWindowSize.
func FindFirstMatch(text string, terms TermSet) (Match, bool) {
	return defaultResolver.FindFirstMatch(text, terms)
}
