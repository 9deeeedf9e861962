// Package suggest proposes keywords and subreddits for a business from an
// industry catalog.
package suggest

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const (
	DefaultMaxKeywords   = 20
	DefaultMaxSubreddits = 15
	minKeywordLength     = 3
)

// Catalog holds the suggestion tables. Every list is ordered.
type Catalog struct {
	Industries         []Industry `yaml:"industries"`
	CommonTerms        []string   `yaml:"commonTerms"`
	GeneralSubreddits  []string   `yaml:"generalSubreddits"`
	IndustrySubreddits []Mapping  `yaml:"industrySubreddits"`
	LocationSubreddits []Mapping  `yaml:"locationSubreddits"`
	NameHints          []NameHint `yaml:"nameHints"`
}

// Industry lists the keywords suggested for an industry name.
type Industry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Mapping maps a lowercase key to subreddit names.
type Mapping struct {
	Key        string   `yaml:"key"`
	Subreddits []string `yaml:"subreddits"`
}

// NameHint suggests subreddits when the business name contains any of the
// given words.
type NameHint struct {
	Contains   []string `yaml:"contains"`
	Subreddits []string `yaml:"subreddits"`
}

// DefaultCatalog parses the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path loads the built-in one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(c.Industries) == 0 {
		return nil, fmt.Errorf("catalog lists no industries")
	}
	return &c, nil
}

// Suggester answers suggestion requests from a catalog.
type Suggester struct {
	catalog     *Catalog
	maxKeywords int
}

// New returns a Suggester capping keyword lists at maxKeywords, or
// DefaultMaxKeywords when maxKeywords is not positive.
func New(c *Catalog, maxKeywords int) *Suggester {
	if maxKeywords <= 0 {
		maxKeywords = DefaultMaxKeywords
	}
	return &Suggester{catalog: c, maxKeywords: maxKeywords}
}

// Keywords proposes monitoring keywords. The industry itself comes first,
// then the business name, then the rest from shortest to longest. Entries
// shorter than three characters are dropped and duplicates are removed
// ignoring case.
func (s *Suggester) Keywords(industry, business, location string) ([]string, error) {
	industry = strings.TrimSpace(industry)
	business = strings.TrimSpace(business)
	location = strings.TrimSpace(location)
	if industry == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "industry is required")
	}

	var set orderedSet
	set.add(industry)
	set.add(business)
	set.add(location)

	industryLower := strings.ToLower(industry)
	for _, ind := range s.catalog.Industries {
		if related(industryLower, strings.ToLower(ind.Name)) {
			set.add(ind.Keywords...)
		}
	}
	if location != "" {
		set.add(location, location+" area", "near "+location, location+" services", "local "+location)
	}
	if business != "" {
		first, _, _ := strings.Cut(business, " ")
		set.add(strings.Join(strings.Fields(business), ""), first)
	}
	set.add(s.catalog.CommonTerms...)

	keywords := make([]string, 0, len(set.items))
	for _, k := range set.items {
		if utf8.RuneCountInString(k) >= minKeywordLength {
			keywords = append(keywords, k)
		}
	}
	rank := func(k string) int {
		switch {
		case strings.EqualFold(k, industry):
			return 0
		case business != "" && strings.EqualFold(k, business):
			return 1
		}
		return 2
	}
	sort.SliceStable(keywords, func(i, j int) bool {
		ri, rj := rank(keywords[i]), rank(keywords[j])
		if ri != rj {
			return ri < rj
		}
		return utf8.RuneCountInString(keywords[i]) < utf8.RuneCountInString(keywords[j])
	})
	if len(keywords) > s.maxKeywords {
		keywords = keywords[:s.maxKeywords]
	}
	return keywords, nil
}

// Subreddits proposes subreddits to monitor: hints from the business name,
// then industry subreddits, then general business ones, then location
// subreddits, at most DefaultMaxSubreddits of them.
func (s *Suggester) Subreddits(business, location, industry string) []string {
	var set orderedSet
	businessLower := strings.ToLower(business)
	for _, hint := range s.catalog.NameHints {
		for _, word := range hint.Contains {
			if strings.Contains(businessLower, word) {
				set.add(hint.Subreddits...)
				break
			}
		}
	}
	if industryLower := strings.ToLower(strings.TrimSpace(industry)); industryLower != "" {
		for _, m := range s.catalog.IndustrySubreddits {
			if related(industryLower, m.Key) {
				set.add(m.Subreddits...)
			}
		}
	}
	set.add(s.catalog.GeneralSubreddits...)
	set.add(s.locationSubreddits(location)...)

	out := set.items
	if len(out) > DefaultMaxSubreddits {
		out = out[:DefaultMaxSubreddits]
	}
	return out
}

// locationSubreddits prefers an exact key match and otherwise collects
// every partially matching key.
func (s *Suggester) locationSubreddits(location string) []string {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return nil
	}
	for _, m := range s.catalog.LocationSubreddits {
		if loc == m.Key {
			return m.Subreddits
		}
	}
	var out []string
	for _, m := range s.catalog.LocationSubreddits {
		if related(loc, m.Key) {
			out = append(out, m.Subreddits...)
		}
	}
	return out
}

// related reports whether either lowercase string contains the other.
func related(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// orderedSet keeps first occurrences, comparing case-insensitively.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (o *orderedSet) add(values ...string) {
	if o.seen == nil {
		o.seen = make(map[string]struct{})
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := o.seen[key]; ok {
			continue
		}
		o.seen[key] = struct{}{}
		o.items = append(o.items, v)
	}
}
