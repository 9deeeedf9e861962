package matcher

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFirstMatch(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		terms    TermSet
		wantOK   bool
		term     string
		category Category
		offset   int
	}{
		{
			name:     "first keyword in list wins over earlier text position",
			text:     "beta comes before alpha here",
			terms:    TermSet{Keywords: []string{"alpha", "beta"}},
			wantOK:   true,
			term:     "alpha",
			category: CategoryKeyword,
			offset:   18,
		},
		{
			name:     "location fallback",
			text:     "new cafe opening in Seattle soon",
			terms:    TermSet{Location: "Seattle"},
			wantOK:   true,
			term:     "Seattle",
			category: CategoryLocation,
			offset:   20,
		},
		{
			name:     "keyword casing preserved",
			text:     "best pizza in town",
			terms:    TermSet{Keywords: []string{"PiZzA"}},
			wantOK:   true,
			term:     "PiZzA",
			category: CategoryKeyword,
			offset:   5,
		},
		{
			name:     "blank keywords are skipped",
			text:     "best pizza in town",
			terms:    TermSet{Keywords: []string{"", "   ", "town"}},
			wantOK:   true,
			term:     "town",
			category: CategoryKeyword,
			offset:   14,
		},
		{
			name:     "keywords beat profile fields",
			text:     "Acme Bakery in Portland sells sourdough",
			terms:    TermSet{Keywords: []string{"sourdough"}, Location: "Portland", BusinessName: "Acme Bakery"},
			wantOK:   true,
			term:     "sourdough",
			category: CategoryKeyword,
			offset:   30,
		},
		{
			name:     "location beats business name",
			text:     "Acme Bakery in Portland",
			terms:    TermSet{Keywords: []string{"croissant"}, Location: "Portland", BusinessName: "Acme Bakery"},
			wantOK:   true,
			term:     "Portland",
			category: CategoryLocation,
			offset:   15,
		},
		{
			name:     "business name beats industry",
			text:     "anyone tried acme bakery? best bakery around",
			terms:    TermSet{Location: "Denver", BusinessName: "Acme Bakery", Industry: "bakery"},
			wantOK:   true,
			term:     "Acme Bakery",
			category: CategoryBusiness,
			offset:   13,
		},
		{
			name:     "industry is the last fallback",
			text:     "looking for a good plumber",
			terms:    TermSet{Location: "Denver", BusinessName: "Pipe Pros", Industry: "Plumber"},
			wantOK:   true,
			term:     "Plumber",
			category: CategoryIndustry,
			offset:   19,
		},
		{
			name:     "offset counts characters",
			text:     "Café Ünïcode in MÜNCHEN today",
			terms:    TermSet{Location: "München"},
			wantOK:   true,
			term:     "München",
			category: CategoryLocation,
			offset:   16,
		},
		{
			name:   "nothing matches",
			text:   "completely unrelated post",
			terms:  TermSet{Keywords: []string{"alpha"}, Location: "Seattle", BusinessName: "Acme", Industry: "dental"},
			wantOK: false,
		},
		{
			name:   "empty term set",
			text:   "anything at all",
			terms:  TermSet{},
			wantOK: false,
		},
		{
			name:   "empty text",
			text:   "",
			terms:  TermSet{Keywords: []string{"alpha"}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindFirstMatch(tt.text, tt.terms)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, Match{}, got)
				return
			}
			assert.Equal(t, tt.term, got.Term)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.offset, got.Offset)
			assert.NotEmpty(t, got.Context)
			assert.Contains(t, strings.ToLower(got.Context), strings.ToLower(tt.term))
			assert.Equal(t, ExtractContext(tt.text, tt.term, DefaultWindowSize), got.Context)
		})
	}
}

func TestFindFirstMatchIsDeterministic(t *testing.T) {
	text := "Looking for a plumber in Seattle, maybe Pipe Pros or anyone else with plumbing skills"
	terms := TermSet{
		Keywords:     []string{"drain", "plumbing", "plumber"},
		Location:     "seattle",
		BusinessName: "Pipe Pros",
		Industry:     "plumbing",
	}

	first, ok := FindFirstMatch(text, terms)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		again, ok := FindFirstMatch(text, terms)
		require.True(t, ok)
		require.Equal(t, first, again)
	}
	assert.Equal(t, "plumbing", first.Term)
	assert.Equal(t, CategoryKeyword, first.Category)
}

func TestResolverWindowSize(t *testing.T) {
	text := strings.Repeat("x", 100) + " Seattle " + strings.Repeat("y", 100)
	r := NewResolver(27)
	require.Equal(t, 27, r.WindowSize())

	m, ok := r.FindFirstMatch(text, TermSet{Location: "seattle"})
	require.True(t, ok)
	assert.Equal(t, "..."+text[91:118]+"...", m.Context)
	assert.Equal(t, 101, m.Offset)

	assert.Equal(t, DefaultWindowSize, NewResolver(0).WindowSize())
	assert.Equal(t, DefaultWindowSize, NewResolver(-4).WindowSize())
}

func TestApostropheTermMatchesAndHighlights(t *testing.T) {
	text := "Has anyone been to Bob's Shop downtown? Great service."
	m, ok := FindFirstMatch(text, TermSet{Keywords: []string{"Bob's Shop"}})
	require.True(t, ok)
	assert.Equal(t, "Bob's Shop", m.Term)

	got := HighlightHTML(m.Context, m.Term)
	assert.Equal(t, "Has anyone been to <mark>Bob&#39;s Shop</mark> downtown? Great service.", got)
}

func TestCategoryText(t *testing.T) {
	for _, c := range []Category{CategoryKeyword, CategoryLocation, CategoryBusiness, CategoryIndustry} {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseCategory("hashtag")
	assert.Error(t, err)

	out, err := json.Marshal(Match{Term: "Seattle", Category: CategoryLocation, Context: "in Seattle", Offset: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"term":"Seattle","category":"location","context":"in Seattle","offset":3}`, string(out))

	var m Match
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, CategoryLocation, m.Category)
}

func TestTermSetIsEmpty(t *testing.T) {
	assert.True(t, TermSet{}.IsEmpty())
	assert.True(t, TermSet{Keywords: []string{" ", ""}, Location: "  "}.IsEmpty())
	assert.False(t, TermSet{Industry: "dental"}.IsEmpty())
}
