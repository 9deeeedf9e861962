package suggest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuggester(t *testing.T) *Suggester {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return New(c, 0)
}

func TestKeywords(t *testing.T) {
	s := newSuggester(t)
	got, err := s.Keywords("Plumbing", "Joe's Plumbing", "Austin")
	require.NoError(t, err)

	require.Len(t, got, DefaultMaxKeywords)
	assert.Equal(t, "Plumbing", got[0])
	assert.Equal(t, "Joe's Plumbing", got[1])
	for i := 3; i < len(got); i++ {
		assert.LessOrEqual(t, utf8.RuneCountInString(got[i-1]), utf8.RuneCountInString(got[i]), "sorted by length after the leading entries")
	}
	seen := map[string]bool{}
	for _, k := range got {
		key := strings.ToLower(k)
		assert.False(t, seen[key], "duplicate %q", k)
		seen[key] = true
		assert.GreaterOrEqual(t, utf8.RuneCountInString(k), 3)
	}
	assert.True(t, seen["plumber"])
	assert.True(t, seen["sewer"])
}

func TestKeywordsMaxAndMinimalInput(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	got, err := New(c, 5).Keywords("underwater basket weaving", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"underwater basket weaving", "service", "company", "services", "business"}, got)
}

func TestKeywordsRequiresIndustry(t *testing.T) {
	_, err := newSuggester(t).Keywords("  ", "Shop", "Austin")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSubreddits(t *testing.T) {
	got := newSuggester(t).Subreddits("Bean There Coffee", "Seattle", "restaurant")
	require.Len(t, got, DefaultMaxSubreddits)
	assert.Equal(t, []string{"cafe", "Coffee", "smallbusiness", "barista", "FoodService"}, got[:5])
	assert.Contains(t, got, "entrepreneur")
	assert.Contains(t, got, "Seattle")
}

func TestLocationSubredditsExactBeatsPartial(t *testing.T) {
	s := newSuggester(t)
	assert.Equal(t, []string{"washingtondc", "nova", "dmv", "maryland", "virginia"}, s.locationSubreddits("Washington DC"))
	assert.Contains(t, s.locationSubreddits("greater boston"), "massachusetts")
	assert.Nil(t, s.locationSubreddits(""))
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
industries:
  - name: bakery
    keywords: [bread, sourdough, pastry]
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	got, err := New(c, 10).Keywords("bakery", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"bakery", "bread", "pastry", "sourdough"}, got)

	_, err = ParseCatalog([]byte("industries: []"))
	assert.Error(t, err)
}
