package reddit

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListing = `{
  "kind": "Listing",
  "data": {
    "children": [
      {"kind": "t3", "data": {"id": "abc", "title": "Best coffee in Seattle?", "selftext": "Looking for a roaster",
        "author": "bean_fan", "permalink": "/r/seattle/comments/abc/best_coffee/", "subreddit": "seattle",
        "created_utc": 1700000000.5}},
      {"kind": "t1", "data": {"id": "comment"}},
      {"kind": "t3", "data": {"id": "def", "title": "", "selftext": "", "permalink": "/r/seattle/comments/def/x/"}}
    ]
  }
}`

func TestParseListing(t *testing.T) {
	posts, err := ParseListing([]byte(sampleListing))
	require.NoError(t, err)
	require.Len(t, posts, 2)

	p := posts[0]
	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, "bean_fan", p.Author)
	assert.Equal(t, "Best coffee in Seattle? Looking for a roaster", p.Content())
	assert.Equal(t, "https://reddit.com/r/seattle/comments/abc/best_coffee/", p.URL())
	assert.Equal(t, time.Unix(1700000000, 500000000).UTC(), p.CreatedUTC)
	assert.True(t, p.HasText())
	assert.False(t, posts[1].HasText())
}

func TestParseListingMalformed(t *testing.T) {
	_, err := ParseListing([]byte("<html>blocked</html>"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadListing))
}

func TestNormalizeSubreddit(t *testing.T) {
	tests := map[string]string{
		"Seattle":       "seattle",
		"r/Seattle":     "seattle",
		"/r/seattle/":   "seattle",
		"  R/coffee ":   "coffee",
		"smallbusiness": "smallbusiness",
	}
	for in, want := range tests {
		if got := NormalizeSubreddit(in); got != want {
			t.Errorf("NormalizeSubreddit(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateSubreddit(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "r/Seattle", want: "seattle"},
		{in: "ask_science", want: "ask_science"},
		{in: "", wantErr: true},
		{in: "ab", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "this_name_is_far_too_long_for_reddit", wantErr: true},
		{in: "bad-dash", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ValidateSubreddit(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, 400, apperrors.HTTPStatusCode(err))
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
