// Package reddit fetches subreddit listings from Reddit's public JSON
// endpoints, falling back across several sources.
package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
)

const permalinkHost = "https://reddit.com"

// ErrBadListing reports a response body that is not a listing document.
var ErrBadListing = errors.New("malformed listing")

// Post is one entry of a subreddit listing.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SelfText   string    `json:"selftext"`
	Author     string    `json:"author"`
	Permalink  string    `json:"permalink"`
	Subreddit  string    `json:"subreddit"`
	CreatedUTC time.Time `json:"created_utc"`
}

// Content is the text matched against a user's terms.
func (p Post) Content() string {
	return p.Title + " " + p.SelfText
}

// URL is the canonical link to the post, used as the dedup key.
func (p Post) URL() string {
	return permalinkHost + p.Permalink
}

// HasText reports whether the post has a title or a body.
func (p Post) HasText() bool {
	return strings.TrimSpace(p.Title) != "" || strings.TrimSpace(p.SelfText) != ""
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string  `json:"kind"`
			Data rawPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type rawPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	Author     string  `json:"author"`
	Permalink  string  `json:"permalink"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
}

// ParseListing decodes a listing document. Children that are not posts are
// ignored.
func ParseListing(data []byte) ([]Post, error) {
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadListing, err)
	}
	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		raw := child.Data
		sec, frac := math.Modf(raw.CreatedUTC)
		posts = append(posts, Post{
			ID:         raw.ID,
			Title:      raw.Title,
			SelfText:   raw.SelfText,
			Author:     raw.Author,
			Permalink:  raw.Permalink,
			Subreddit:  raw.Subreddit,
			CreatedUTC: time.Unix(int64(sec), int64(frac*1e9)).UTC(),
		})
	}
	return posts, nil
}

var subredditPattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

// NormalizeSubreddit strips an r/ or /r/ prefix, trims and lowercases.
func NormalizeSubreddit(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if len(name) >= 2 && strings.EqualFold(name[:2], "r/") {
		name = name[2:]
	}
	return strings.ToLower(strings.Trim(name, "/ "))
}

// ValidateSubreddit normalizes name and checks Reddit's naming rules:
// 3 to 21 letters, digits or underscores.
func ValidateSubreddit(name string) (string, error) {
	n := NormalizeSubreddit(name)
	if n == "" {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "subreddit name is required")
	}
	if !subredditPattern.MatchString(n) {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"subreddit %q must be 3-21 characters of letters, numbers and underscores", n)
	}
	return n, nil
}
