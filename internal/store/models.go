// Package store persists business profiles, monitored subreddits and
// detected mentions in PostgreSQL.
package store

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
)

const (
	// MaxContentLength is the number of characters of post body kept with a
	// mention.
	MaxContentLength = 500
	MaxKeywords      = 50
	MaxKeywordLength = 100

	defaultTitle  = "No title"
	defaultAuthor = "Unknown"
)

// Profile is the business a user monitors Reddit for.
type Profile struct {
	UserID       string    `json:"user_id"`
	BusinessName string    `json:"business_name"`
	Location     string    `json:"location"`
	Industry     string    `json:"industry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Subreddit is one subreddit a user watches, with its ordered keywords.
type Subreddit struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"subreddit_name"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
}

// Target is a monitored subreddit joined with its owner's profile: the unit
// of work of a monitoring pass.
type Target struct {
	Subreddit Subreddit
	Profile   Profile
}

// TermSet builds the matcher input for this target.
func (t Target) TermSet() matcher.TermSet {
	return matcher.TermSet{
		Keywords:     t.Subreddit.Keywords,
		Location:     t.Profile.Location,
		BusinessName: t.Profile.BusinessName,
		Industry:     t.Profile.Industry,
	}
}

// Mention is a post that matched one of a user's terms.
type Mention struct {
	ID             int64            `json:"id"`
	UserID         string           `json:"user_id"`
	Subreddit      string           `json:"subreddit"`
	PostTitle      string           `json:"post_title"`
	PostURL        string           `json:"post_url"`
	Content        string           `json:"content"`
	Author         string           `json:"author"`
	CreatedAt      time.Time        `json:"created_at"`
	DetectedAt     time.Time        `json:"detected_at"`
	Notified       bool             `json:"notified"`
	FlaggedKeyword string           `json:"flagged_keyword"`
	KeywordContext string           `json:"keyword_context"`
	MatchType      matcher.Category `json:"match_type"`
}

// NewMention builds the row stored for a post that matched. Missing titles
// and authors get placeholders and the body is cut to MaxContentLength
// characters.
func NewMention(userID string, post reddit.Post, m matcher.Match) Mention {
	title := post.Title
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}
	author := post.Author
	if strings.TrimSpace(author) == "" {
		author = defaultAuthor
	}
	sub := post.Subreddit
	if sub == "" {
		sub = "unknown"
	}
	return Mention{
		UserID:         userID,
		Subreddit:      reddit.NormalizeSubreddit(sub),
		PostTitle:      title,
		PostURL:        post.URL(),
		Content:        truncate(post.SelfText, MaxContentLength),
		Author:         author,
		CreatedAt:      post.CreatedUTC,
		FlaggedKeyword: m.Term,
		KeywordContext: m.Context,
		MatchType:      m.Category,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// NormalizeKeywords trims keywords, drops empty and overlong ones and
// case-insensitive duplicates, and keeps the first MaxKeywords in their
// original order. Order matters: the first keyword found in a post wins.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" || utf8.RuneCountInString(k) > MaxKeywordLength {
			continue
		}
		key := strings.ToLower(k)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// MentionFilter narrows ListMentions.
type MentionFilter struct {
	Category  matcher.Category
	Subreddit string
	Limit     int
	Offset    int
}

func validateProfile(p Profile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "user id is required")
	}
	if strings.TrimSpace(p.BusinessName) == "" {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "business name is required")
	}
	return nil
}
