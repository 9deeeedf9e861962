package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
)

type EventType string

const (
	EventMentionDetected EventType = "mention_detected"
	EventPassCompleted   EventType = "pass_completed"
)

// MentionEvent is published for every newly saved mention.
type MentionEvent struct {
	Type       EventType        `json:"type"`
	EventID    string           `json:"event_id"`
	PassID     string           `json:"pass_id"`
	UserID     string           `json:"user_id"`
	Subreddit  string           `json:"subreddit"`
	PostURL    string           `json:"post_url"`
	Term       string           `json:"term"`
	Category   matcher.Category `json:"category"`
	DetectedAt time.Time        `json:"detected_at"`
}

// PassEvent summarizes one finished monitoring pass.
type PassEvent struct {
	Type         EventType `json:"type"`
	PassID       string    `json:"pass_id"`
	Subreddits   int       `json:"subreddits"`
	PostsScanned int       `json:"posts_scanned"`
	Found        int       `json:"found"`
	Saved        int       `json:"saved"`
	Duplicates   int       `json:"duplicates"`
	Errors       int       `json:"errors"`
	DurationMs   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

type envelope struct {
	Type EventType `json:"type"`
}
