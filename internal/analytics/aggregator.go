// Package analytics aggregates mention and pass events consumed from Kafka
// into dashboard statistics.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/kafka"
)

const topLimit = 10

type AggregatedStats struct {
	TotalMentions     int64            `json:"total_mentions"`
	MentionsByType    map[string]int64 `json:"mentions_by_type"`
	TopSubreddits     []TermCount      `json:"top_subreddits"`
	TopTerms          []TermCount      `json:"top_terms"`
	MentionsPerMinute float64          `json:"mentions_per_minute"`
	PassesCompleted   int64            `json:"passes_completed"`
	PostsScanned      int64            `json:"posts_scanned"`
	DuplicatesSkipped int64            `json:"duplicates_skipped"`
	FetchErrors       int64            `json:"fetch_errors"`
	AvgPassMs         float64          `json:"avg_pass_ms"`
	P95PassMs         int64            `json:"p95_pass_ms"`
	LastPassAt        *time.Time       `json:"last_pass_at,omitempty"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Source feeds events to the aggregator. *kafka.Consumer implements it.
type Source interface {
	SetHandler(handler kafka.MessageHandler)
	Start(ctx context.Context) error
}

type Aggregator struct {
	mu            sync.RWMutex
	totalMentions atomic.Int64
	passes        atomic.Int64
	postsScanned  atomic.Int64
	duplicates    atomic.Int64
	fetchErrors   atomic.Int64
	byType        map[string]int64
	bySubreddit   map[string]int64
	byTerm        map[string]int64
	passDurations []int64
	lastPass      time.Time
	startTime     time.Time
	now           func() time.Time
	source        Source
	logger        *slog.Logger
}

// NewAggregator creates an aggregator fed by source. The source's handler is
// set to the aggregator's event handler.
func NewAggregator(source Source) *Aggregator {
	a := &Aggregator{
		byType:        make(map[string]int64),
		bySubreddit:   make(map[string]int64),
		byTerm:        make(map[string]int64),
		passDurations: make([]int64, 0, 1024),
		startTime:     time.Now(),
		now:           time.Now,
		source:        source,
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
	if source != nil {
		source.SetHandler(a.HandleMessage)
	}
	return a
}

func (a *Aggregator) Start(ctx context.Context) error {
	if a.source == nil {
		return fmt.Errorf("aggregator has no event source")
	}
	a.logger.Info("analytics aggregator starting")
	return a.source.Start(ctx)
}

// HandleMessage decodes one event and records it. Undecodable messages are
// logged and dropped so they do not block the partition.
func (a *Aggregator) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		return nil
	}
	switch env.Type {
	case EventMentionDetected:
		event, err := kafka.DecodeJSON[MentionEvent](value)
		if err != nil {
			a.logger.Error("failed to decode mention event", "error", err)
			return nil
		}
		a.RecordMention(event)
	case EventPassCompleted:
		event, err := kafka.DecodeJSON[PassEvent](value)
		if err != nil {
			a.logger.Error("failed to decode pass event", "error", err)
			return nil
		}
		a.RecordPass(event)
	default:
		a.logger.Warn("unknown analytics event type", "type", env.Type)
	}
	return nil
}

// Track records an event in process, without a broker in between. It has
// the same signature as the batch collector's Track so either can receive
// the monitor's events.
func (a *Aggregator) Track(key, eventType string, value any) {
	switch event := value.(type) {
	case MentionEvent:
		a.RecordMention(event)
	case PassEvent:
		a.RecordPass(event)
	default:
		a.logger.Warn("unknown analytics event", "key", key, "type", eventType)
	}
}

func (a *Aggregator) RecordMention(event MentionEvent) {
	a.totalMentions.Add(1)
	a.mu.Lock()
	a.byType[event.Category.String()]++
	a.bySubreddit[event.Subreddit]++
	a.byTerm[event.Term]++
	a.mu.Unlock()
}

func (a *Aggregator) RecordPass(event PassEvent) {
	a.passes.Add(1)
	a.postsScanned.Add(int64(event.PostsScanned))
	a.duplicates.Add(int64(event.Duplicates))
	a.fetchErrors.Add(int64(event.Errors))
	a.mu.Lock()
	a.passDurations = append(a.passDurations, event.DurationMs)
	if event.Timestamp.After(a.lastPass) {
		a.lastPass = event.Timestamp
	}
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalMentions:     a.totalMentions.Load(),
		MentionsByType:    make(map[string]int64, len(a.byType)),
		PassesCompleted:   a.passes.Load(),
		PostsScanned:      a.postsScanned.Load(),
		DuplicatesSkipped: a.duplicates.Load(),
		FetchErrors:       a.fetchErrors.Load(),
	}
	for k, v := range a.byType {
		stats.MentionsByType[k] = v
	}
	if len(a.passDurations) > 0 {
		sorted := make([]int64, len(a.passDurations))
		copy(sorted, a.passDurations)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, d := range sorted {
			sum += d
		}
		stats.AvgPassMs = float64(sum) / float64(len(sorted))
		stats.P95PassMs = percentile(sorted, 95)
	}
	if !a.lastPass.IsZero() {
		last := a.lastPass
		stats.LastPassAt = &last
	}
	stats.TopSubreddits = topN(a.bySubreddit, topLimit)
	stats.TopTerms = topN(a.byTerm, topLimit)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.MentionsPerMinute = float64(stats.TotalMentions) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken by term.
func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Term < result[j].Term
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
