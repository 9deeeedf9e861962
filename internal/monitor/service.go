// Package monitor runs monitoring passes: it fetches each watched
// subreddit once, matches its posts against every watching user's terms and
// stores the mentions it finds.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/tracing"
	"github.com/google/uuid"
)

const (
	defaultPostLimit = 25
	defaultLockTTL   = 10 * time.Minute
	allUsersScope    = "all"
)

// Lister returns a subreddit's hot listing.
type Lister interface {
	Hot(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
}

// Store is the persistence the monitor needs.
type Store interface {
	ListMonitorTargets(ctx context.Context, userID string) ([]store.Target, error)
	InsertMention(ctx context.Context, m store.Mention) (bool, error)
}

// Locker guards a pass scope against concurrent runs, across processes.
type Locker interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// EventTracker receives analytics events.
type EventTracker interface {
	Track(key, eventType string, value any)
}

// Config tunes a Service.
type Config struct {
	PostLimit      int
	SubredditDelay time.Duration
	LockTTL        time.Duration
	ContextWindow  int
}

// SubredditResult is the outcome of checking one subreddit for one user.
type SubredditResult struct {
	Subreddit  string `json:"subreddit"`
	UserID     string `json:"user_id"`
	Found      int    `json:"found"`
	Saved      int    `json:"saved"`
	Duplicates int    `json:"duplicates"`
	Error      string `json:"error,omitempty"`
}

// PassReport summarizes a monitoring pass.
type PassReport struct {
	PassID       string            `json:"pass_id"`
	Results      []SubredditResult `json:"results"`
	Subreddits   int               `json:"subreddits"`
	PostsScanned int               `json:"posts_scanned"`
	Found        int               `json:"found"`
	Saved        int               `json:"saved"`
	Duplicates   int               `json:"duplicates"`
	Errors       int               `json:"errors"`
	StartedAt    time.Time         `json:"started_at"`
	DurationMs   int64             `json:"duration_ms"`
	Duration     time.Duration     `json:"-"`
}

func (r *PassReport) add(res SubredditResult) {
	r.Results = append(r.Results, res)
	r.Found += res.Found
	r.Saved += res.Saved
	r.Duplicates += res.Duplicates
	if res.Error != "" {
		r.Errors++
	}
}

// Service runs monitoring passes.
type Service struct {
	lister   Lister
	store    Store
	locker   Locker
	events   EventTracker
	metrics  *metrics.Metrics
	resolver *matcher.Resolver
	cfg      Config
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLocker makes passes exclusive per scope.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithEvents publishes a MentionEvent per saved mention and a PassEvent per
// pass.
func WithEvents(e EventTracker) Option {
	return func(s *Service) { s.events = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service reading listings from lister and writing
// mentions to st.
func NewService(lister Lister, st Store, cfg Config, opts ...Option) *Service {
	if cfg.PostLimit <= 0 {
		cfg.PostLimit = defaultPostLimit
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	s := &Service{
		lister:   lister,
		store:    st,
		resolver: matcher.NewResolver(cfg.ContextWindow),
		cfg:      cfg,
		sleep:    sleepCtx,
		logger:   slog.Default().With("component", "monitor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunPass checks every subreddit watched by userID, or by every user when
// userID is empty. Each subreddit is fetched once however many users watch
// it. A failed fetch is recorded in the report and does not stop the pass.
// It returns apperrors.ErrPassInProgress when a pass for the same scope is
// already running.
func (s *Service) RunPass(ctx context.Context, userID string) (*PassReport, error) {
	scope := allUsersScope
	if userID != "" {
		scope = "user:" + userID
	}
	release, err := s.lock(ctx, scope)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := tracing.StartSpan(ctx, "monitor.pass", "")
	span.SetAttr("scope", scope)
	report := &PassReport{PassID: span.TraceID, StartedAt: time.Now().UTC(), Results: []SubredditResult{}}

	targets, err := s.store.ListMonitorTargets(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.End()
		span.Log(s.logger)
		return nil, fmt.Errorf("loading monitor targets: %w", err)
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		report.DurationMs = report.Duration.Milliseconds()
		span.SetAttr("saved", report.Saved)
		span.End()
		span.Log(s.logger)
		s.finish(report)
	}()
	groups, names := groupBySubreddit(targets)
	report.Subreddits = len(names)
	if len(names) == 0 {
		s.logger.Info("no subreddits to monitor", "scope", scope)
		return report, nil
	}

	for i, name := range names {
		if i > 0 && s.cfg.SubredditDelay > 0 {
			if err := s.sleep(ctx, s.cfg.SubredditDelay); err != nil {
				span.RecordError(err)
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.checkSubreddit(ctx, report, name, groups[name])
	}
	return report, nil
}

func (s *Service) checkSubreddit(ctx context.Context, report *PassReport, name string, targets []store.Target) {
	ctx, span := tracing.StartChildSpan(ctx, "monitor.subreddit")
	defer span.End()
	span.SetAttr("subreddit", name)
	span.SetAttr("users", len(targets))

	posts, err := s.lister.Hot(ctx, name, s.cfg.PostLimit)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("fetching subreddit failed", "subreddit", name, "error", err)
		for _, t := range targets {
			report.add(SubredditResult{Subreddit: name, UserID: t.Subreddit.UserID, Error: err.Error()})
		}
		return
	}
	posts = append([]reddit.Post(nil), posts...)
	for i := range posts {
		if posts[i].Subreddit == "" {
			posts[i].Subreddit = name
		}
	}
	report.PostsScanned += len(posts)
	if s.metrics != nil {
		s.metrics.PostsScannedTotal.Add(float64(len(posts)))
	}
	span.SetAttr("posts", len(posts))

	for _, t := range targets {
		report.add(s.scanTarget(ctx, report.PassID, name, t, posts))
	}
}

func (s *Service) scanTarget(ctx context.Context, passID, name string, t store.Target, posts []reddit.Post) SubredditResult {
	userID := t.Subreddit.UserID
	ctx, span := tracing.StartChildSpan(ctx, "monitor.user")
	defer span.End()
	span.SetAttr("user_id", userID)

	res := SubredditResult{Subreddit: name, UserID: userID}
	terms := t.TermSet()
	if terms.IsEmpty() {
		return res
	}
	var failures []error
	for _, post := range posts {
		if !post.HasText() {
			continue
		}
		m, ok := s.resolver.FindFirstMatch(post.Content(), terms)
		if !ok {
			continue
		}
		res.Found++
		if s.metrics != nil {
			s.metrics.MentionsDetectedTotal.WithLabelValues(m.Category.String()).Inc()
		}
		mention := store.NewMention(userID, post, m)
		inserted, err := s.store.InsertMention(ctx, mention)
		if err != nil {
			failures = append(failures, err)
			s.logger.Error("saving mention failed", "user_id", userID, "post_url", mention.PostURL, "error", err)
			continue
		}
		if !inserted {
			res.Duplicates++
			if s.metrics != nil {
				s.metrics.MentionsDuplicate.Inc()
			}
			continue
		}
		res.Saved++
		if s.metrics != nil {
			s.metrics.MentionsSavedTotal.Inc()
		}
		s.track(userID, analytics.EventMentionDetected, analytics.MentionEvent{
			Type:       analytics.EventMentionDetected,
			EventID:    uuid.NewString(),
			PassID:     passID,
			UserID:     userID,
			Subreddit:  name,
			PostURL:    mention.PostURL,
			Term:       m.Term,
			Category:   m.Category,
			DetectedAt: time.Now().UTC(),
		})
	}
	if len(failures) > 0 {
		err := errors.Join(failures...)
		span.RecordError(err)
		res.Error = fmt.Sprintf("%d mentions not saved: %v", len(failures), failures[0])
	}
	span.SetAttr("found", res.Found)
	span.SetAttr("saved", res.Saved)
	return res
}

func (s *Service) finish(report *PassReport) {
	if s.metrics != nil {
		s.metrics.PassDuration.Observe(report.Duration.Seconds())
	}
	s.track(report.PassID, analytics.EventPassCompleted, analytics.PassEvent{
		Type:         analytics.EventPassCompleted,
		PassID:       report.PassID,
		Subreddits:   report.Subreddits,
		PostsScanned: report.PostsScanned,
		Found:        report.Found,
		Saved:        report.Saved,
		Duplicates:   report.Duplicates,
		Errors:       report.Errors,
		DurationMs:   report.Duration.Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
	s.logger.Info("monitoring pass finished",
		"pass_id", report.PassID,
		"subreddits", report.Subreddits,
		"posts_scanned", report.PostsScanned,
		"found", report.Found,
		"saved", report.Saved,
		"duplicates", report.Duplicates,
		"errors", report.Errors,
		"duration", report.Duration,
	)
}

func (s *Service) track(key string, t analytics.EventType, v any) {
	if s.events != nil {
		s.events.Track(key, string(t), v)
	}
}

// lock takes the pass lock for scope and returns its release function.
func (s *Service) lock(ctx context.Context, scope string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := "monitor:pass:" + scope
	token := uuid.NewString()
	ok, err := s.locker.AcquireLock(ctx, key, token, s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("taking pass lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", scope, apperrors.ErrPassInProgress)
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(releaseCtx, key, token); err != nil {
			s.logger.Warn("releasing pass lock failed", "key", key, "error", err)
		}
	}, nil
}

// groupBySubreddit buckets targets by subreddit and returns the names in
// sorted order.
func groupBySubreddit(targets []store.Target) (map[string][]store.Target, []string) {
	groups := make(map[string][]store.Target)
	for _, t := range targets {
		name := reddit.NormalizeSubreddit(t.Subreddit.Name)
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], t)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return groups, names
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
