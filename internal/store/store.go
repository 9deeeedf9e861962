package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store/migrations"
	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/postgres"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

// Store reads and writes the monitor's tables.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Store on an open connection pool.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "store"),
	}
}

// Migrate applies the embedded schema migrations to the database at url.
func Migrate(url string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// UpsertProfile creates or replaces the user's business profile.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.Location = strings.TrimSpace(p.Location)
	p.Industry = strings.TrimSpace(p.Industry)
	if err := validateProfile(p); err != nil {
		return Profile{}, err
	}
	err := s.db.DB.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, business_name, location, industry)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET business_name = EXCLUDED.business_name,
		    location = EXCLUDED.location,
		    industry = EXCLUDED.industry,
		    updated_at = NOW()
		RETURNING created_at, updated_at`,
		p.UserID, p.BusinessName, p.Location, p.Industry,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, fmt.Errorf("upserting profile %s: %w", p.UserID, err)
	}
	return p, nil
}

// GetProfile loads the user's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (Profile, error) {
	p := Profile{UserID: userID}
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT business_name, location, industry, created_at, updated_at
		FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.BusinessName, &p.Location, &p.Industry, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, apperrors.ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile %s: %w", userID, err)
	}
	return p, nil
}

// AddSubreddit starts monitoring a subreddit for the user. The user needs a
// profile first.
func (s *Store) AddSubreddit(ctx context.Context, userID, name string, keywords []string) (Subreddit, error) {
	name, err := reddit.ValidateSubreddit(name)
	if err != nil {
		return Subreddit{}, err
	}
	sub := Subreddit{UserID: userID, Name: name, Keywords: NormalizeKeywords(keywords)}
	err = s.db.DB.QueryRowContext(ctx, `
		INSERT INTO monitored_subreddits (user_id, subreddit_name, keywords)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		userID, name, pq.Array(sub.Keywords),
	).Scan(&sub.ID, &sub.CreatedAt)
	switch {
	case postgres.IsUniqueViolation(err):
		return Subreddit{}, fmt.Errorf("r/%s: %w", name, apperrors.ErrSubredditExists)
	case postgres.IsForeignKeyViolation(err):
		return Subreddit{}, apperrors.ErrProfileNotFound
	case err != nil:
		return Subreddit{}, fmt.Errorf("adding subreddit %s: %w", name, err)
	}
	s.logger.Info("subreddit added", "user_id", userID, "subreddit", name, "keywords", len(sub.Keywords))
	return sub, nil
}

// RemoveSubreddit stops monitoring a subreddit. Mentions already found are
// kept.
func (s *Store) RemoveSubreddit(ctx context.Context, userID, name string) error {
	name = reddit.NormalizeSubreddit(name)
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM monitored_subreddits WHERE user_id = $1 AND subreddit_name = $2`,
		userID, name,
	)
	if err != nil {
		return fmt.Errorf("removing subreddit %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("r/%s: %w", name, apperrors.ErrSubredditNotFound)
	}
	return nil
}

// ListSubreddits returns the user's monitored subreddits by name.
func (s *Store) ListSubreddits(ctx context.Context, userID string) ([]Subreddit, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT id, user_id, subreddit_name, keywords, created_at
		FROM monitored_subreddits
		WHERE user_id = $1
		ORDER BY subreddit_name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing subreddits: %w", err)
	}
	defer rows.Close()

	subs := make([]Subreddit, 0)
	for rows.Next() {
		var sub Subreddit
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Name, pq.Array(&sub.Keywords), &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning subreddit row: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateKeywords replaces the keyword list of a monitored subreddit and
// returns the normalized list that was stored.
func (s *Store) UpdateKeywords(ctx context.Context, userID, name string, keywords []string) ([]string, error) {
	name = reddit.NormalizeSubreddit(name)
	clean := NormalizeKeywords(keywords)
	res, err := s.db.DB.ExecContext(ctx,
		`UPDATE monitored_subreddits SET keywords = $3 WHERE user_id = $1 AND subreddit_name = $2`,
		userID, name, pq.Array(clean),
	)
	if err != nil {
		return nil, fmt.Errorf("updating keywords for %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("r/%s: %w", name, apperrors.ErrSubredditNotFound)
	}
	s.logger.Info("keywords updated", "user_id", userID, "subreddit", name, "keywords", len(clean))
	return clean, nil
}

// ListMonitorTargets joins monitored subreddits with their owners' profiles,
// ordered by subreddit and then user. An empty userID lists every user.
func (s *Store) ListMonitorTargets(ctx context.Context, userID string) ([]Target, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT ms.id, ms.user_id, ms.subreddit_name, ms.keywords, ms.created_at,
		       p.business_name, p.location, p.industry, p.created_at, p.updated_at
		FROM monitored_subreddits ms
		JOIN profiles p ON p.user_id = ms.user_id
		WHERE $1::text = '' OR ms.user_id = $1
		ORDER BY ms.subreddit_name, ms.user_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing monitor targets: %w", err)
	}
	defer rows.Close()

	var targets []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(
			&t.Subreddit.ID, &t.Subreddit.UserID, &t.Subreddit.Name, pq.Array(&t.Subreddit.Keywords), &t.Subreddit.CreatedAt,
			&t.Profile.BusinessName, &t.Profile.Location, &t.Profile.Industry, &t.Profile.CreatedAt, &t.Profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning target row: %w", err)
		}
		t.Profile.UserID = t.Subreddit.UserID
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// InsertMention stores a mention unless the user already has one for the
// same post URL. It reports whether a row was written.
func (s *Store) InsertMention(ctx context.Context, m Mention) (bool, error) {
	res, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO mentions (user_id, subreddit, post_title, post_url, content, author,
		                      created_at, notified, flagged_keyword, keyword_context, match_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9, $10)
		ON CONFLICT (user_id, post_url) DO NOTHING`,
		m.UserID, m.Subreddit, m.PostTitle, m.PostURL, m.Content, m.Author,
		m.CreatedAt, m.FlaggedKeyword, m.KeywordContext, m.MatchType.String(),
	)
	if err != nil {
		return false, fmt.Errorf("inserting mention %s: %w", m.PostURL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting mention %s: %w", m.PostURL, err)
	}
	return n == 1, nil
}

// ListMentions returns the user's mentions, newest post first.
func (s *Store) ListMentions(ctx context.Context, userID string, f MentionFilter) ([]Mention, error) {
	category := ""
	if f.Category != 0 {
		category = f.Category.String()
	}
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT id, user_id, subreddit, post_title, post_url, content, author,
		       created_at, detected_at, notified, flagged_keyword, keyword_context, match_type
		FROM mentions
		WHERE user_id = $1
		  AND ($2::text = '' OR match_type = $2)
		  AND ($3::text = '' OR subreddit = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		userID, category, reddit.NormalizeSubreddit(f.Subreddit), f.Limit, f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing mentions: %w", err)
	}
	defer rows.Close()

	mentions := make([]Mention, 0)
	for rows.Next() {
		var (
			m         Mention
			matchType string
		)
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.Subreddit, &m.PostTitle, &m.PostURL, &m.Content, &m.Author,
			&m.CreatedAt, &m.DetectedAt, &m.Notified, &m.FlaggedKeyword, &m.KeywordContext, &matchType,
		); err != nil {
			return nil, fmt.Errorf("scanning mention row: %w", err)
		}
		if m.MatchType, err = matcher.ParseCategory(matchType); err != nil {
			s.logger.Warn("mention has unknown match type", "id", m.ID, "match_type", matchType)
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

// ClearMentions deletes all of the user's mentions and returns how many were
// removed.
func (s *Store) ClearMentions(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM mentions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clearing mentions: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("mentions cleared", "user_id", userID, "deleted", n)
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
