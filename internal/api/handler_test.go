package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/monitor"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	profiles   map[string]store.Profile
	subreddits map[string][]store.Subreddit
	mentions   map[string][]store.Mention
	lastFilter store.MentionFilter
	failWith   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:   make(map[string]store.Profile),
		subreddits: make(map[string][]store.Subreddit),
		mentions:   make(map[string][]store.Mention),
	}
}

func (f *fakeStore) UpsertProfile(_ context.Context, p store.Profile) (store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return store.Profile{}, f.failWith
	}
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	f.profiles[p.UserID] = p
	return p, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return store.Profile{}, f.failWith
	}
	p, ok := f.profiles[userID]
	if !ok {
		return store.Profile{}, apperrors.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeStore) AddSubreddit(_ context.Context, userID, name string, keywords []string) (store.Subreddit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, err := reddit.ValidateSubreddit(name)
	if err != nil {
		return store.Subreddit{}, err
	}
	if _, ok := f.profiles[userID]; !ok {
		return store.Subreddit{}, apperrors.ErrProfileNotFound
	}
	for _, s := range f.subreddits[userID] {
		if s.Name == name {
			return store.Subreddit{}, fmt.Errorf("r/%s: %w", name, apperrors.ErrSubredditExists)
		}
	}
	sub := store.Subreddit{ID: int64(len(f.subreddits[userID]) + 1), UserID: userID, Name: name, Keywords: store.NormalizeKeywords(keywords)}
	f.subreddits[userID] = append(f.subreddits[userID], sub)
	return sub, nil
}

func (f *fakeStore) RemoveSubreddit(_ context.Context, userID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = reddit.NormalizeSubreddit(name)
	subs := f.subreddits[userID]
	for i, s := range subs {
		if s.Name == name {
			f.subreddits[userID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrSubredditNotFound
}

func (f *fakeStore) ListSubreddits(_ context.Context, userID string) ([]store.Subreddit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Subreddit{}, f.subreddits[userID]...), nil
}

func (f *fakeStore) UpdateKeywords(_ context.Context, userID, name string, keywords []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subreddits[userID] {
		if s.Name == name {
			clean := store.NormalizeKeywords(keywords)
			f.subreddits[userID][i].Keywords = clean
			return clean, nil
		}
	}
	return nil, apperrors.ErrSubredditNotFound
}

func (f *fakeStore) ListMentions(_ context.Context, userID string, filter store.MentionFilter) ([]store.Mention, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.lastFilter = filter
	return append([]store.Mention{}, f.mentions[userID]...), nil
}

func (f *fakeStore) ClearMentions(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.mentions[userID])
	delete(f.mentions, userID)
	return int64(n), nil
}

type fakeRunner struct {
	report *monitor.PassReport
	err    error
	users  []string
}

func (f *fakeRunner) RunPass(_ context.Context, userID string) (*monitor.PassReport, error) {
	f.users = append(f.users, userID)
	return f.report, f.err
}

type fakeLister struct {
	err error
}

func (f *fakeLister) Hot(_ context.Context, subreddit string, _ int) ([]reddit.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []reddit.Post{{ID: "a", Subreddit: subreddit}}, nil
}

type fixture struct {
	store  *fakeStore
	runner *fakeRunner
	lister *fakeLister
	server http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := suggest.DefaultCatalog()
	require.NoError(t, err)

	f := &fixture{
		store:  newFakeStore(),
		runner: &fakeRunner{report: &monitor.PassReport{PassID: "pass-1", Saved: 2, Results: []monitor.SubredditResult{}}},
		lister: &fakeLister{},
	}
	h := NewHandler(f.store, f.runner, suggest.New(catalog, 0), f.lister, nil, Limits{DefaultLimit: 20, MaxLimit: 100})
	f.server = NewRouter(h, RouterConfig{RequestTimeout: 5 * time.Second})
	return f
}

func (f *fixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestMissingUserIDIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthNeedsNoUserID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfileRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/profile", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/profile", "u1", map[string]string{
		"business_name": "Joe's Coffee",
		"location":      "Seattle",
		"industry":      "coffee",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/profile", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Joe's Coffee", body["business_name"])
	assert.Equal(t, "u1", body["user_id"])
}

func TestPutProfileValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/profile", "u1", map[string]string{"location": "Seattle"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.Contains(t, body["fields"], "business_name")

	rec = f.do(t, http.MethodPut, "/api/v1/profile", "u1", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubredditLifecycle(t *testing.T) {
	f := newFixture(t)
	f.store.profiles["u1"] = store.Profile{UserID: "u1", BusinessName: "Acme"}

	rec := f.do(t, http.MethodPost, "/api/v1/subreddits", "u1", map[string]any{
		"subreddit_name": "r/Seattle",
		"keywords":       []string{" coffee ", "Coffee", "espresso"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "seattle", body["subreddit_name"])
	assert.Equal(t, []any{"coffee", "espresso"}, body["keywords"])

	rec = f.do(t, http.MethodPost, "/api/v1/subreddits", "u1", map[string]any{"subreddit_name": "seattle"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/subreddits/seattle/keywords", "u1", map[string]any{
		"keywords": []string{"latte"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"latte"}, decodeBody(t, rec)["keywords"])

	rec = f.do(t, http.MethodGet, "/api/v1/subreddits", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = f.do(t, http.MethodDelete, "/api/v1/subreddits/seattle", "u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/subreddits/seattle", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddSubredditErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/subreddits", "u1", map[string]any{"subreddit_name": "seattle"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "no profile yet")

	f.store.profiles["u1"] = store.Profile{UserID: "u1", BusinessName: "Acme"}
	rec = f.do(t, http.MethodPost, "/api/v1/subreddits", "u1", map[string]any{"subreddit_name": "a!"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "3-21 characters")

	tooMany := make([]string, store.MaxKeywords+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("k%d", i)
	}
	rec = f.do(t, http.MethodPost, "/api/v1/subreddits", "u1", map[string]any{"subreddit_name": "seattle", "keywords": tooMany})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["fields"], "keywords")
}

func TestValidateSubreddit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/subreddits/validate", "u1", map[string]string{"subreddit_name": "r/Seattle"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, "seattle", body["subreddit"])

	rec = f.do(t, http.MethodPost, "/api/v1/subreddits/validate", "u1", map[string]string{"subreddit_name": "ab"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["exists"])
	assert.NotEmpty(t, body["error"])

	rec = f.do(t, http.MethodPost, "/api/v1/subreddits/validate", "u1", map[string]string{"subreddit_name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.lister.err = fmt.Errorf("r/nowhere: %w", apperrors.ErrSubredditNotFound)
	rec = f.do(t, http.MethodPost, "/api/v1/subreddits/validate", "u1", map[string]string{"subreddit_name": "nowhere"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["exists"])

	f.lister.err = apperrors.ErrUpstreamUnavailable
	rec = f.do(t, http.MethodPost, "/api/v1/subreddits/validate", "u1", map[string]string{"subreddit_name": "seattle"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, false, body["verified"])
}

func TestValidateSubredditRejectsLongName(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/subreddits/validate", "u1",
		map[string]string{"subreddit_name": strings.Repeat("s", 201)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["fields"], "subreddit_name")
}

func TestListMentionsHighlightsContext(t *testing.T) {
	f := newFixture(t)
	f.store.mentions["u1"] = []store.Mention{{
		ID:             1,
		UserID:         "u1",
		Subreddit:      "seattle",
		PostTitle:      "Coffee",
		FlaggedKeyword: "coffee",
		KeywordContext: "best <coffee> in town",
		MatchType:      matcher.CategoryKeyword,
	}}

	rec := f.do(t, http.MethodGet, "/api/v1/mentions?category=keyword&subreddit=Seattle&limit=5&offset=10", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.EqualValues(t, 1, body["count"])

	mention := body["mentions"].([]any)[0].(map[string]any)
	assert.Equal(t, "keyword", mention["match_type"])
	assert.Equal(t, "Keyword", mention["match_label"])
	assert.Equal(t, "best &lt;<mark>coffee</mark>&gt; in town", mention["highlighted_context"])

	assert.Equal(t, matcher.CategoryKeyword, f.store.lastFilter.Category)
	assert.Equal(t, "Seattle", f.store.lastFilter.Subreddit)
	assert.Equal(t, 5, f.store.lastFilter.Limit)
	assert.Equal(t, 10, f.store.lastFilter.Offset)
}

func TestListMentionsRejectsBadQuery(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"category=nope", "limit=0", "limit=101", "limit=x", "offset=-1"} {
		rec := f.do(t, http.MethodGet, "/api/v1/mentions?"+q, "u1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/mentions", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, f.store.lastFilter.Limit)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	f := newFixture(t)
	f.store.failWith = fmt.Errorf("pq: connection refused to 10.0.0.5")

	rec := f.do(t, http.MethodGet, "/api/v1/mentions", "u1", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestClearMentions(t *testing.T) {
	f := newFixture(t)
	f.store.mentions["u1"] = []store.Mention{{ID: 1}, {ID: 2}}

	rec := f.do(t, http.MethodDelete, "/api/v1/mentions", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["deleted"])
	assert.Empty(t, f.store.mentions["u1"])
}

func TestRunMonitor(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/monitor/run", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "pass-1", body["pass_id"])
	assert.EqualValues(t, 2, body["saved"])
	assert.Equal(t, []string{"u1"}, f.runner.users)

	f.runner.report, f.runner.err = nil, apperrors.ErrPassInProgress
	rec = f.do(t, http.MethodPost, "/api/v1/monitor/run", "u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMatchPreview(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/match", "u1", map[string]any{
		"text":          "Anyone tried the new place in Seattle? Joe's Coffee is great.",
		"keywords":      []string{"latte"},
		"location":      "Seattle",
		"business_name": "Joe's Coffee",
		"window":        10,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "Seattle", body["term"])
	assert.Equal(t, "location", body["category"])
	assert.Equal(t, "Location", body["match_label"])
	assert.Contains(t, body["highlighted_context"], "<mark>Seattle</mark>")

	rec = f.do(t, http.MethodPost, "/api/v1/match", "u1", map[string]any{
		"text":     "nothing relevant here",
		"keywords": []string{"latte"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"matched": false}, decodeBody(t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/match", "u1", map[string]any{"text": "x", "window": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestKeywords(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/keywords/suggest", "u1", map[string]string{
		"industry":      "coffee",
		"business_name": "Bean There",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	keywords := decodeBody(t, rec)["keywords"].([]any)
	require.NotEmpty(t, keywords)
	assert.Equal(t, "coffee", keywords[0])
	assert.Equal(t, "Bean There", keywords[1])

	rec = f.do(t, http.MethodPost, "/api/v1/keywords/suggest", "u1", map[string]string{"business_name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestSubredditsUsesProfile(t *testing.T) {
	f := newFixture(t)
	f.store.profiles["u1"] = store.Profile{UserID: "u1", BusinessName: "Acme", Location: "Seattle", Industry: "coffee"}

	rec := f.do(t, http.MethodGet, "/api/v1/subreddits/suggest", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decodeBody(t, rec)["suggestions"].([]any)
	assert.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), suggest.DefaultMaxSubreddits)
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "a:one; b:two", err.Error())
}
