// Package api serves the dashboard JSON API: business profile, monitored
// subreddits, detected mentions, on-demand monitoring passes and match
// previews.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/monitor"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Store is the persistence the dashboard reads and writes.
type Store interface {
	UpsertProfile(ctx context.Context, p store.Profile) (store.Profile, error)
	GetProfile(ctx context.Context, userID string) (store.Profile, error)
	AddSubreddit(ctx context.Context, userID, name string, keywords []string) (store.Subreddit, error)
	RemoveSubreddit(ctx context.Context, userID, name string) error
	ListSubreddits(ctx context.Context, userID string) ([]store.Subreddit, error)
	UpdateKeywords(ctx context.Context, userID, name string, keywords []string) ([]string, error)
	ListMentions(ctx context.Context, userID string, f store.MentionFilter) ([]store.Mention, error)
	ClearMentions(ctx context.Context, userID string) (int64, error)
}

// Suggester proposes keywords and subreddits for a business.
type Suggester interface {
	Keywords(industry, business, location string) ([]string, error)
	Subreddits(business, location, industry string) []string
}

// Lister fetches a subreddit's hot listing. It is used to check that a
// subreddit exists.
type Lister interface {
	Hot(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
}

// Limits bounds mention pagination.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

type Handler struct {
	store     Store
	runner    monitor.Runner
	suggester Suggester
	lister    Lister
	resolver  *matcher.Resolver
	limits    Limits
	logger    *slog.Logger
}

// NewHandler builds the dashboard handler. lister may be nil, in which case
// subreddit validation only checks the name format.
func NewHandler(st Store, runner monitor.Runner, sg Suggester, lister Lister, resolver *matcher.Resolver, limits Limits) *Handler {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 50
	}
	if limits.MaxLimit < limits.DefaultLimit {
		limits.MaxLimit = limits.DefaultLimit
	}
	if resolver == nil {
		resolver = matcher.NewResolver(matcher.DefaultWindowSize)
	}
	return &Handler{
		store:     st,
		runner:    runner,
		suggester: sg,
		lister:    lister,
		resolver:  resolver,
		limits:    limits,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

// Register adds the dashboard routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/profile", h.GetProfile)
	mux.HandleFunc("PUT /api/v1/profile", h.PutProfile)

	mux.HandleFunc("GET /api/v1/subreddits", h.ListSubreddits)
	mux.HandleFunc("POST /api/v1/subreddits", h.AddSubreddit)
	mux.HandleFunc("GET /api/v1/subreddits/suggest", h.SuggestSubreddits)
	mux.HandleFunc("POST /api/v1/subreddits/validate", h.ValidateSubreddit)
	mux.HandleFunc("DELETE /api/v1/subreddits/{name}", h.RemoveSubreddit)
	mux.HandleFunc("PUT /api/v1/subreddits/{name}/keywords", h.UpdateKeywords)

	mux.HandleFunc("GET /api/v1/mentions", h.ListMentions)
	mux.HandleFunc("DELETE /api/v1/mentions", h.ClearMentions)

	mux.HandleFunc("POST /api/v1/monitor/run", h.RunMonitor)
	mux.HandleFunc("POST /api/v1/match", h.Match)
	mux.HandleFunc("POST /api/v1/keywords/suggest", h.SuggestKeywords)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProfile(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.store.UpsertProfile(r.Context(), store.Profile{
		UserID:       UserID(r.Context()),
		BusinessName: req.BusinessName,
		Location:     req.Location,
		Industry:     req.Industry,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("profile saved", "business_name", p.BusinessName)
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListSubreddits(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubreddits(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"subreddits": subs, "count": len(subs)})
}

func (h *Handler) AddSubreddit(w http.ResponseWriter, r *http.Request) {
	var req subredditRequest
	if !h.decode(w, r, &req) {
		return
	}
	sub, err := h.store.AddSubreddit(r.Context(), UserID(r.Context()), req.Name, req.Keywords)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) RemoveSubreddit(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveSubreddit(r.Context(), UserID(r.Context()), r.PathValue("name")); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateKeywords(w http.ResponseWriter, r *http.Request) {
	var req keywordsRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := reddit.NormalizeSubreddit(r.PathValue("name"))
	keywords, err := h.store.UpdateKeywords(r.Context(), UserID(r.Context()), name, req.Keywords)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"subreddit_name": name,
		"keywords":       keywords,
	})
}

// ValidateSubreddit reports whether a subreddit exists. A malformed name is
// answered with exists=false rather than an error status.
func (h *Handler) ValidateSubreddit(w http.ResponseWriter, r *http.Request) {
	var req validateSubredditRequest
	if !h.decode(w, r, &req) {
		return
	}
	raw := reddit.NormalizeSubreddit(req.Name)
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "subreddit name is required")
		return
	}
	name, err := reddit.ValidateSubreddit(raw)
	if err != nil {
		h.writeJSON(w, http.StatusOK, map[string]any{
			"exists":    false,
			"subreddit": raw,
			"error":     errorMessage(err),
		})
		return
	}
	if h.lister == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"exists": true, "subreddit": name, "verified": false})
		return
	}

	_, err = h.lister.Hot(r.Context(), name, 1)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, map[string]any{"exists": true, "subreddit": name, "verified": true})
	case errors.Is(err, apperrors.ErrSubredditNotFound):
		h.writeJSON(w, http.StatusOK, map[string]any{
			"exists":    false,
			"subreddit": name,
			"error":     "subreddit not found",
		})
	default:
		logger.FromContext(r.Context()).Warn("subreddit check failed, accepting name", "subreddit", name, "error", err)
		h.writeJSON(w, http.StatusOK, map[string]any{"exists": true, "subreddit": name, "verified": false})
	}
}

// SuggestSubreddits proposes subreddits from the caller's profile. Query
// parameters override the stored profile fields.
func (h *Handler) SuggestSubreddits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	business, location, industry := q.Get("business_name"), q.Get("location"), q.Get("industry")
	if business == "" || location == "" || industry == "" {
		p, err := h.store.GetProfile(ctx, UserID(ctx))
		if err != nil && !errors.Is(err, apperrors.ErrProfileNotFound) {
			h.writeAppError(w, r, err)
			return
		}
		business = firstNonEmpty(business, p.BusinessName)
		location = firstNonEmpty(location, p.Location)
		industry = firstNonEmpty(industry, p.Industry)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": h.suggester.Subreddits(business, location, industry),
	})
}

// mentionView is a mention as the dashboard renders it.
type mentionView struct {
	store.Mention
	MatchLabel         string `json:"match_label"`
	HighlightedContext string `json:"highlighted_context"`
}

func (h *Handler) ListMentions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MentionFilter{Subreddit: q.Get("subreddit"), Limit: h.limits.DefaultLimit}
	if v := q.Get("category"); v != "" {
		c, err := matcher.ParseCategory(v)
		if err != nil {
			h.writeValidation(w, &ValidationError{Fields: map[string]string{
				"category": "category must be one of keyword, location, business, industry",
			}})
			return
		}
		filter.Category = c
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > h.limits.MaxLimit {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(h.limits.MaxLimit))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	mentions, err := h.store.ListMentions(r.Context(), UserID(r.Context()), filter)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	views := make([]mentionView, len(mentions))
	for i, m := range mentions {
		views[i] = mentionView{
			Mention:            m,
			MatchLabel:         m.MatchType.Label(),
			HighlightedContext: matcher.HighlightHTML(m.KeywordContext, m.FlaggedKeyword),
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"mentions": views,
		"count":    len(views),
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (h *Handler) ClearMentions(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.ClearMentions(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// RunMonitor runs a monitoring pass over the caller's subreddits and returns
// its report.
func (h *Handler) RunMonitor(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.RunPass(r.Context(), UserID(r.Context()))
	if err != nil {
		if report != nil && errors.Is(err, context.DeadlineExceeded) {
			h.writeJSON(w, http.StatusGatewayTimeout, map[string]any{
				"error":  "monitoring pass timed out",
				"report": report,
			})
			return
		}
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type matchResponse struct {
	Matched            bool             `json:"matched"`
	Term               string           `json:"term,omitempty"`
	Category           matcher.Category `json:"category,omitempty"`
	MatchLabel         string           `json:"match_label,omitempty"`
	Context            string           `json:"context,omitempty"`
	HighlightedContext string           `json:"highlighted_context,omitempty"`
	Offset             int              `json:"offset,omitempty"`
}

// Match previews what the matcher finds in a piece of text for a given term
// set.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !h.decode(w, r, &req) {
		return
	}
	resolver := h.resolver
	if req.Window > 0 && req.Window != resolver.WindowSize() {
		resolver = matcher.NewResolver(req.Window)
	}
	m, ok := resolver.FindFirstMatch(req.Text, matcher.TermSet{
		Keywords:     req.Keywords,
		Location:     req.Location,
		BusinessName: req.BusinessName,
		Industry:     req.Industry,
	})
	if !ok {
		h.writeJSON(w, http.StatusOK, matchResponse{Matched: false})
		return
	}
	h.writeJSON(w, http.StatusOK, matchResponse{
		Matched:            true,
		Term:               m.Term,
		Category:           m.Category,
		MatchLabel:         m.Category.Label(),
		Context:            m.Context,
		HighlightedContext: matcher.HighlightHTML(m.Context, m.Term),
		Offset:             m.Offset,
	})
}

func (h *Handler) SuggestKeywords(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !h.decode(w, r, &req) {
		return
	}
	keywords, err := h.suggester.Keywords(req.Industry, req.BusinessName, req.Location)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"keywords": keywords})
}

type validatable interface {
	validate() error
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v validatable) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := v.validate(); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeValidation(w, validationErr)
			return false
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) writeValidation(w http.ResponseWriter, err *ValidationError) {
	h.writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": err.Fields,
	})
}

// writeAppError maps err to a status code. Server-side failures are logged
// and answered with a generic message.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"error", err,
			"status_code", status,
			"path", r.URL.Path,
		)
		h.writeError(w, status, http.StatusText(status))
		return
	}
	h.writeError(w, status, errorMessage(err))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// errorMessage prefers an AppError's user-facing message.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
