package api

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/store"
)

const (
	maxNameLength  = 200
	maxMatchText   = 100000
	maxWindowSize  = 2000
	maxPreviewTerm = store.MaxKeywords
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func (f fieldErrors) maxLen(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		f[field] = fmt.Sprintf("%s must be at most %d characters", field, n)
	}
}

type profileRequest struct {
	BusinessName string `json:"business_name"`
	Location     string `json:"location"`
	Industry     string `json:"industry"`
}

func (req *profileRequest) validate() error {
	errs := fieldErrors{}
	if strings.TrimSpace(req.BusinessName) == "" {
		errs["business_name"] = "business name is required"
	}
	errs.maxLen("business_name", strings.TrimSpace(req.BusinessName), maxNameLength)
	errs.maxLen("location", strings.TrimSpace(req.Location), maxNameLength)
	errs.maxLen("industry", strings.TrimSpace(req.Industry), maxNameLength)
	return errs.err()
}

type subredditRequest struct {
	Name     string   `json:"subreddit_name"`
	Keywords []string `json:"keywords"`
}

func (req *subredditRequest) validate() error {
	errs := fieldErrors{}
	if strings.TrimSpace(req.Name) == "" {
		errs["subreddit_name"] = "subreddit name is required"
	}
	validateKeywords(errs, req.Keywords)
	return errs.err()
}

type keywordsRequest struct {
	Keywords []string `json:"keywords"`
}

func (req *keywordsRequest) validate() error {
	errs := fieldErrors{}
	validateKeywords(errs, req.Keywords)
	return errs.err()
}

func validateKeywords(errs fieldErrors, keywords []string) {
	if len(keywords) > store.MaxKeywords {
		errs["keywords"] = fmt.Sprintf("at most %d keywords are allowed", store.MaxKeywords)
		return
	}
	for _, k := range keywords {
		if utf8.RuneCountInString(strings.TrimSpace(k)) > store.MaxKeywordLength {
			errs["keywords"] = fmt.Sprintf("keywords must be at most %d characters", store.MaxKeywordLength)
			return
		}
	}
}

type matchRequest struct {
	Text         string   `json:"text"`
	Keywords     []string `json:"keywords"`
	Location     string   `json:"location"`
	BusinessName string   `json:"business_name"`
	Industry     string   `json:"industry"`
	Window       int      `json:"window"`
}

func (req *matchRequest) validate() error {
	errs := fieldErrors{}
	errs.maxLen("text", req.Text, maxMatchText)
	if len(req.Keywords) > maxPreviewTerm {
		errs["keywords"] = fmt.Sprintf("at most %d keywords are allowed", maxPreviewTerm)
	}
	if req.Window < 0 || req.Window > maxWindowSize {
		errs["window"] = fmt.Sprintf("window must be between 0 and %d", maxWindowSize)
	}
	return errs.err()
}

type suggestRequest struct {
	Industry     string `json:"industry"`
	BusinessName string `json:"business_name"`
	Location     string `json:"location"`
}

func (req *suggestRequest) validate() error {
	errs := fieldErrors{}
	if strings.TrimSpace(req.Industry) == "" {
		errs["industry"] = "industry is required"
	}
	errs.maxLen("industry", req.Industry, maxNameLength)
	errs.maxLen("business_name", req.BusinessName, maxNameLength)
	errs.maxLen("location", req.Location, maxNameLength)
	return errs.err()
}

type validateSubredditRequest struct {
	Name string `json:"subreddit_name"`
}

func (req *validateSubredditRequest) validate() error {
	errs := fieldErrors{}
	errs.maxLen("subreddit_name", strings.TrimSpace(req.Name), maxNameLength)
	return errs.err()
}
