package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"profile missing", ErrProfileNotFound, http.StatusNotFound},
		{"wrapped subreddit missing", fmt.Errorf("fetching r/x: %w", ErrSubredditNotFound), http.StatusNotFound},
		{"duplicate subreddit", ErrSubredditExists, http.StatusConflict},
		{"pass running", fmt.Errorf("user u1: %w", ErrPassInProgress), http.StatusConflict},
		{"bad input", ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"upstream", fmt.Errorf("all sources failed: %w", ErrUpstreamUnavailable), http.StatusBadGateway},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error wins", New(ErrInvalidInput, http.StatusUnprocessableEntity, "window"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrMentionNotFound, http.StatusNotFound, "mention %d", 42)
	if !errors.Is(err, ErrMentionNotFound) {
		t.Fatal("AppError should unwrap to its sentinel")
	}
	if got, want := err.Error(), "mention not found: mention 42"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
