package api

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/logger"
)

// UserIDHeader carries the caller's user ID. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

const maxUserIDLength = 128

type contextKey string

const userIDKey contextKey = "user_id"

// Identity returns middleware that requires the X-User-ID header and stores
// its value in the request context. Health endpoints are exempt.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			id := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if id == "" {
				writeRawError(w, http.StatusUnauthorized, "missing user id")
				return
			}
			if utf8.RuneCountInString(id) > maxUserIDLength {
				writeRawError(w, http.StatusBadRequest, "user id too long")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, id)
			ctx = logger.WithUserID(ctx, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the caller's user ID from ctx, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func writeRawError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
