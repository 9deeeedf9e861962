package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/middleware"
)

// Registrar adds routes to a mux.
type Registrar interface {
	Register(mux *http.ServeMux)
}

// RouterConfig carries the pieces the router wires around the handler.
// Zero values disable the corresponding middleware.
type RouterConfig struct {
	Health          *health.Checker
	Metrics         *metrics.Metrics
	Limiter         middleware.Limiter
	RateLimit       int
	RateLimitWindow time.Duration
	AllowOrigins    []string
	RequestTimeout  time.Duration
	Extra           []Registrar
}

// NewRouter builds the dashboard HTTP handler.
//
// Route table:
//
//	GET    /health/live                        → liveness
//	GET    /health/ready                       → readiness
//	GET    /api/v1/profile                     → caller's profile
//	PUT    /api/v1/profile                     → save profile
//	GET    /api/v1/subreddits                  → monitored subreddits
//	POST   /api/v1/subreddits                  → monitor a subreddit
//	GET    /api/v1/subreddits/suggest          → subreddit suggestions
//	POST   /api/v1/subreddits/validate         → check a subreddit exists
//	DELETE /api/v1/subreddits/{name}           → stop monitoring
//	PUT    /api/v1/subreddits/{name}/keywords  → replace keywords
//	GET    /api/v1/mentions                    → detected mentions
//	DELETE /api/v1/mentions                    → clear mentions
//	POST   /api/v1/monitor/run                 → run a pass now
//	POST   /api/v1/match                       → match preview
//	POST   /api/v1/keywords/suggest            → keyword suggestions
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → RateLimit → Identity → Timeout → Metrics → mux
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	checker := cfg.Health
	if checker == nil {
		checker = health.NewChecker()
	}
	mux.Handle("GET /health/live", checker.LiveHandler())
	mux.Handle("GET /health/ready", checker.ReadyHandler())

	h.Register(mux)
	for _, r := range cfg.Extra {
		r.Register(mux)
	}

	// Applied inside-out. Metrics sits next to the mux so it sees the
	// matched route pattern.
	var chain http.Handler = mux
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	if cfg.RequestTimeout > 0 {
		chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	}
	chain = Identity()(chain)
	if cfg.Limiter != nil && cfg.RateLimit > 0 && cfg.RateLimitWindow > 0 {
		chain = middleware.RateLimit(cfg.Limiter, cfg.RateLimit, cfg.RateLimitWindow)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	return chain
}
