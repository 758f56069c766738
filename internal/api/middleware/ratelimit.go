package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"devbook/internal/common"
	"devbook/internal/platform/logger"
	"devbook/internal/platform/metrics"
)

const (
	rateLimitMessage   = "Too many requests from this IP, please try again in an hour!"
	maxTrackedVisitors = 10000
	rateLimitKeyPrefix = "devbook:ratelimit:"
)

// RateLimiter limits requests per client IP. With a Redis client the window is
// shared by every instance; without one a token bucket per IP is kept in memory.
type RateLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:      rdb,
		max:      limit,
		window:   window,
		now:      time.Now,
		log:      logger.WithComponent("ratelimit"),
		visitors: make(map[string]*rate.Limiter),
	}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed, remaining, err := l.allow(r.Context(), ip)
		if err != nil {
			// Fail open.
			l.log.Error().Err(err).Str("ip", ip).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			metrics.RateLimitedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			common.RespondWithError(w, r, common.NewAppError(http.StatusTooManyRequests, rateLimitMessage, nil, nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(ctx context.Context, ip string) (bool, int, error) {
	if l.rdb != nil {
		return l.allowShared(ctx, ip)
	}
	return l.allowLocal(ip)
}

// allowShared counts requests in a fixed window keyed by ip and window start.
func (l *RateLimiter) allowShared(ctx context.Context, ip string) (bool, int, error) {
	windowStart := l.now().Truncate(l.window).Unix()
	key := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, ip, windowStart)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}

	count := int(incr.Val())
	return count <= l.max, max(l.max-count, 0), nil
}

func (l *RateLimiter) allowLocal(ip string) (bool, int, error) {
	l.mu.Lock()
	limiter, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) >= maxTrackedVisitors {
			l.visitors = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rate.Limit(float64(l.max)/l.window.Seconds()), l.max)
		l.visitors[ip] = limiter
	}
	l.mu.Unlock()

	now := l.now()
	allowed := limiter.AllowN(now, 1)
	return allowed, max(int(limiter.TokensAt(now)), 0), nil
}

// clientIP uses RemoteAddr, which chi's RealIP middleware has already rewritten.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
