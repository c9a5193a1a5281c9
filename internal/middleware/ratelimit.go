package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"golang.org/x/time/rate"
)

// IPRateLimiter manages rate limiters for each client key
type IPRateLimiter struct {
	ips   map[string]*rateLimiterEntry
	mu    sync.Mutex
	r     rate.Limit
	burst int
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a new IP-based rate limiter
// r = requests per second, burst = max burst size
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:   make(map[string]*rateLimiterEntry),
		r:     r,
		burst: burst,
	}
}

// Sweep drops limiters idle for longer than idle.
func (rl *IPRateLimiter) Sweep(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, entry := range rl.ips {
		if time.Since(entry.lastSeen) > idle {
			delete(rl.ips, key)
			removed++
		}
	}
	return removed
}

// GetLimiter returns the rate limiter for the given key
func (rl *IPRateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.ips[key]
	if !exists {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.r, rl.burst)}
		rl.ips[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Limiters are the per-endpoint-class limiters of one router.
type Limiters struct {
	// Auth endpoints: 20 requests per minute
	Auth *IPRateLimiter
	// OTP resend and forgot password: 5 per minute
	OTP *IPRateLimiter
	// General API: 600 requests per minute (10/sec)
	General *IPRateLimiter
	// Chat messages: 30 per minute (prevents spam, allows normal conversation)
	Chat *IPRateLimiter
}

func NewLimiters() *Limiters {
	return &Limiters{
		Auth:    NewIPRateLimiter(rate.Limit(20.0/60.0), 10),
		OTP:     NewIPRateLimiter(rate.Limit(5.0/60.0), 3),
		General: NewIPRateLimiter(rate.Limit(10.0), 50),
		Chat:    NewIPRateLimiter(rate.Limit(30.0/60.0), 10),
	}
}

// StartCleanup sweeps idle entries every minute until ctx ends.
func (l *Limiters) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, rl := range []*IPRateLimiter{l.Auth, l.OTP, l.General, l.Chat} {
					rl.Sweep(3 * time.Minute)
				}
			}
		}
	}()
}

// RateLimitMiddleware creates a rate limiting middleware with a custom limiter.
// Authenticated requests are keyed by user id, anonymous ones by client IP.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CurrentUserID(c)
		if key == "" {
			key = c.ClientIP()
		}

		if !limiter.GetLimiter(key).Allow() {
			logger.Warn().
				Str("key", key).
				Str("path", c.Request.URL.Path).
				Msg("Rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"message": "Rate limit exceeded. Please slow down.",
			})
			return
		}

		c.Next()
	}
}
