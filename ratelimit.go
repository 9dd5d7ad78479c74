package cleanblog

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const writeLimiterIdle = 5 * time.Minute

type ipBucket struct {
	limiter *rate.Limiter
	expires time.Time
}

// WriteLimiter is a token bucket per client IP for state-changing public
// endpoints. Buckets idle for five minutes are dropped.
type WriteLimiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewWriteLimiter allows perMinute requests per IP with a burst of half that.
func NewWriteLimiter(perMinute int) *WriteLimiter {
	perMinute = max(perMinute, 1)
	return &WriteLimiter{
		buckets: make(map[string]*ipBucket),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
		now:     time.Now,
	}
}

// Allow takes a token from ip's bucket.
func (l *WriteLimiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if now.After(b.expires) {
			delete(l.buckets, key)
		}
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.expires = now.Add(writeLimiterIdle)
	return b.limiter.AllowN(now, 1)
}

// Middleware rejects POST requests over the limit with 429. Other methods
// pass through untouched.
func (l *WriteLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Method != http.MethodPost {
			return next(c)
		}
		if !l.Allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Try again later.")
		}
		return next(c)
	}
}
