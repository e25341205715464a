package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rateLimitPerMinute = 140

// requestID tags each request with a UUID, echoed in the response and
// attached to the request log line.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)

		started := time.Now()
		next.ServeHTTP(w, r)

		zap.L().Debug("request",
			zap.String("id", id),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(started)))
	})
}

// ipLimiters tracks one token bucket per client IP. Idle entries are
// pruned so the map cannot grow without bound.
type ipLimiters struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket
	perMin  int
}

type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(perMin int) *ipLimiters {
	return &ipLimiters{buckets: make(map[string]*ipBucket), perMin: perMin}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(rate.Limit(l.perMin)/60, l.perMin)}
		l.buckets[ip] = b
	}
	b.lastSeen = time.Now()

	if len(l.buckets) > 10_000 {
		l.prune()
	}
	return b.limiter.Allow()
}

func (l *ipLimiters) prune() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
		}
	}
}

// rateLimit enforces a per-IP request budget, returning 429 beyond it.
func rateLimit(perMin int) func(http.Handler) http.Handler {
	limiters := newIPLimiters(perMin)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiters.allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
