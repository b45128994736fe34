package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/tenantdesk/apiserver/internal/handlers"
	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 5 * time.Minute

type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per authenticated caller. It must sit
// behind the auth gate.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	onReject func()

	mu       sync.Mutex
	limiters map[uuid.UUID]*callerLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter allows perMinute requests per caller with the given burst
// and starts a goroutine that forgets idle callers. Call Stop to end it.
func NewRateLimiter(perMinute, burst int, onReject func()) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		onReject: onReject,
		limiters: make(map[uuid.UUID]*callerLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop(limiterCleanupInterval)
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := handlers.PrincipalFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.get(p.UserID).Allow() {
			if rl.onReject != nil {
				rl.onReject()
			}
			hlog.FromRequest(r).Warn().Str("user_id", p.UserID.String()).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Len reports how many callers are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) get(id uuid.UUID) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[id]
	if !ok {
		cl = &callerLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[id] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

// retryAfter is the whole number of seconds until one token is refilled.
func (rl *RateLimiter) retryAfter() int {
	if rl.limit <= 0 {
		return 60
	}
	secs := int(math.Ceil(1.0 / float64(rl.limit)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now(), 2*interval)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time, ttl time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.limiters, id)
		}
	}
}
