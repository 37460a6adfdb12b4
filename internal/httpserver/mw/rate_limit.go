package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/checkvpn/internal/utils"
)

type RateLimitConfig struct {
	Every         time.Duration // one token is refilled per Every
	Burst         int
	IdleTTL       time.Duration
	SweepInterval time.Duration
	TrustProxy    bool
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type limiter struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.Every <= 0 {
		cfg.Every = 10 * time.Second
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &limiter{
		cfg:       cfg,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (l *limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.cfg.IdleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v := l.visitors[key]
	if v == nil {
		v = &visitor{lim: rate.NewLimiter(rate.Every(l.cfg.Every), l.cfg.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.lim
}

// allow takes a token for key, or reports how long until one is available.
func (l *limiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfter time.Duration) {
	lim := l.get(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0, l.cfg.Every
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, 0, delay
	}
	return true, int(math.Max(0, math.Floor(lim.TokensAt(now)))), 0
}

// RateLimit throttles requests per client address with a token bucket.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limitStr := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, l.cfg.TrustProxy)

			ok, remaining, retryAfter := l.allow(key, time.Now())
			w.Header().Set("X-RateLimit-Limit", limitStr)
			if !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
