package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	"golang.org/x/time/rate"

	"github.com/soaringjerry/pregate/internal/utils"
)

// RateLimit caps requests per client IP over a sliding window.
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	if max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(max, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusTooManyRequests, utils.T(LocaleFromContext(r.Context()), "rate.limited"))
		}),
	)
}

const loginSweepInterval = time.Minute

// LoginGuard is a per-IP token bucket for the admin login route. An IP that drains its
// bucket is blocked for blockTime. Refilled buckets and lapsed blocks are swept at most
// once per loginSweepInterval.
type LoginGuard struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	blocked   map[string]time.Time
	burst     int
	every     time.Duration
	blockTime time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewLoginGuard allows perMinute attempts per minute per IP.
func NewLoginGuard(perMinute int, blockTime time.Duration) *LoginGuard {
	if perMinute <= 0 {
		perMinute = 5
	}
	return &LoginGuard{
		limiters:  map[string]*rate.Limiter{},
		blocked:   map[string]time.Time{},
		burst:     perMinute,
		every:     time.Minute / time.Duration(perMinute),
		blockTime: blockTime,
		now:       time.Now,
	}
}

// Allow consumes one attempt for ip and reports the remaining block time when refused.
func (g *LoginGuard) Allow(ip string) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if now.Sub(g.lastSweep) >= loginSweepInterval {
		g.sweepLocked(now)
	}
	if until, ok := g.blocked[ip]; ok {
		if now.Before(until) {
			return false, until.Sub(now)
		}
		delete(g.blocked, ip)
		delete(g.limiters, ip)
	}
	lim, ok := g.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(g.every), g.burst)
		g.limiters[ip] = lim
	}
	if !lim.AllowN(now, 1) {
		g.blocked[ip] = now.Add(g.blockTime)
		return false, g.blockTime
	}
	return true, 0
}

// sweepLocked forgets IPs whose block has lapsed and unblocked IPs whose bucket is full
// again; callers hold mu.
func (g *LoginGuard) sweepLocked(now time.Time) {
	g.lastSweep = now
	for ip, until := range g.blocked {
		if !now.Before(until) {
			delete(g.blocked, ip)
			delete(g.limiters, ip)
		}
	}
	for ip, lim := range g.limiters {
		if _, blocked := g.blocked[ip]; blocked {
			continue
		}
		if lim.TokensAt(now) >= float64(g.burst) {
			delete(g.limiters, ip)
		}
	}
}

func (g *LoginGuard) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, wait := g.Allow(ClientIP(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)))
			writeJSONError(w, http.StatusTooManyRequests, utils.T(LocaleFromContext(r.Context()), "rate.limited"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP is the remote host without the port. Proxy headers only count when RealIP
// runs upstream, which the router enables for TRUST_PROXY.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
