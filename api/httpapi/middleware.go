package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterSweepThreshold is the client count above which idle limiters are pruned.
	limiterSweepThreshold = 500
	limiterMaxIdle        = 10 * time.Minute
)

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiters := newClientLimiters(rate.Limit(float64(rpm)/60), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.get(clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one rate.Limiter per client and prunes idle ones
// inline once the map grows past limiterSweepThreshold.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	r       rate.Limit
	b       int
}

func newClientLimiters(r rate.Limit, b int) *clientLimiters {
	return &clientLimiters{clients: make(map[string]*limiterEntry), r: r, b: b}
}

func (c *clientLimiters) get(key string) *rate.Limiter {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.clients) > limiterSweepThreshold {
		cutoff := now.Add(-limiterMaxIdle)
		for k, e := range c.clients {
			if e.lastSeen.Before(cutoff) {
				delete(c.clients, k)
			}
		}
	}
	e, ok := c.clients[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(c.r, c.b)}
		c.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter
}
