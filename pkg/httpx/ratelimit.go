package httpx

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ehsh01/it-ops-dashboard/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// with at most Burst tokens banked.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

func (c RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Route profiles. Each one can be overridden at startup through
// RATELIMIT_{NAME}_REQUESTS, RATELIMIT_{NAME}_WINDOW_SEC and
// RATELIMIT_{NAME}_BURST.
var (
	// StrictLimit guards login and registration.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers admin mutations, invite checks and the Microsoft
	// OAuth round trip.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers signed-in reads.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}

	// PublicLimit covers probes and API docs.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)
}

// ParseRateLimitFromEnv overlays RATELIMIT_{prefix}_* onto def. Values that
// are missing, malformed or not positive keep the default.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// bucketIdleTTL is how long a key may go unseen before its bucket is
// dropped. It must exceed every profile's refill time or an evicted
// bucket would come back full early.
const bucketIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one limiter per key and sweeps idle ones on access.
type buckets struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	byKey     map[string]*bucket
	nextSweep time.Time
}

func newBuckets(cfg RateLimitConfig) *buckets {
	return &buckets{
		cfg:       cfg,
		byKey:     make(map[string]*bucket),
		nextSweep: time.Now().Add(bucketIdleTTL),
	}
}

func (b *buckets) get(key string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.After(b.nextSweep) {
		for k, v := range b.byKey {
			if now.Sub(v.lastSeen) > bucketIdleTTL {
				delete(b.byKey, k)
			}
		}
		b.nextSweep = now.Add(bucketIdleTTL)
	}

	bk, ok := b.byKey[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.cfg.limit(), b.cfg.Burst)}
		b.byKey[key] = bk
	}
	bk.lastSeen = now
	return bk.limiter
}

// retryAfter is the whole number of seconds, at least one, until the
// limiter has a token again.
func retryAfter(l *rate.Limiter, now time.Time) int {
	r := l.ReserveN(now, 1)
	defer r.CancelAt(now)
	return max(int(r.DelayFrom(now).Seconds()), 1)
}

// RateLimitMiddleware rejects requests with 429 once the bucket for
// keyOf(r) is empty. Requests that produce no key pass through.
func RateLimitMiddleware(cfg RateLimitConfig, keyOf KeyExtractor) Middleware {
	b := newBuckets(cfg)
	limitHeader := strconv.Itoa(cfg.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyOf(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request, letting it through",
					"path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			limiter := b.get(key, now)
			if limiter.AllowN(now, 1) {
				next.ServeHTTP(w, r)
				return
			}

			wait := retryAfter(limiter, now)
			w.Header().Set("Retry-After", strconv.Itoa(wait))
			w.Header().Set("X-RateLimit-Limit", limitHeader)
			w.Header().Set("X-RateLimit-Window", cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key,
				"path", r.URL.Path,
				"retry_after", wait,
			)
			WriteError(w, http.StatusTooManyRequests,
				"Too many requests", "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP buckets by client address.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor)
}

// RateLimitByUser buckets by signed-in user and client address, so
// anonymous callers still share a per-address bucket.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndJSONField buckets by client address plus a body field,
// which for login is the username being tried.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, field string) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(field)))
}
