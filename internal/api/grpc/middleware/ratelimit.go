package middleware

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"github.com/dtroode/pgpmail-server/internal/apierrors"
	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/metrics"
)

const evictEvery = 512

// KeyedLimiter applies a token bucket per key and evicts idle buckets.
type KeyedLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter returns nil when rps or burst is not positive. A nil
// limiter allows everything.
func NewKeyedLimiter(rps float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*bucket),
	}
}

// Allow reports whether one token can be consumed for key at now.
func (l *KeyedLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%evictEvery == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}

func (l *KeyedLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

// RateLimit throttles unary requests per peer host.
type RateLimit struct {
	limiter *KeyedLimiter
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

// NewRateLimit creates a new RateLimit middleware. m may be nil.
func NewRateLimit(limiter *KeyedLimiter, m *metrics.Metrics, logger *logger.Logger) *RateLimit {
	return &RateLimit{limiter: limiter, metrics: m, logger: logger, now: time.Now}
}

// HandleGRPC rejects the request with ResourceExhausted when the peer has
// no tokens left.
func (r *RateLimit) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	key := peerKey(ctx)
	if !r.limiter.Allow(key, r.now()) {
		r.metrics.ObserveRateLimited(info.FullMethod)
		r.logger.Warn("RateLimit middleware: request throttled",
			"method", info.FullMethod,
			"peer", key)
		return nil, apierrors.NewErrRateLimited()
	}
	return handler(ctx, req)
}

// peerKey identifies the caller by host so reconnecting from a new port
// shares the bucket.
func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSpace(addr)
}
