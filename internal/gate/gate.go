// Package gate bounds the volume of expensive calls per caller. Every
// AI-invoking request and every authentication attempt passes through a
// fixed-window counter keyed by bucket and caller; the (count, limit)
// comparison and the increment happen atomically per key, so concurrent
// requests for the same caller can never be over-admitted.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/debugmentor/debugmentor-backend/internal/logger"
)

const (
	// BucketAuth guards login/signup attempts, keyed by client IP.
	BucketAuth = "auth"
	// BucketAI guards oracle-invoking calls, keyed by user ID. Tighter than
	// auth because every admitted call costs real money and seconds.
	BucketAI = "ai"
)

type Bucket struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the typed admit/reject outcome. A rejection is a value, not an
// error: callers translate it into a 429 with the RetryAfter surfaced.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Counter atomically increments key inside the current window and returns
// the updated count plus the time remaining until the window resets.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Gate struct {
	log     *logger.Logger
	counter Counter
	buckets map[string]Bucket
}

func New(log *logger.Logger, counter Counter, buckets ...Bucket) *Gate {
	byName := make(map[string]Bucket, len(buckets))
	for _, b := range buckets {
		byName[b.Name] = b
	}
	return &Gate{
		log:     log.With("service", "RequestGate"),
		counter: counter,
		buckets: byName,
	}
}

func (g *Gate) Admit(ctx context.Context, bucket, callerKey string) (Decision, error) {
	b, ok := g.buckets[bucket]
	if !ok {
		return Decision{}, fmt.Errorf("unknown gate bucket %q", bucket)
	}

	key := bucket + ":" + callerKey
	count, ttl, err := g.counter.Incr(ctx, key, b.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("gate counter incr: %w", err)
	}

	if count > int64(b.Limit) {
		g.log.Debug("Gate rejected caller", "bucket", bucket, "key", callerKey, "count", count, "limit", b.Limit)
		return Decision{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: b.Limit - int(count)}, nil
}
