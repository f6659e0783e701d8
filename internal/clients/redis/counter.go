package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/debugmentor/debugmentor-backend/internal/logger"
)

// GateCounter backs the request gate with shared windows so the limits hold
// across every instance of the service.
type GateCounter struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewGateCounter(log *logger.Logger) (*GateCounter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_GATE_PREFIX"))
	if prefix == "" {
		prefix = "gate"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &GateCounter{
		log:    log.With("service", "RedisGateCounter"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (c *GateCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	full := c.prefix + ":" + key

	count, err := c.rdb.Incr(ctx, full).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, full, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		return count, window, nil
	}

	ttl, err := c.rdb.PTTL(ctx, full).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis pttl: %w", err)
	}
	if ttl < 0 {
		// Key exists without an expiry (lost between INCR and EXPIRE); pin it.
		if err := c.rdb.Expire(ctx, full, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

func (c *GateCounter) Close() error {
	return c.rdb.Close()
}
