package gate

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter is the single-instance Counter: a mutex-guarded map of
// fixed windows. Increment-and-read is atomic per key under the lock.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (c *MemoryCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		c.windows[key] = w
	}
	w.count++

	if len(c.windows) > 4096 {
		c.evictExpired(now)
	}

	return w.count, w.resetAt.Sub(now), nil
}

func (c *MemoryCounter) evictExpired(now time.Time) {
	for k, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, k)
		}
	}
}
