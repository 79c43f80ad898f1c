package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ebike_tours/internal/domain"
)

// RetryLimiter is a fixed-window counter shared by every web replica, so a
// visitor cannot multiply upstream reads by bouncing between instances.
type RetryLimiter struct {
	c      *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

var _ domain.RetryLimiter = (*RetryLimiter)(nil)

func New(addr, pass string, db, limit int, window time.Duration) *RetryLimiter {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), limit, window)
}

func NewWithClient(c *redis.Client, limit int, window time.Duration) *RetryLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RetryLimiter{c: c, limit: int64(limit), window: window, now: time.Now}
}

func (r *RetryLimiter) Name() string { return "redis" }

func (r *RetryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := r.now().UnixNano() / int64(r.window)
	k := fmt.Sprintf("tours:retry:%s:%d", key, slot)

	pipe := r.c.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= r.limit, nil
}

func (r *RetryLimiter) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *RetryLimiter) Close() error { return r.c.Close() }
