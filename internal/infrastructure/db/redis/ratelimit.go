package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit is a fixed-window request budget.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// Verdict is the outcome of one rate-limit check.
type Verdict struct {
	Allowed   bool
	Remaining int64
	ResetIn   time.Duration
}

// RateLimiter counts requests per key in fixed windows.
// Key format: rl:<scope>:<key>:<window index>
type RateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow counts one request for key in scope against limit.
func (r *RateLimiter) Allow(ctx context.Context, scope, key string, limit Limit) (Verdict, error) {
	if limit.Window <= 0 {
		return Verdict{}, fmt.Errorf("rate limit %s: window must be positive", scope)
	}
	now := r.now()
	k, resetIn := windowKey(scope, key, limit.Window, now)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, limit.Window)
		return nil
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("rate limit %s: %w", scope, err)
	}

	count := incr.Val()
	remaining := limit.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	return Verdict{
		Allowed:   count <= limit.Requests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

func windowKey(scope, key string, window time.Duration, now time.Time) (string, time.Duration) {
	idx := now.UnixNano() / int64(window)
	end := time.Unix(0, (idx+1)*int64(window))
	return fmt.Sprintf("rl:%s:%s:%d", scope, key, idx), end.Sub(now)
}
