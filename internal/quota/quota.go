package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter enforces a coarse per-creator payout-request attempt quota on top
// of redis. It is advisory, defense-in-depth only: the transactional checks
// in the request manager remain the correctness mechanism, so any redis
// failure fails open.
type Limiter struct {
	redis  redis.Cmdable
	limit  int
	window time.Duration
}

func NewLimiter(client redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{redis: client, limit: limit, window: window}
}

// Allow records one attempt and reports whether the creator is still within
// quota. Counts every attempt, including ones later rejected inside the
// transaction.
func (l *Limiter) Allow(ctx context.Context, creatorID uuid.UUID) bool {
	if l == nil || l.redis == nil || l.limit <= 0 {
		return true
	}

	key := fmt.Sprintf("payout-attempts:%s", creatorID)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		zap.L().Warn("quota increment failed, failing open", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			zap.L().Warn("quota expire failed", zap.Error(err))
		}
	}
	return count <= int64(l.limit)
}
