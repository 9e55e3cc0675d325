package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRedis implements the two commands the limiter uses; everything else
// panics through the embedded nil interface.
type stubRedis struct {
	redis.Cmdable
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func newStubRedis() *stubRedis {
	return &stubRedis{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Duration),
	}
}

func (s *stubRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if s.incrErr != nil {
		cmd.SetErr(s.incrErr)
		return cmd
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	cmd.SetVal(s.counts[key])
	return cmd
}

func (s *stubRedis) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	s.mu.Lock()
	s.expires[key] = ttl
	s.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	cmd.SetVal(true)
	return cmd
}

func TestAllowWithinLimit(t *testing.T) {
	client := newStubRedis()
	limiter := NewLimiter(client, 3, time.Hour)
	creatorID := uuid.New()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(context.Background(), creatorID), "attempt %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow(context.Background(), creatorID), "attempt 4 should be denied")

	// The window TTL is set on the first attempt only.
	require.Len(t, client.expires, 1)
	for _, ttl := range client.expires {
		assert.Equal(t, time.Hour, ttl)
	}
}

func TestAllowTracksCreatorsIndependently(t *testing.T) {
	limiter := NewLimiter(newStubRedis(), 1, time.Hour)

	first := uuid.New()
	assert.True(t, limiter.Allow(context.Background(), first))
	assert.False(t, limiter.Allow(context.Background(), first))

	assert.True(t, limiter.Allow(context.Background(), uuid.New()))
}

func TestAllowFailsOpenOnRedisError(t *testing.T) {
	client := newStubRedis()
	client.incrErr = errors.New("connection refused")
	limiter := NewLimiter(client, 1, time.Hour)

	creatorID := uuid.New()
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(context.Background(), creatorID))
	}
}

func TestAllowWithoutLimiter(t *testing.T) {
	var limiter *Limiter
	assert.True(t, limiter.Allow(context.Background(), uuid.New()))

	assert.True(t, NewLimiter(nil, 3, time.Hour).Allow(context.Background(), uuid.New()))
	assert.True(t, NewLimiter(newStubRedis(), 0, time.Hour).Allow(context.Background(), uuid.New()))
}
