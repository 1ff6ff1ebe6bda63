package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease grants exclusive right to run a tick. release must be called once
// the tick ends.
type Lease interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// LocalLease always grants. Ticks within one process are already
// serialised by the engine.
type LocalLease struct{}

func (LocalLease) Acquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lease taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease coordinates ticks across instances with SET NX PX.
type RedisLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLease creates a lease on key. ttl should exceed the longest
// expected tick and stay below the tick interval.
func NewRedisLease(client *redis.Client, key string, ttl time.Duration) *RedisLease {
	return &RedisLease{client: client, key: key, ttl: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire tick lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The tick context may already be cancelled at shutdown.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(rctx, l.client, []string{l.key}, token)
	}
	return release, true, nil
}
