package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	a := NewRedisLease(rdb, "diet:scheduler:tick", 30*time.Second)
	b := NewRedisLease(rdb, "diet:scheduler:tick", 30*time.Second)

	releaseA, ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	releaseA()
	releaseB, ok, err := b.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// a stale release from a must not drop b's lease
	releaseA()
	assert.True(t, mr.Exists("diet:scheduler:tick"))
	releaseB()
	assert.False(t, mr.Exists("diet:scheduler:tick"))
}

func TestRedisLeaseExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	l := NewRedisLease(rdb, "k", time.Second)

	_, ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLeaseError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	_, ok, err := NewRedisLease(rdb, "k", time.Second).Acquire(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
