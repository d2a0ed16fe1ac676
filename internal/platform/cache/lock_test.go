package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl), mr
}

func TestLockerExclusive(t *testing.T) {
	locker, mr := newTestLocker(t, 30*time.Second)
	ctx := context.Background()

	release, ok, err := locker.TryAcquire(ctx, "card:1:account:lock")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, mr.TTL("card:1:account:lock"))

	_, ok, err = locker.TryAcquire(ctx, "card:1:account:lock")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = locker.TryAcquire(ctx, "card:1:email:lock")
	require.NoError(t, err)
	assert.True(t, ok)

	release()
	release()
	assert.False(t, mr.Exists("card:1:account:lock"))

	_, ok, err = locker.TryAcquire(ctx, "card:1:account:lock")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerExpiredHolderDoesNotReleaseNewOwner(t *testing.T) {
	locker, mr := newTestLocker(t, time.Second)
	ctx := context.Background()

	stale, ok, err := locker.TryAcquire(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryAcquire(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	stale()
	assert.True(t, mr.Exists("k"))
}

func TestLockerRedisDown(t *testing.T) {
	locker, mr := newTestLocker(t, time.Second)
	mr.Close()

	_, ok, err := locker.TryAcquire(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()
	client, err := New(context.Background(), addr)
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = New(context.Background(), addr)
	assert.Error(t, err)
}
