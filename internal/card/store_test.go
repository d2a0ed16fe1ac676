package card

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func sampleSnapshot() Snapshot {
	c := New("card-1", "001", Deps{})
	fillAccount(c, validAccountForm())
	fillEmail(c, "ops@example.com", "Contracts")
	c.ToggleDocumentSelection("D1", true)
	return c.Snapshot()
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	snap := sampleSnapshot()

	require.NoError(t, store.Create(ctx, snap))

	got, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Account, got.Account)
	assert.Equal(t, snap.Email, got.Email)
	assert.Equal(t, []string{"D1"}, got.Selection.IDs())
	assert.True(t, snap.CreatedAt.Equal(got.CreatedAt))
}

func TestRedisStoreCreateRejectsDuplicate(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	snap := sampleSnapshot()

	require.NoError(t, store.Create(ctx, snap))
	assert.Error(t, store.Create(ctx, snap))
}

func TestRedisStoreGetMissing(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreExpiresAfterTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()
	snap := sampleSnapshot()
	require.NoError(t, store.Create(ctx, snap))

	mr.FastForward(45 * time.Second)
	_, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("card:"+snap.ID))

	mr.FastForward(61 * time.Second)
	_, err = store.Get(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreUpdate(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()
	snap := sampleSnapshot()
	require.NoError(t, store.Create(ctx, snap))

	updated, err := store.Update(ctx, snap.ID, func(s *Snapshot) error {
		s.AccountStatus = Succeeded(MsgAccountUpdated)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Succeeded(MsgAccountUpdated), updated.AccountStatus)

	got, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, Succeeded(MsgAccountUpdated), got.AccountStatus)
}

func TestRedisStoreUpdateErrors(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.Update(ctx, "missing", func(*Snapshot) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	snap := sampleSnapshot()
	require.NoError(t, store.Create(ctx, snap))
	boom := errors.New("boom")
	_, err = store.Update(ctx, snap.ID, func(s *Snapshot) error {
		s.Email.Subject = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "Contracts", got.Email.Subject)
}
