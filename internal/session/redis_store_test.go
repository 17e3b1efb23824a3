package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Hour)

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got, "missing session reads as nil")

	sess := &Session{
		ChatID:   42,
		Flow:     FlowRegister,
		Step:     StepPassword,
		Nickname: "Hero",
	}
	require.NoError(t, store.Put(ctx, sess))

	got, err = store.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess, got)

	require.NoError(t, store.Delete(ctx, 42))
	got, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	require.NoError(t, store.Put(ctx, &Session{ChatID: 7, Flow: FlowReset}))

	mr.FastForward(30 * time.Minute)
	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, got, "alive inside the TTL window")

	// Put refreshes the TTL.
	require.NoError(t, store.Put(ctx, got))
	mr.FastForward(45 * time.Minute)
	got, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(t, got, "refreshed by the second Put")

	mr.FastForward(2 * time.Hour)
	got, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got, "expired after the TTL")
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	require.NoError(t, mr.Set(sessionKey(9), "{not json"))

	got, err := store.Get(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, got, "corrupt entries read as expired")
	assert.False(t, mr.Exists(sessionKey(9)), "and are removed")
}
