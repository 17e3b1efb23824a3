package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	sess := &Session{ChatID: 1, Flow: FlowBuyCoins, Email: "HERO@GMAIL.COM"}
	require.NoError(t, store.Put(ctx, sess))

	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess, got)

	// The store hands back copies; mutating one must not leak.
	got.Nickname = "changed"
	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again.Nickname)

	require.NoError(t, store.Delete(ctx, 1))
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, &Session{ChatID: 5, Flow: FlowRegister}))

	current = current.Add(30 * time.Minute)
	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)

	current = current.Add(31 * time.Minute)
	got, err = store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got, "expired sessions read as nil")
}
