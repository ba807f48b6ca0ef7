package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/acca-builder/internal/ticket"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session := &Session{
		ID:     "s1",
		Seed:   42,
		Ticket: ticket.Ticket{Product: 1, Requested: 0},
		Pool:   []ticket.Leg{{ID: "a", Odds: 1.5}},
	}
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), loaded.Seed)

	leg, ok := loaded.FindLeg("a")
	assert.True(t, ok)
	assert.Equal(t, 1.5, leg.Odds)
	_, ok = loaded.FindLeg("b")
	assert.False(t, ok)

	// Loaded sessions are copies
	loaded.Seed = 7
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), again.Seed)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Minute)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Save(ctx, &Session{ID: "s1"}))

	clock = clock.Add(30 * time.Second)
	_, err := store.Load(ctx, "s1")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStoreTripsBreaker(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisSessionStore(client, time.Minute, 2, quietLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := store.Load(ctx, "s1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSessionNotFound)
		assert.NotErrorIs(t, err, ErrCacheUnavailable)
	}

	assert.Equal(t, gobreaker.StateOpen, store.State())

	err := store.Save(ctx, &Session{ID: "s1"})
	assert.ErrorIs(t, err, ErrCacheUnavailable)
}

func TestSessionCacheKey(t *testing.T) {
	assert.Equal(t, "acca:session:abc", SessionCacheKey("abc"))
}
