package hotelRepository

import (
	"HotelClaimBot/internal/api/hotel"
	"HotelClaimBot/internal/entity"
	redisPkg "HotelClaimBot/pkg/redis"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionStores(t *testing.T, clock *fakeClock, window time.Duration) map[string]SessionStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]SessionStore{
		"memory": NewMemorySessionStore(window, clock.Now),
		"redis":  NewRedisSessionStore(redisPkg.NewFromClient(client), window, clock.Now, quietLogger()),
	}
}

func TestSessionStorePutGetClear(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	for name, store := range sessionStores(t, clock, time.Hour) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Get(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok)

			s := entity.NewDialogueSession("u1")
			s.State = entity.StateAwaitingSearchAddress
			s.PendingFields[entity.FieldName] = "Seaside Inn"
			s.LastActivity = clock.Now()
			require.NoError(t, store.Put(ctx, s))

			got, ok, err := store.Get(ctx, "u1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, entity.StateAwaitingSearchAddress, got.State)
			assert.Equal(t, "Seaside Inn", got.PendingFields[entity.FieldName])

			got.PendingFields[entity.FieldName] = "mutated"
			again, _, _ := store.Get(ctx, "u1")
			assert.Equal(t, "Seaside Inn", again.PendingFields[entity.FieldName])

			_, ok, _ = store.Get(ctx, "u2")
			assert.False(t, ok)

			require.NoError(t, store.Clear(ctx, "u1"))
			_, ok, err = store.Get(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSessionStoreExpiresAfterWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	for name, store := range sessionStores(t, clock, 30*time.Minute) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := entity.NewDialogueSession("u1")
			s.State = entity.StateAwaitingSearchName
			s.LastActivity = clock.Now()
			require.NoError(t, store.Put(ctx, s))

			clock.Advance(10 * time.Minute)
			_, ok, _ := store.Get(ctx, "u1")
			assert.True(t, ok)

			clock.Advance(30 * time.Minute)
			_, ok, err := store.Get(ctx, "u1")
			require.NoError(t, err)
			assert.False(t, ok)

			clock.t = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		})
	}
}

func TestRedisSessionStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(redisPkg.NewFromClient(client), time.Hour, nil, quietLogger())
	mr.Close()

	_, _, err := store.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, hotel.ErrSessionUnavailable)

	err = store.Put(context.Background(), entity.NewDialogueSession("u1"))
	assert.ErrorIs(t, err, hotel.ErrSessionUnavailable)
}

func TestRedisSessionStoreDropsCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(redisPkg.NewFromClient(client), time.Hour, nil, quietLogger())

	require.NoError(t, mr.Set(sessionKeyPrefix+"u1", "{not json"))

	_, ok, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(sessionKeyPrefix+"u1"))
}
