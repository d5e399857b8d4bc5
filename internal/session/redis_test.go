package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-reader/internal/chat"
)

func newRedisStore(t *testing.T, mr *miniredis.Miniredis, ttl time.Duration) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreWithClient(client, ttl)
}

func ptr(s string) *string { return &s }

func TestRedisStoreLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr, time.Hour)
	defer store.Close()
	ctx := context.Background()

	s, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, s.ID)

	history := []chat.Turn{
		chat.NewTurn("q", "a"),
		{User: nil, Assistant: ptr("")},
		{User: ptr(""), Assistant: nil},
	}
	s.Document = Document{FileName: "paper.pdf", Markdown: "# Title", Pages: 3}
	s.History = history
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Document, got.Document)
	assert.Equal(t, history, got.History)
	assert.Nil(t, got.History[1].User)
	require.NotNil(t, got.History[1].Assistant)
	assert.Equal(t, "", *got.History[1].Assistant)
	assert.Nil(t, got.History[2].Assistant)
}

func TestRedisStoreNotFound(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr, time.Hour)
	defer store.Close()
	ctx := context.Background()

	_, err := store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Save(ctx, Session{ID: uuid.New()}), ErrNotFound)
	assert.ErrorIs(t, store.SetDocument(ctx, uuid.New(), Document{}), ErrNotFound)
	assert.ErrorIs(t, store.AppendTurns(ctx, uuid.New(), chat.NewTurn("q", "a")), ErrNotFound)
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr, 30*time.Minute)
	defer store.Close()
	ctx := context.Background()

	s, err := store.Create(ctx)
	require.NoError(t, err)
	key := store.key(s.ID)
	assert.Equal(t, 30*time.Minute, mr.TTL(key))

	mr.FastForward(10 * time.Minute)
	require.NoError(t, store.AppendTurns(ctx, s.ID, chat.NewTurn("q", "a")))
	assert.Equal(t, 30*time.Minute, mr.TTL(key))

	mr.FastForward(31 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreFieldUpdates(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr, time.Hour)
	defer store.Close()
	ctx := context.Background()

	s, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.AppendTurns(ctx, s.ID, chat.NewTurn("q", "a")))
	require.NoError(t, store.SetDocument(ctx, s.ID, Document{FileName: "paper.pdf", Markdown: "# T"}))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Document{FileName: "paper.pdf", Markdown: "# T"}, got.Document)
	assert.Equal(t, []chat.Turn{chat.NewTurn("q", "a")}, got.History)
}

func TestRedisStoreConcurrentAppends(t *testing.T) {
	mr := miniredis.RunT(t)
	store := newRedisStore(t, mr, time.Hour)
	defer store.Close()
	ctx := context.Background()

	s, err := store.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AppendTurns(ctx, s.ID, chat.NewTurn("q", "a")))
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 8)
}

func TestRedisStoreInstancesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newRedisStore(t, mr, time.Hour)
	b := newRedisStore(t, mr, time.Hour)
	defer b.Close()
	ctx := context.Background()

	sa, err := a.Create(ctx)
	require.NoError(t, err)
	sb, err := b.Create(ctx)
	require.NoError(t, err)

	_, err = b.Get(ctx, sa.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.Get(ctx, sb.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, a.Close())

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, b.key(sb.ID), keys[0])
	assert.True(t, strings.HasPrefix(keys[0], keyPrefix+b.instance+":session:"))

	_, err = b.Get(ctx, sb.ID)
	assert.NoError(t, err)
}
