package app

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-reader/internal/config"
	"paper-reader/internal/events"
	"paper-reader/internal/session"
	"paper-reader/internal/store"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBuildSessions(t *testing.T) {
	st, err := buildSessions(config.Config{SessionStore: "memory"}, discard())
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, st)

	_, err = buildSessions(config.Config{SessionStore: "redis"}, discard())
	assert.ErrorContains(t, err, "REDIS_ADDR")

	_, err = buildSessions(config.Config{SessionStore: "etcd"}, discard())
	assert.ErrorContains(t, err, "invalid SESSION_STORE")
}

func TestOptionalBackendsDefaultToNoop(t *testing.T) {
	archive, err := buildArchive(config.Config{}, discard())
	require.NoError(t, err)
	assert.IsType(t, store.NoopArchive{}, archive)

	pub, nc, err := buildEvents(config.Config{}, discard())
	require.NoError(t, err)
	assert.Nil(t, nc)
	assert.IsType(t, events.Noop{}, pub)
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	d := Deps{Log: discard(), closers: []io.Closer{
		closerFunc(func() error { order = append(order, 1); return nil }),
		closerFunc(func() error { order = append(order, 2); return nil }),
	}}
	d.Close()
	assert.Equal(t, []int{2, 1}, order)
}
