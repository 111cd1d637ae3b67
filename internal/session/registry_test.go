package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/internal/model"
)

func TestRegistry_AcquireAndRelease(t *testing.T) {
	r := NewRegistry()

	h, err := r.Acquire("session-1", func() {})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "session-1", h.SessionID())
	assert.Equal(t, model.SessionStatusConnecting, h.Status())
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("session-1")
	require.True(t, ok)
	assert.Same(t, h, got)

	r.Release(h)
	assert.Equal(t, 0, r.Len())
	_, ok = r.Get("session-1")
	assert.False(t, ok)

	select {
	case <-h.Done():
	default:
		t.Fatal("done channel not closed on release")
	}
}

func TestRegistry_SecondAcquireRejected(t *testing.T) {
	r := NewRegistry()

	first, err := r.Acquire("session-1", func() {})
	require.NoError(t, err)

	second, err := r.Acquire("session-1", func() {})
	require.Error(t, err)
	assert.True(t, apperrors.IsAlreadyActiveError(err))
	assert.Nil(t, second)

	// The loser must not have disturbed the winner.
	got, ok := r.Get("session-1")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegistry_ConcurrentAcquireSingleWinner(t *testing.T) {
	r := NewRegistry()

	const racers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Acquire("session-1", func() {}); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ReleaseOfSupersededHandleIsNoop(t *testing.T) {
	r := NewRegistry()

	first, err := r.Acquire("session-1", func() {})
	require.NoError(t, err)
	r.Release(first)

	second, err := r.Acquire("session-1", func() {})
	require.NoError(t, err)

	// Releasing the stale handle again must not evict the new one.
	r.Release(&Handle{sessionID: "session-1", cancel: func() {}, done: make(chan struct{})})
	got, ok := r.Get("session-1")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_ActiveSessionIDs(t *testing.T) {
	r := NewRegistry()

	_, err := r.Acquire("session-a", func() {})
	require.NoError(t, err)
	_, err = r.Acquire("session-b", func() {})
	require.NoError(t, err)

	ids := r.ActiveSessionIDs()
	assert.ElementsMatch(t, []string{"session-a", "session-b"}, ids)
}

func TestHandle_StopCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRegistry()
	h, err := r.Acquire("session-1", cancel)
	require.NoError(t, err)

	h.Stop()
	select {
	case <-ctx.Done():
	default:
		t.Fatal("stop did not cancel the runner context")
	}
}
