package syncclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inbox struct {
	Unread int
}

func TestPollerRefreshReplacesSnapshot(t *testing.T) {
	var serverUnread atomic.Int64
	serverUnread.Store(3)

	p := NewPoller(func(context.Context) (inbox, error) {
		return inbox{Unread: int(serverUnread.Load())}, nil
	}, time.Minute, zap.NewNop())

	_, ok := p.Snapshot()
	assert.False(t, ok)

	require.NoError(t, p.Refresh(context.Background()))
	snap, ok := p.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 3, snap.Unread)

	serverUnread.Store(7)
	require.NoError(t, p.Refresh(context.Background()))
	snap, _ = p.Snapshot()
	assert.Equal(t, 7, snap.Unread)
}

func TestPollerKeepsSnapshotOnFetchError(t *testing.T) {
	healthy := true
	p := NewPoller(func(context.Context) (inbox, error) {
		if !healthy {
			return inbox{}, errors.New("server unavailable")
		}
		return inbox{Unread: 5}, nil
	}, time.Minute, zap.NewNop())

	require.NoError(t, p.Refresh(context.Background()))

	healthy = false
	assert.Error(t, p.Refresh(context.Background()))

	snap, ok := p.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 5, snap.Unread)
}

func TestPollerMutateIsOverwrittenByNextFetch(t *testing.T) {
	p := NewPoller(func(context.Context) (inbox, error) {
		return inbox{Unread: 4}, nil
	}, time.Minute, zap.NewNop())

	require.NoError(t, p.Refresh(context.Background()))

	// Optimistic local decrement, e.g. after marking a ticket read.
	p.Mutate(func(s inbox) inbox {
		s.Unread--
		return s
	})
	snap, _ := p.Snapshot()
	assert.Equal(t, 3, snap.Unread)

	// The server still reports 4; its snapshot wins wholesale.
	require.NoError(t, p.Refresh(context.Background()))
	snap, _ = p.Snapshot()
	assert.Equal(t, 4, snap.Unread)
}

func TestPollerRunFetchesUntilCancelled(t *testing.T) {
	var fetches atomic.Int64
	p := NewPoller(func(context.Context) (inbox, error) {
		fetches.Add(1)
		return inbox{Unread: 1}, nil
	}, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return fetches.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}

	snap, ok := p.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 1, snap.Unread)
}
