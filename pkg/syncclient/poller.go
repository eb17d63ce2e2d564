// Package syncclient provides a polling snapshot cache for clients that
// refresh ticket views on a fixed interval instead of holding a live
// connection. Each successful fetch replaces the cached snapshot wholesale,
// so any locally applied change that did not reach the server is discarded
// on the next poll.
package syncclient

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// jitterFraction spreads poll ticks so many clients started together do not
// hit the server in lockstep.
const jitterFraction = 0.1

// FetchFunc retrieves a fresh snapshot from the server.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller refreshes a snapshot of type T on a fixed interval.
type Poller[T any] struct {
	fetch    FetchFunc[T]
	interval time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	snapshot T
	fetched  bool
}

// NewPoller builds a poller. It does not start fetching until Run is called.
func NewPoller[T any](fetch FetchFunc[T], interval time.Duration, logger *zap.Logger) *Poller[T] {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller[T]{fetch: fetch, interval: interval, logger: logger}
}

// Run fetches immediately, then on a jittered interval until ctx is
// cancelled. A failed fetch keeps the previous snapshot.
func (p *Poller[T]) Run(ctx context.Context) {
	p.refresh(ctx)

	timer := time.NewTimer(p.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			p.refresh(ctx)
			timer.Reset(p.nextWait())
		}
	}
}

func (p *Poller[T]) nextWait() time.Duration {
	spread := float64(p.interval) * jitterFraction
	offset := time.Duration((rand.Float64()*2 - 1) * spread)
	return p.interval + offset
}

// Refresh forces an immediate fetch outside the regular interval, for
// example after the client submits a message.
func (p *Poller[T]) Refresh(ctx context.Context) error {
	return p.refresh(ctx)
}

func (p *Poller[T]) refresh(ctx context.Context) error {
	snap, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("snapshot fetch failed, keeping previous", zap.Error(err))
		return err
	}
	p.mu.Lock()
	p.snapshot = snap
	p.fetched = true
	p.mu.Unlock()
	return nil
}

// Snapshot returns the current snapshot and whether one has been fetched yet.
func (p *Poller[T]) Snapshot() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot, p.fetched
}

// Mutate applies an optimistic local change to the cached snapshot. The
// change is visible to Snapshot callers immediately but survives only until
// the next successful fetch replaces it with the server's state.
func (p *Poller[T]) Mutate(fn func(T) T) {
	p.mu.Lock()
	p.snapshot = fn(p.snapshot)
	p.mu.Unlock()
}
