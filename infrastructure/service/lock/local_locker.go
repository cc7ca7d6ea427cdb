package lock

import (
	"context"
	"sync"
	"time"

	"github.com/tripdesk/tripdesk/application/port/outbound"
)

// LocalLocker serializes work per key inside one process. The ttl is ignored;
// holders always release.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	wait  time.Duration
}

var _ outbound.RequestLocker = (*LocalLocker)(nil)

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]chan struct{}),
		wait:  wait,
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	sem, ok := l.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[key] = sem
	}
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, outbound.ErrLockNotAcquired
	}
}
