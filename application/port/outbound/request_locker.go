package outbound

import (
	"context"
	"errors"
	"time"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

// RequestLocker serializes decisions on one travel request across processes.
// The returned release func is safe to call once.
type RequestLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
