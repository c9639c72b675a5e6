package ports

import (
	"context"
	"time"
)

type LiveStore interface {
	RateWindow() RateWindowStore
	Locks() LockStore
}

// RateWindowStore is a sliding log of admission timestamps.
type RateWindowStore interface {
	// Admit drops the entries older than now-window, then records now only if
	// fewer than limit entries are left. The whole operation is atomic.
	Admit(ctx context.Context, now time.Time, window time.Duration, limit uint64) (bool, error)
	Count(ctx context.Context, now time.Time, window time.Duration) (uint64, error)
	// Release drops one entry recorded at the given time, if any.
	Release(ctx context.Context, at time.Time) error
	Reset(ctx context.Context) error
}

// LockStore provides mutual exclusion over arbitrary keys.
type LockStore interface {
	// Lock blocks until the key is acquired or the context is done.
	// The key stays held until the returned func is called.
	Lock(ctx context.Context, key string) (func(), error)
}
