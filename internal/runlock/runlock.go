// Package runlock serializes reconciliation cycles across processes.
package runlock

import (
	"context"
	"errors"
)

var (
	ErrNotAcquired = errors.New("run lock not acquired")
	// ErrLockLost is the cancel cause of a held context whose lock could not be kept.
	ErrLockLost = errors.New("run lock lost")
)

// Locker blocks until the lock is held or ctx is done. The returned context is
// derived from ctx and is cancelled with ErrLockLost if the lock stops being held
// before unlock is called. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context) (held context.Context, unlock func(), err error)
}

// Nop is used when only in-process serialization is needed.
type Nop struct{}

func (Nop) Lock(ctx context.Context) (context.Context, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return ctx, func() {}, nil
}
