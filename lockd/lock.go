// Package lockd implements the cross-process lock daemon: per-key shared
// or exclusive locks, contexts that group the keys one client holds, and a
// registry that ties both to connection lifetime and idle expiry.
package lockd

import (
	"context"
	"errors"
	"sync"
)

// ErrContextClosed is returned by Registry.Acquire when the owning Context
// was closed (explicit CLOSE or implicit disconnect) while an ACQUIRE was
// still pending on it. Per the wire protocol, a response built on this
// error is never sent back to the client; the ACQUIRE is dropped silently.
var ErrContextClosed = errors.New("lockd: context closed")

// Lock is a single named resource that may be held by any number of
// shared holders, or by exactly one exclusive holder, never both at once.
// Waiters queue in FIFO order, with a batch-promotion rule: once the head
// of the queue is granted, any immediately following waiters that are
// also shared are granted in the same pass, since they are compatible
// with each other and with the newly-shared holder set.
type Lock struct {
	key     string
	holders map[*Context]struct{}
	shared  bool
	waiters []*waiter

	mu sync.Mutex
}

type waiter struct {
	owner   *Context
	shared  bool
	done    chan struct{}
	granted bool
}

func newLock(key string) *Lock {
	return &Lock{key: key, holders: make(map[*Context]struct{})}
}

// Acquire blocks the calling goroutine until owner is granted the lock in
// the requested mode, ctx is canceled, or ctx's deadline elapses.
func (l *Lock) Acquire(ctx context.Context, owner *Context, shared bool) error {
	l.mu.Lock()

	// A new arrival may only take the fast path when no one is already
	// queued: otherwise a stream of shared requests could starve a
	// waiting exclusive one indefinitely.
	if len(l.waiters) == 0 && l.compatibleWithHoldersLocked(shared) {
		l.grantLocked(owner, shared)
		l.mu.Unlock()
		return nil
	}

	w := &waiter{owner: owner, shared: shared, done: make(chan struct{})}
	l.waiters = append(l.waiters, w)
	l.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		l.cancelWaiter(w)
		return ctx.Err()
	case <-owner.Done():
		l.cancelWaiter(w)
		return ErrContextClosed
	}
}

// Release removes owner from the holder set and promotes as many queued
// waiters as are now compatible.
func (l *Lock) Release(owner *Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.holders, owner)
	if len(l.holders) == 0 {
		l.shared = false
	}
	l.promoteLocked()
}

// empty reports whether the lock has no holders and no waiters, meaning
// the registry may drop it from its key-to-lock map.
func (l *Lock) empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holders) == 0 && len(l.waiters) == 0
}

// compatibleWithHoldersLocked reports whether a request in the given mode
// can be granted against the current holder set alone, ignoring any
// queued waiters.
func (l *Lock) compatibleWithHoldersLocked(shared bool) bool {
	if len(l.holders) == 0 {
		return true
	}
	return l.shared && shared
}

func (l *Lock) grantLocked(owner *Context, shared bool) {
	l.holders[owner] = struct{}{}
	l.shared = shared
}

// promoteLocked grants the lock to as many queued waiters as are
// compatible with the current (now-empty-or-shared) holder set, in FIFO
// order, stopping at the first incompatible waiter.
func (l *Lock) promoteLocked() {
	for len(l.waiters) > 0 {
		w := l.waiters[0]
		if !l.compatibleWithHoldersLocked(w.shared) {
			break
		}
		l.grantLocked(w.owner, w.shared)
		w.granted = true
		close(w.done)
		l.waiters = l.waiters[1:]
	}
}

func (l *Lock) cancelWaiter(w *waiter) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w.granted {
		// Granted concurrently with the caller giving up; release it
		// immediately rather than leaking a phantom holder.
		delete(l.holders, w.owner)
		if len(l.holders) == 0 {
			l.shared = false
		}
		l.promoteLocked()
		return
	}

	for i, ww := range l.waiters {
		if ww == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			break
		}
	}
}
