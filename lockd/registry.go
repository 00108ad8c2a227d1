package lockd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mgdigital/resolvelock/clock"
	"github.com/mgdigital/resolvelock/logger"
	"github.com/mgdigital/resolvelock/metrics"
)

// Registry is the daemon-wide table of live lock contexts and named locks.
// It is safe for concurrent use by many connection-handling goroutines.
type Registry struct {
	clock   clock.Clock
	log     logger.Logger
	metrics metrics.DaemonMetrics

	mu       sync.Mutex
	locks    map[string]*Lock
	contexts map[string]*Context
}

// NewRegistry constructs an empty Registry.
func NewRegistry(c clock.Clock, log logger.Logger) *Registry {
	return NewRegistryWithMetrics(c, log, nil)
}

// NewRegistryWithMetrics constructs an empty Registry reporting to m.
func NewRegistryWithMetrics(c clock.Clock, log logger.Logger, m metrics.DaemonMetrics) *Registry {
	if c == nil {
		c = clock.New()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if m == nil {
		m = metrics.NewNoOpDaemonMetrics()
	}
	return &Registry{
		clock:    c,
		log:      log.WithComponent("lockd"),
		metrics:  m,
		locks:    make(map[string]*Lock),
		contexts: make(map[string]*Context),
	}
}

// OpenContext creates a new Context fixed to the given shared/exclusive
// mode and registers it.
func (r *Registry) OpenContext(shared bool) *Context {
	c := newContext(r.clock.Now(), shared)
	r.mu.Lock()
	r.contexts[c.ID] = c
	count := len(r.contexts)
	r.mu.Unlock()
	r.metrics.IncrContextOpened()
	r.metrics.SetOpenContexts(count)
	return c
}

// LookupContext returns the Context for id, or nil if it is unknown (e.g.
// already closed or never opened).
func (r *Registry) LookupContext(id string) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contexts[id]
}

// Acquire resolves key to its Lock (creating it if necessary) and blocks
// owner on it, in owner's fixed shared/exclusive mode, per Lock.Acquire,
// touching owner's idle timer on success.
func (r *Registry) Acquire(ctx context.Context, owner *Context, key string) error {
	start := r.clock.Now()
	l := r.lockFor(key)
	err := l.Acquire(ctx, owner, owner.shared)
	r.metrics.ObserveAcquireWait(r.clock.Now().Sub(start))
	if err != nil {
		if errors.Is(err, ErrContextClosed) {
			return err
		}
		r.metrics.IncrLockTimedOut()
		return fmt.Errorf("lockd: acquire %q: %w", key, err)
	}
	if !owner.track(l) {
		// owner was closed between being granted the lock and recording it;
		// the grant never becomes visible to CLOSE's release, so undo it
		// here instead.
		l.Release(owner)
		return ErrContextClosed
	}
	r.metrics.IncrLockAcquired(owner.shared)
	owner.touch(r.clock.Now())
	return nil
}

func (r *Registry) lockFor(key string) *Lock {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = newLock(key)
		r.locks[key] = l
		r.metrics.SetHeldLocks(len(r.locks))
	}
	return l
}

// CloseContext releases every key held by id and removes it from the
// registry. It is idempotent: closing an unknown or already-closed
// context is a no-op.
func (r *Registry) CloseContext(id string) {
	r.closeContext(id, "client")
}

// CloseContextOnDisconnect closes id as an implicit CLOSE triggered by its
// owning connection dropping, per §4.C.4, rather than an explicit CLOSE
// request. Functionally identical to CloseContext; tagged separately only
// for the reason metrics report.
func (r *Registry) CloseContextOnDisconnect(id string) {
	r.closeContext(id, "disconnect")
}

func (r *Registry) closeContext(id, reason string) {
	r.mu.Lock()
	c, ok := r.contexts[id]
	if ok {
		delete(r.contexts, id)
	}
	count := len(r.contexts)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.metrics.IncrContextClosed(reason)
	r.metrics.SetOpenContexts(count)

	emptied := c.releaseAll()
	if len(emptied) == 0 {
		return
	}

	r.mu.Lock()
	for _, l := range emptied {
		if existing, ok := r.locks[l.key]; ok && existing == l && l.empty() {
			delete(r.locks, l.key)
		}
	}
	r.metrics.SetHeldLocks(len(r.locks))
	r.mu.Unlock()
}

// ExpireIdle closes every context that has been idle for at least
// idleTimeout, returning the number closed. It is intended to be called
// periodically by the daemon's idle-expiry ticker.
func (r *Registry) ExpireIdle(idleTimeout time.Duration) int {
	now := r.clock.Now()

	r.mu.Lock()
	var stale []string
	for id, c := range r.contexts {
		if c.idleSince(now) >= idleTimeout {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.log.Infow("closing idle lock context", "contextId", id)
		r.closeContext(id, "idle")
	}
	return len(stale)
}

// ContextCount reports the number of currently open contexts, for metrics
// and tests.
func (r *Registry) ContextCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}
