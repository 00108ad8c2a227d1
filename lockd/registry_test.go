package lockd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mgdigital/resolvelock/clock"
)

func TestRegistry_AcquireAndCloseReleasesLock(t *testing.T) {
	r := NewRegistry(clock.New(), nil)

	a := r.OpenContext(false)
	if err := r.Acquire(context.Background(), a, "repo:artifact:1.0"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	b := r.OpenContext(false)
	acquireDone := make(chan error, 1)
	go func() { acquireDone <- r.Acquire(context.Background(), b, "repo:artifact:1.0") }()

	time.Sleep(10 * time.Millisecond)
	r.CloseContext(a.ID)

	select {
	case err := <-acquireDone:
		if err != nil {
			t.Fatalf("b's Acquire failed after a closed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("closing a's context never released the lock to b")
	}
}

func TestRegistry_CloseCancelsPendingWaiter(t *testing.T) {
	r := NewRegistry(clock.New(), nil)

	a := r.OpenContext(false)
	if err := r.Acquire(context.Background(), a, "repo:artifact:1.0"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// b queues behind a, never granted while a holds the lock.
	b := r.OpenContext(false)
	bDone := make(chan error, 1)
	go func() { bDone <- r.Acquire(context.Background(), b, "repo:artifact:1.0") }()

	time.Sleep(10 * time.Millisecond)
	r.CloseContext(b.ID)

	select {
	case err := <-bDone:
		if !errors.Is(err, ErrContextClosed) {
			t.Fatalf("expected ErrContextClosed for a waiter cancelled by CLOSE, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("closing b's own context never woke its blocked Acquire")
	}

	// The lock is still held by a, untouched by b's cancellation.
	c := r.OpenContext(false)
	cDone := make(chan error, 1)
	go func() { cDone <- r.Acquire(context.Background(), c, "repo:artifact:1.0") }()

	select {
	case <-cDone:
		t.Fatalf("expected c to remain queued behind a")
	case <-time.After(20 * time.Millisecond):
	}

	r.CloseContext(a.ID)
	select {
	case err := <-cDone:
		if err != nil {
			t.Fatalf("c's Acquire failed after a closed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("closing a's context never released the lock to c")
	}
}

func TestRegistry_CloseUnknownContextIsNoop(t *testing.T) {
	r := NewRegistry(clock.New(), nil)
	r.CloseContext("does-not-exist")
}

func TestRegistry_ExpireIdle(t *testing.T) {
	fc := clock.NewFake(time.Now())
	r := NewRegistry(fc, nil)

	a := r.OpenContext(true)
	if err := r.Acquire(context.Background(), a, "k"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	fc.Advance(time.Minute)
	if n := r.ExpireIdle(time.Hour); n != 0 {
		t.Fatalf("expected no contexts expired yet, got %d", n)
	}

	fc.Advance(time.Hour)
	if n := r.ExpireIdle(time.Hour); n != 1 {
		t.Fatalf("expected 1 context expired, got %d", n)
	}
	if r.ContextCount() != 0 {
		t.Fatalf("expected registry to have no open contexts after expiry")
	}
}

func TestRegistry_LookupContext(t *testing.T) {
	r := NewRegistry(clock.New(), nil)
	a := r.OpenContext(false)

	if r.LookupContext(a.ID) != a {
		t.Fatalf("expected LookupContext to return the same *Context")
	}
	if r.LookupContext("missing") != nil {
		t.Fatalf("expected LookupContext of an unknown id to return nil")
	}
}

func TestNextContextID_IsZeroPaddedHex(t *testing.T) {
	id := nextContextID()
	if len(id) != 8 {
		t.Fatalf("expected an 8-character context id, got %q", id)
	}
}
