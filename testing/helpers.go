// Package testing provides test utilities for code built on tokenz.
package testing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/tokenz"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// RequireSignaled fails the test unless tok signals within timeout.
func RequireSignaled(t *testing.T, tok tokenz.Token, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := tokenz.Wait(ctx, tok); err != nil {
		t.Fatalf("expected token to signal within %v: %v", timeout, err)
	}
}

// RequirePending fails the test if tok signals within d.
func RequirePending(t *testing.T, tok tokenz.Token, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := tokenz.Wait(ctx, tok); err == nil {
		t.Fatalf("expected token to stay pending for %v", d)
	}
}

// LockProvider is an in-process exclusive resource for arbitration tests.
// At most one caller holds it at a time; releasing it calls the hook given
// to NewLockProvider.
type LockProvider struct {
	onRelease func()

	mu   sync.Mutex
	held bool

	acquired atomic.Int64
	refused  atomic.Int64
	released atomic.Int64
}

// NewLockProvider creates a free LockProvider. onRelease may be nil.
func NewLockProvider(onRelease func()) *LockProvider {
	return &LockProvider{onRelease: onRelease}
}

// Acquire takes the lock if it is free. It returns nil when another holder
// has it. Acquire has the tokenz.AcquireFunc signature.
func (p *LockProvider) Acquire(context.Context) (tokenz.Disposable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.held {
		p.refused.Add(1)
		return nil, nil
	}
	p.held = true
	p.acquired.Add(1)
	return tokenz.NewDisposable(p.release), nil
}

func (p *LockProvider) release() {
	p.mu.Lock()
	p.held = false
	p.mu.Unlock()
	p.released.Add(1)
	if p.onRelease != nil {
		p.onRelease()
	}
}

// Held reports whether the lock is currently taken.
func (p *LockProvider) Held() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held
}

// Acquired returns how many times the lock was granted.
func (p *LockProvider) Acquired() int64 { return p.acquired.Load() }

// Refused returns how many acquisition attempts found the lock taken.
func (p *LockProvider) Refused() int64 { return p.refused.Load() }

// Released returns how many times the lock was released.
func (p *LockProvider) Released() int64 { return p.released.Load() }
