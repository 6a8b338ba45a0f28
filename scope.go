package tokenz

import (
	"context"
	"sync"
)

// scope owns the external subscriptions and background goroutines of one
// composition. Build hands it to the caller as the teardown handle.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	idle   *sync.Cond
	live   int // tracked goroutines still running
	firing int // tracked goroutines inside a signal
	items  []Disposable
	closed bool
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scope{ctx: ctx, cancel: cancel}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// add hands d to the scope. Once the scope is disposed, d is disposed
// immediately instead.
func (s *scope) add(d Disposable) {
	if d == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		d.Dispose()
		return
	}
	s.items = append(s.items, d)
	s.mu.Unlock()
}

// done reports whether the scope has been disposed.
func (s *scope) done() bool {
	return s.ctx.Err() != nil
}

// spawn runs fn on a goroutine tracked by the scope. fn must return once
// ctx is canceled.
func (s *scope) spawn(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.live++
	s.mu.Unlock()

	go func() {
		defer s.track(&s.live)
		fn(s.ctx)
	}()
}

// signal wraps a trigger handed to a tracked goroutine. While it runs, the
// goroutine is not waited for by Dispose, so a callback may tear down the
// scope that delivers it.
func (s *scope) signal(trigger func()) func() {
	return func() {
		s.mu.Lock()
		s.firing++
		s.mu.Unlock()
		defer s.track(&s.firing)
		trigger()
	}
}

// track decrements a counter and wakes Dispose.
func (s *scope) track(n *int) {
	s.mu.Lock()
	*n--
	s.idle.Broadcast()
	s.mu.Unlock()
}

// Dispose cancels tracked goroutines, disposes every subscription in the
// order it was added and waits for the goroutines to return. Goroutines
// delivering a signal are not waited for.
func (s *scope) Dispose() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	s.cancel()
	disposeAll(items)

	s.mu.Lock()
	for s.live > s.firing {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// disposableBox lets an arbitrary Disposable live in an atomic.Pointer.
type disposableBox struct {
	Disposable
}

func boxed(d Disposable) *disposableBox {
	if d == nil {
		d = Nop
	}
	return &disposableBox{d}
}
