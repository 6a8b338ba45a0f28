package tokenz

import (
	"sync"
	"sync/atomic"
)

// Disposable releases whatever it holds. Dispose must be safe to call more
// than once; calls after the first are no-ops.
type Disposable interface {
	Dispose()
}

// Token is a one-shot change notification. It starts unsignaled and
// transitions to signaled at most once; callbacks registered on it fire
// exactly once when that happens.
type Token interface {
	// HasChanged reports whether the token has been signaled. Once true it
	// stays true.
	HasChanged() bool

	// ActiveCallbacks reports whether the token invokes callbacks on its own.
	// All tokens in this package return true, so consumers never need to poll.
	ActiveCallbacks() bool

	// RegisterCallback arranges for fn(state) to be called when the token is
	// signaled. If the token is already signaled fn is invoked before
	// RegisterCallback returns. Disposing the returned handle unregisters fn
	// if it has not fired yet.
	RegisterCallback(fn func(state any), state any) Disposable
}

// NewDisposable returns a Disposable that runs fn on the first call to
// Dispose.
func NewDisposable(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	once sync.Once
	fn   func()
}

func (d *funcDisposable) Dispose() {
	d.once.Do(func() {
		if d.fn != nil {
			d.fn()
		}
	})
}

type nopDisposable struct{}

func (nopDisposable) Dispose() {}

// Nop is a Disposable that does nothing.
var Nop Disposable = nopDisposable{}

// disposeAll disposes each non-nil item in order.
func disposeAll(items []Disposable) {
	for _, d := range items {
		if d != nil {
			d.Dispose()
		}
	}
}

type registration struct {
	fn    func(any)
	state any
}

// latch is the shared one-shot state machine behind the mutable tokens.
// Transitions happen under mu; state is also readable without the lock.
type latch struct {
	mu        sync.Mutex
	state     atomic.Int32
	callbacks []*registration
	done      chan struct{}
}

func newLatch() *latch {
	return &latch{done: make(chan struct{})}
}

func (l *latch) current() State {
	return State(l.state.Load())
}

func (l *latch) register(fn func(any), state any) Disposable {
	if fn == nil {
		panic("tokenz: nil callback")
	}

	l.mu.Lock()
	switch l.current() {
	case StateSignaled, StateSignaledReleased:
		l.mu.Unlock()
		fn(state)
		return Nop
	case StateReleased:
		l.mu.Unlock()
		return Nop
	}
	r := &registration{fn: fn, state: state}
	l.callbacks = append(l.callbacks, r)
	l.mu.Unlock()

	return NewDisposable(func() { l.unregister(r) })
}

func (l *latch) unregister(r *registration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.callbacks {
		if c == r {
			l.callbacks = append(l.callbacks[:i], l.callbacks[i+1:]...)
			return
		}
	}
}

// fire moves the latch from pending to signaled and runs the registered
// callbacks in registration order. It reports whether this call performed
// the transition.
func (l *latch) fire() bool {
	l.mu.Lock()
	if l.current() != StatePending {
		l.mu.Unlock()
		return false
	}
	l.state.Store(int32(StateSignaled))
	close(l.done)
	callbacks := l.callbacks
	l.callbacks = nil
	l.mu.Unlock()

	invokeAll(callbacks)
	return true
}

// release drops pending callbacks. It reports whether this call performed
// the release.
func (l *latch) release() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.current() {
	case StatePending:
		l.state.Store(int32(StateReleased))
	case StateSignaled:
		l.state.Store(int32(StateSignaledReleased))
	default:
		return false
	}
	l.callbacks = nil
	return true
}

// invokeAll runs every callback even if some panic. The first panic is
// re-raised once all callbacks have run.
func invokeAll(callbacks []*registration) {
	var first any
	for _, r := range callbacks {
		func() {
			defer func() {
				if p := recover(); p != nil && first == nil {
					first = p
				}
			}()
			r.fn(r.state)
		}()
	}
	if first != nil {
		panic(first)
	}
}

// TriggerToken is a Token signaled by calling Trigger.
type TriggerToken struct {
	l *latch
}

// NewTriggerToken creates an unsignaled TriggerToken.
func NewTriggerToken() *TriggerToken {
	return &TriggerToken{l: newLatch()}
}

// HasChanged reports whether Trigger has been called.
func (t *TriggerToken) HasChanged() bool {
	return t.l.current().Signaled()
}

// ActiveCallbacks always returns true.
func (*TriggerToken) ActiveCallbacks() bool {
	return true
}

// RegisterCallback registers fn to run when the token is triggered.
func (t *TriggerToken) RegisterCallback(fn func(any), state any) Disposable {
	return t.l.register(fn, state)
}

// Trigger signals the token. Calls after the first, and calls after
// Dispose, are no-ops.
func (t *TriggerToken) Trigger() {
	t.l.fire()
}

// Dispose releases pending callbacks. A signaled token stays signaled; a
// pending token can no longer be signaled.
func (t *TriggerToken) Dispose() {
	t.l.release()
}

// Done returns a channel that is closed when the token is signaled.
func (t *TriggerToken) Done() <-chan struct{} {
	return t.l.done
}

// State returns the current lifecycle state of the token.
func (t *TriggerToken) State() State {
	return t.l.current()
}

var (
	_ Token      = (*TriggerToken)(nil)
	_ Disposable = (*TriggerToken)(nil)
)
