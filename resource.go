package tokenz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// AcquireFunc tries to take an exclusive resource, such as a distributed
// lock. A nil Disposable means the resource was not acquired. Errors are
// treated the same way.
type AcquireFunc func(ctx context.Context) (Disposable, error)

// ResourceToken is the token vended by a ResourceProducer. It is signaled
// once its producer has won the resource, and holds that resource until it
// is disposed.
//
// The first callback registered on a ResourceToken disposes the token
// vended before it, releasing the resource the predecessor held.
type ResourceToken struct {
	l      *latch
	cancel context.CancelFunc

	registered atomic.Bool

	mu       sync.Mutex
	prev     *ResourceToken
	resource Disposable
	released bool
}

func newResourceToken(prev *ResourceToken, cancel context.CancelFunc) *ResourceToken {
	return &ResourceToken{
		l:      newLatch(),
		cancel: cancel,
		prev:   prev,
	}
}

// HasChanged reports whether the resource has been acquired for this token.
func (t *ResourceToken) HasChanged() bool {
	return t.l.current().Signaled()
}

// ActiveCallbacks always returns true.
func (*ResourceToken) ActiveCallbacks() bool {
	return true
}

// RegisterCallback registers fn to run once the resource is acquired. The
// first registration disposes the predecessor token.
func (t *ResourceToken) RegisterCallback(fn func(any), state any) Disposable {
	if t.registered.CompareAndSwap(false, true) {
		t.mu.Lock()
		prev := t.prev
		t.prev = nil
		t.mu.Unlock()
		if prev != nil {
			prev.Dispose()
		}
	}
	return t.l.register(fn, state)
}

// Resource returns the resource held by the token, or nil.
func (t *ResourceToken) Resource() Disposable {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resource
}

// Done returns a channel that is closed when the token is signaled.
func (t *ResourceToken) Done() <-chan struct{} {
	return t.l.done
}

// State returns the current lifecycle state of the token.
func (t *ResourceToken) State() State {
	return t.l.current()
}

// attach hands r to the token. It reports false, leaving r to the caller,
// if the token was already disposed.
func (t *ResourceToken) attach(r Disposable) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return false
	}
	t.resource = r
	return true
}

// Dispose stops the token's acquisition loop, releases any held resource
// and disposes a predecessor that was never released.
func (t *ResourceToken) Dispose() {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	resource, prev := t.resource, t.prev
	t.resource, t.prev = nil, nil
	t.mu.Unlock()

	t.cancel()
	t.l.release()
	if resource != nil {
		resource.Dispose()
		capitan.Emit(context.Background(), ResourceReleased)
	}
	if prev != nil {
		prev.Dispose()
	}
}

// ResourceProducer gates an inner producer behind acquisition of an
// exclusive resource. When the inner token signals, the producer tries to
// acquire; on success its own token signals with the resource attached, on
// failure onAcquireFailed runs and the producer waits for the inner
// producer's next token.
//
// Several ResourceProducers racing for the same resource on the same
// inner signal yield exactly one signaled token. The winner holds the
// resource until the next token it produces gets its first listener.
type ResourceProducer struct {
	inner    Producer
	acquire  AcquireFunc
	onFailed func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	clock    clockz.Clock
	metrics  MetricsProvider
	current  *ResourceToken
	disposed bool
}

// NewResourceProducer creates a ResourceProducer over inner.
func NewResourceProducer(inner Producer, acquire AcquireFunc, onAcquireFailed func()) *ResourceProducer {
	if inner == nil {
		panic(ErrNilProducer)
	}
	if acquire == nil {
		panic("tokenz: nil acquire func")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ResourceProducer{
		inner:    inner,
		acquire:  acquire,
		onFailed: onAcquireFailed,
		ctx:      ctx,
		cancel:   cancel,
		clock:    clockz.RealClock,
		metrics:  NoOpMetricsProvider{},
	}
}

// Clock sets the clock used to time acquisition attempts.
func (p *ResourceProducer) Clock(clock clockz.Clock) *ResourceProducer {
	p.mu.Lock()
	p.clock = clock
	p.mu.Unlock()
	return p
}

// Metrics sets a metrics provider that observes every acquisition attempt.
func (p *ResourceProducer) Metrics(m MetricsProvider) *ResourceProducer {
	p.mu.Lock()
	p.metrics = m
	p.mu.Unlock()
	return p
}

// Produce vends a fresh ResourceToken and starts its acquisition loop. The
// previous token is left alone until the new one gets its first listener.
// After Dispose it returns Empty.
func (p *ResourceProducer) Produce() Token {
	inner := p.inner.Produce()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return Empty
	}
	ctx, cancel := context.WithCancel(p.ctx)
	token := newResourceToken(p.current, cancel)
	p.current = token
	clock, metrics := p.clock, p.metrics
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		won := gate(ctx, p.inner, inner, func(ctx context.Context, attempt int) bool {
			return p.try(ctx, clock, metrics, token, attempt)
		})
		// Callbacks may dispose the producer, so they run untracked.
		p.wg.Done()
		if won {
			fire(ctx, func() { token.l.fire() })
		}
	}()
	return token
}

func (p *ResourceProducer) try(ctx context.Context, clock clockz.Clock, metrics MetricsProvider, token *ResourceToken, attempt int) bool {
	if ctx.Err() != nil {
		return true
	}
	start := clock.Now()
	var resource Disposable
	err := safeCall(func() error {
		var aerr error
		resource, aerr = p.acquire(ctx)
		return aerr
	})
	if err != nil && resource != nil {
		resource.Dispose()
		resource = nil
	}
	metrics.OnAcquire(resource != nil, clock.Since(start))

	if resource != nil {
		if ctx.Err() != nil || !token.attach(resource) {
			resource.Dispose()
			return true
		}
		capitan.Emit(ctx, ResourceAcquired,
			KeyAttempts.Field(attempt),
		)
		return true
	}

	if ctx.Err() != nil {
		return true
	}
	fields := []capitan.Field{KeyAttempts.Field(attempt)}
	if err != nil {
		fields = append(fields, KeyError.Field(err.Error()))
	}
	capitan.Emit(ctx, ResourceAcquireFailed, fields...)
	if p.onFailed != nil {
		fire(ctx, p.onFailed)
	}
	return false
}

// Dispose releases the current token and its resource, stops every
// acquisition loop and disposes the inner producer if it is Disposable.
// It is safe to call from a token callback.
func (p *ResourceProducer) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	current := p.current
	p.current = nil
	p.mu.Unlock()

	p.cancel()
	if current != nil {
		current.Dispose()
	}
	p.wg.Wait()

	if d, ok := p.inner.(Disposable); ok {
		d.Dispose()
	}
}

var (
	_ Token      = (*ResourceToken)(nil)
	_ Disposable = (*ResourceToken)(nil)
	_ Producer   = (*ResourceProducer)(nil)
	_ Disposable = (*ResourceProducer)(nil)
)
