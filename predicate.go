package tokenz

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// CheckFunc decides whether an inner signal is passed on.
type CheckFunc func(ctx context.Context) (bool, error)

// AllOf holds when every check holds. Checks run in order and stop at the
// first false or error. With no checks it holds.
func AllOf(checks ...CheckFunc) CheckFunc {
	return func(ctx context.Context) (bool, error) {
		for _, check := range checks {
			ok, err := check(ctx)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// AnyOf holds when at least one check holds. Checks run in order and stop
// at the first true or error. With no checks it does not hold.
func AnyOf(checks ...CheckFunc) CheckFunc {
	return func(ctx context.Context) (bool, error) {
		for _, check := range checks {
			ok, err := check(ctx)
			if err != nil || ok {
				return ok && err == nil, err
			}
		}
		return false, nil
	}
}

// Always returns a check with a fixed result.
func Always(v bool) CheckFunc {
	return func(context.Context) (bool, error) { return v, nil }
}

// PredicateProducer passes an inner signal on only when a check holds.
// A false or failing check runs onRejected and waits for the inner
// producer's next token.
type PredicateProducer struct {
	inner      Producer
	check      CheckFunc
	onRejected func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	token    *TriggerToken
	stop     context.CancelFunc
	disposed bool
}

// NewPredicateProducer creates a PredicateProducer over inner.
func NewPredicateProducer(inner Producer, check CheckFunc, onRejected func()) *PredicateProducer {
	if inner == nil {
		panic(ErrNilProducer)
	}
	if check == nil {
		panic("tokenz: nil check func")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PredicateProducer{
		inner:      inner,
		check:      check,
		onRejected: onRejected,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Produce vends a fresh token, retiring the previous one and stopping its
// loop. After Dispose it returns Empty.
func (p *PredicateProducer) Produce() Token {
	inner := p.inner.Produce()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return Empty
	}
	prev, prevStop := p.token, p.stop
	ctx, cancel := context.WithCancel(p.ctx)
	token := NewTriggerToken()
	p.token, p.stop = token, cancel
	p.wg.Add(1)
	p.mu.Unlock()

	if prevStop != nil {
		prevStop()
		prev.Dispose()
	}

	go func() {
		passed := gate(ctx, p.inner, inner, func(ctx context.Context, attempt int) bool {
			return p.try(ctx, attempt)
		})
		// Callbacks may dispose the producer, so they run untracked.
		p.wg.Done()
		if passed {
			fire(ctx, token.Trigger)
		}
	}()
	return token
}

func (p *PredicateProducer) try(ctx context.Context, attempt int) bool {
	if ctx.Err() != nil {
		return true
	}
	var ok bool
	err := safeCall(func() error {
		var cerr error
		ok, cerr = p.check(ctx)
		return cerr
	})
	if err == nil && ok {
		return true
	}
	if ctx.Err() != nil {
		return true
	}

	fields := []capitan.Field{KeyAttempts.Field(attempt)}
	if err != nil {
		fields = append(fields, KeyError.Field(err.Error()))
	}
	capitan.Emit(ctx, PredicateRejected, fields...)
	if p.onRejected != nil {
		fire(ctx, p.onRejected)
	}
	return false
}

// Dispose retires the current token, stops every loop and disposes the
// inner producer if it is Disposable. It is safe to call from a token
// callback.
func (p *PredicateProducer) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	token := p.token
	p.token, p.stop = nil, nil
	p.mu.Unlock()

	p.cancel()
	if token != nil {
		token.Dispose()
	}
	p.wg.Wait()

	if d, ok := p.inner.(Disposable); ok {
		d.Dispose()
	}
}

var (
	_ Producer   = (*PredicateProducer)(nil)
	_ Disposable = (*PredicateProducer)(nil)
)
