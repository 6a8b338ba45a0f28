package tokenz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// SubscribeFunc attaches trigger to an external change source and returns
// the handle that detaches it.
type SubscribeFunc func(trigger func()) Disposable

// -----------------------------------------------------------------------------
// Eager subscriptions
// -----------------------------------------------------------------------------

// IncludeSubscribing subscribes to an external source immediately. The
// source's trigger signals the current token; the subscription is disposed
// on teardown.
func (b *Builder) IncludeSubscribing(subscribe SubscribeFunc) *Builder {
	if subscribe == nil {
		panic("tokenz: nil subscribe func")
	}
	var slot triggerSlot
	b.currentScope().add(subscribe(slot.trigger))
	return b.add(ProducerFunc(func() Token { return slot.rotate() }))
}

// IncludeResubscribing subscribes immediately and then again on every
// Produce. The new subscription is installed before the old one is
// disposed, so an external event is never missed; one arriving during the
// overlap may be delivered twice.
func (b *Builder) IncludeResubscribing(subscribe SubscribeFunc) *Builder {
	return b.includeResubscribing(subscribe, true)
}

// -----------------------------------------------------------------------------
// Deferred subscriptions
// -----------------------------------------------------------------------------

// IncludeDeferred calls fn with the trigger the first time a token is
// produced, and never again.
func (b *Builder) IncludeDeferred(fn func(trigger func())) *Builder {
	if fn == nil {
		panic("tokenz: nil subscribe func")
	}
	sc := b.currentScope()
	var slot triggerSlot
	var once sync.Once
	return b.add(ProducerFunc(func() Token {
		t := slot.rotate()
		once.Do(func() {
			if sc.done() {
				return
			}
			fn(slot.trigger)
		})
		return t
	}))
}

// IncludeDeferredAsync starts fn on a tracked goroutine the first time a
// token is produced. ctx is canceled on teardown and teardown waits for fn
// to return. A non-nil error other than cancellation is emitted as
// SubscribeFailed.
func (b *Builder) IncludeDeferredAsync(fn func(ctx context.Context, trigger func()) error) *Builder {
	if fn == nil {
		panic("tokenz: nil subscribe func")
	}
	sc := b.currentScope()
	var slot triggerSlot
	var once sync.Once
	return b.add(ProducerFunc(func() Token {
		t := slot.rotate()
		once.Do(func() {
			sc.spawn(func(ctx context.Context) {
				err := safeCall(func() error { return fn(ctx, sc.signal(slot.trigger)) })
				if err != nil && !errors.Is(err, context.Canceled) {
					capitan.Emit(context.WithoutCancel(ctx), SubscribeFailed,
						KeyError.Field(err.Error()),
					)
				}
			})
		})
		return t
	}))
}

// IncludeDeferredSubscribing subscribes the first time a token is produced,
// exactly once. The subscription belongs to the teardown handle even though
// it is created after Build.
func (b *Builder) IncludeDeferredSubscribing(subscribe SubscribeFunc) *Builder {
	if subscribe == nil {
		panic("tokenz: nil subscribe func")
	}
	sc := b.currentScope()
	var slot triggerSlot
	var once sync.Once
	return b.add(ProducerFunc(func() Token {
		t := slot.rotate()
		once.Do(func() {
			if sc.done() {
				return
			}
			sc.add(subscribe(slot.trigger))
		})
		return t
	}))
}

// IncludeDeferredResubscribing subscribes on every Produce, starting with
// the first. Ordering is as for IncludeResubscribing.
func (b *Builder) IncludeDeferredResubscribing(subscribe SubscribeFunc) *Builder {
	return b.includeResubscribing(subscribe, false)
}

func (b *Builder) includeResubscribing(subscribe SubscribeFunc, eager bool) *Builder {
	if subscribe == nil {
		panic("tokenz: nil subscribe func")
	}
	sc := b.currentScope()
	var slot triggerSlot
	var registration atomic.Pointer[disposableBox]

	detach := func() {
		if r := registration.Swap(nil); r != nil {
			r.Dispose()
		}
	}
	sc.add(NewDisposable(detach))

	if eager {
		registration.Store(boxed(subscribe(slot.trigger)))
	}

	return b.add(ProducerFunc(func() Token {
		t := slot.rotate()
		if sc.done() {
			return t
		}
		next := boxed(subscribe(slot.trigger))
		if prev := registration.Swap(next); prev != nil {
			prev.Dispose()
		}
		// Torn down while we were subscribing.
		if sc.done() {
			detach()
		}
		return t
	}))
}

// IncludeWatcher starts w the first time a token is produced. Watchers emit
// the current value first; that emission is skipped and every later one
// triggers the current token. The watch ends on teardown.
func (b *Builder) IncludeWatcher(w Watcher) *Builder {
	if w == nil {
		panic("tokenz: nil watcher")
	}
	return b.IncludeDeferredAsync(func(ctx context.Context, trigger func()) error {
		changes, err := w.Watch(ctx)
		if err != nil {
			capitan.Emit(ctx, WatcherFailed,
				KeyWatcherType.Field(fmt.Sprintf("%T", w)),
				KeyError.Field(err.Error()),
			)
			return fmt.Errorf("failed to start watcher: %w", err)
		}

		initial := true
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case _, ok := <-changes:
				if !ok {
					return nil
				}
				if initial {
					initial = false
					continue
				}
				fire(ctx, trigger)
			}
		}
	})
}
