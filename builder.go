package tokenz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
)

// includeConfig holds per-combinator options.
type includeConfig struct {
	keepPrevious bool
	onDispose    func()
}

// IncludeOption configures a combinator added with Include or
// IncludeProducer.
type IncludeOption func(*includeConfig)

// KeepPrevious stops the combinator from disposing the token it vended
// previously when a new one is produced.
func KeepPrevious() IncludeOption {
	return func(c *includeConfig) {
		c.keepPrevious = true
	}
}

// OnDispose registers fn to run when the built producer is torn down.
func OnDispose(fn func()) IncludeOption {
	return func(c *includeConfig) {
		c.onDispose = fn
	}
}

// Builder composes change sources into a single Producer.
//
// Each Include* call adds one combinator. Build compiles them: no
// combinators yield a producer of Empty, one is passed through as is, and
// several produce a CompositeToken that signals when any of them does.
//
// Example:
//
//	var onReload func()
//	producer, lifetime := tokenz.NewBuilder().
//	    IncludeSubscribing(func(trigger func()) tokenz.Disposable {
//	        onReload = trigger
//	        return tokenz.Nop
//	    }).
//	    IncludeDelay(tokenz.FixedDelay(30 * time.Second)).
//	    Build()
//	defer lifetime.Dispose()
type Builder struct {
	mu        sync.Mutex
	factories []Producer
	scope     *scope
	clock     clockz.Clock
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		scope: newScope(),
		clock: clockz.RealClock,
	}
}

// Clock sets the clock handed to delay and scheduled producers included
// after this call. Use this with clockz.FakeClock for deterministic tests.
func (b *Builder) Clock(clock clockz.Clock) *Builder {
	b.mu.Lock()
	b.clock = clock
	b.mu.Unlock()
	return b
}

// Len returns the number of combinators added since the last Build.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.factories)
}

func (b *Builder) add(p Producer) *Builder {
	b.mu.Lock()
	b.factories = append(b.factories, p)
	b.mu.Unlock()
	return b
}

func (b *Builder) currentScope() *scope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scope
}

func (b *Builder) currentClock() clockz.Clock {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock
}

// Build compiles the combinators into one Producer and returns it with the
// teardown handle for every external subscription and background goroutine
// the combinators own. The builder is reset and can be reused for an
// independent composition.
func (b *Builder) Build() (Producer, Disposable) {
	b.mu.Lock()
	factories := b.factories
	sc := b.scope
	b.factories = nil
	b.scope = newScope()
	b.mu.Unlock()

	switch len(factories) {
	case 0:
		return emptyProducer, sc
	case 1:
		return factories[0], sc
	}

	return ProducerFunc(func() Token {
		tokens := make([]Token, len(factories))
		for i, f := range factories {
			tokens[i] = f.Produce()
		}
		return NewCompositeToken(tokens...)
	}), sc
}

// -----------------------------------------------------------------------------
// Token factories
// -----------------------------------------------------------------------------

// Include adds a token factory. Each Produce calls fn and, unless
// KeepPrevious is given, disposes the token fn returned last time if it is
// Disposable. A nil token is replaced by Empty.
func (b *Builder) Include(fn func() Token, opts ...IncludeOption) *Builder {
	if fn == nil {
		panic("tokenz: nil token factory")
	}
	cfg := &includeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.onDispose != nil {
		b.currentScope().add(NewDisposable(cfg.onDispose))
	}

	var current atomic.Pointer[tokenRef]
	return b.add(ProducerFunc(func() Token {
		next := orEmpty(fn())
		prev := current.Swap(&tokenRef{next})
		if cfg.keepPrevious || prev == nil || sameToken(prev.Token, next) {
			return next
		}
		if d, ok := prev.Token.(Disposable); ok {
			d.Dispose()
		}
		return next
	}))
}

// IncludeProducer adds p as a combinator. A Disposable producer is also
// disposed on teardown.
func (b *Builder) IncludeProducer(p Producer, opts ...IncludeOption) *Builder {
	if p == nil {
		panic(ErrNilProducer)
	}
	if d, ok := p.(Disposable); ok {
		b.currentScope().add(d)
	}
	return b.Include(p.Produce, opts...)
}

// IncludeContext adds a combinator whose tokens signal when the context
// returned by fn is done. fn is called once per Produce.
func (b *Builder) IncludeContext(fn func() context.Context) *Builder {
	if fn == nil {
		panic("tokenz: nil context factory")
	}
	return b.Include(func() Token { return NewContextToken(fn()) })
}

// IncludeTrigger adds a manually triggered combinator and returns its
// trigger. Calling the trigger signals the combinator's current token; it
// stays valid for the lifetime of the built producer.
func (b *Builder) IncludeTrigger() func() {
	var slot triggerSlot
	b.add(ProducerFunc(func() Token { return slot.rotate() }))
	return slot.trigger
}

// -----------------------------------------------------------------------------
// Timed producers
// -----------------------------------------------------------------------------

// IncludeDelay adds a DelayProducer driven by fn.
func (b *Builder) IncludeDelay(fn DelayFunc) *Builder {
	return b.IncludeProducer(NewDelayProducer(fn).Clock(b.currentClock()))
}

// IncludeScheduled adds a ScheduledProducer driven by next. ctx cancels
// every pending wait.
func (b *Builder) IncludeScheduled(ctx context.Context, next NextOccurrenceFunc) *Builder {
	return b.IncludeProducer(NewScheduledProducer(ctx, next).Clock(b.currentClock()))
}

// -----------------------------------------------------------------------------
// Gating combinators
// -----------------------------------------------------------------------------

// AndAcquired wraps inner in a ResourceProducer and returns a new Builder
// holding it. Previous tokens are not disposed by the builder: the
// ResourceProducer releases them when the next token gets its first
// listener.
func AndAcquired(inner Producer, acquire AcquireFunc, onAcquireFailed func()) *Builder {
	return NewBuilder().IncludeProducer(
		NewResourceProducer(inner, acquire, onAcquireFailed),
		KeepPrevious(),
	)
}

// AndTrue wraps inner in a PredicateProducer and returns a new Builder
// holding it.
func AndTrue(inner Producer, check CheckFunc, onRejected func()) *Builder {
	return NewBuilder().IncludeProducer(NewPredicateProducer(inner, check, onRejected))
}

// sameToken reports whether a and b are the same token. Tokens whose
// dynamic type is not comparable are treated as distinct.
func sameToken(a, b Token) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
