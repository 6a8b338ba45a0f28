package tokenz

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the window OnChangeDebounce uses when none is given.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces bursts of calls into one delayed call carrying the
// latest value. Each Debounce restarts the window and replaces the pending
// call rather than adding another.
type Debouncer[T any] struct {
	window time.Duration

	mu        sync.Mutex
	clock     clockz.Clock
	gen       uint64
	cancel    chan struct{}
	coalesced int
	stopped   bool
}

// NewDebouncer creates a Debouncer with the given window. It panics if
// window <= 0.
func NewDebouncer[T any](window time.Duration) *Debouncer[T] {
	if window <= 0 {
		panic("tokenz: debounce window must be > 0")
	}
	return &Debouncer[T]{
		window: window,
		clock:  clockz.RealClock,
	}
}

// Clock sets the clock used for the window timer. Use this with
// clockz.FakeClock for deterministic tests.
func (d *Debouncer[T]) Clock(clock clockz.Clock) *Debouncer[T] {
	d.mu.Lock()
	d.clock = clock
	d.mu.Unlock()
	return d
}

// Debounce schedules listener(v) to run once the window elapses with no
// further call. A pending call is canceled. After Stop it does nothing.
func (d *Debouncer[T]) Debounce(listener func(T), v T) {
	if listener == nil {
		panic("tokenz: nil listener")
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.cancel != nil {
		close(d.cancel)
	}
	cancel := make(chan struct{})
	d.cancel = cancel
	d.gen++
	gen := d.gen
	d.coalesced++
	timer := d.clock.NewTimer(d.window)
	d.mu.Unlock()

	go func() {
		select {
		case <-cancel:
			timer.Stop()
			return
		case <-timer.C():
		}

		d.mu.Lock()
		// Superseded between the timer firing and taking the lock.
		if d.gen != gen || d.stopped {
			d.mu.Unlock()
			return
		}
		n := d.coalesced
		d.coalesced = 0
		d.cancel = nil
		d.mu.Unlock()

		ctx := context.Background()
		capitan.Emit(ctx, DebounceFired,
			KeyWindow.Field(d.window),
			KeyCoalesced.Field(n),
		)
		fire(ctx, func() { listener(v) })
	}()
}

// Pending reports whether a call is waiting for its window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Stop cancels the pending call, if any. Later calls to Debounce are
// ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.cancel != nil {
		close(d.cancel)
		d.cancel = nil
	}
}

// OnChangeDebounce listens to p like OnChange but delivers to listener only
// after p has been quiet for window. A window <= 0 uses DefaultDebounce.
// Disposing the result stops the listener and cancels a pending call.
func OnChangeDebounce(p Producer, listener func(), window time.Duration, opts ...ListenOption) Disposable {
	if listener == nil {
		panic("tokenz: nil listener")
	}
	if window <= 0 {
		window = DefaultDebounce
	}

	cfg := &listenConfig{clock: clockz.RealClock}
	for _, opt := range opts {
		opt(cfg)
	}
	d := NewDebouncer[struct{}](window).Clock(cfg.clock)
	call := func(struct{}) { listener() }

	l := OnChange(p, func(context.Context) error {
		d.Debounce(call, struct{}{})
		return nil
	}, opts...)

	return NewDisposable(func() {
		l.Dispose()
		d.Stop()
	})
}
