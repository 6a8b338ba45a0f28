package tokenz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Wait blocks until t is signaled or ctx is done. It returns ctx.Err() in
// the latter case. Wait always registers a callback on t, which is what
// releases predecessors of a ResourceToken.
func Wait(ctx context.Context, t Token) error {
	if t == nil {
		panic(ErrNilToken)
	}

	signaled := make(chan struct{})
	var once sync.Once
	sub := t.RegisterCallback(func(any) {
		once.Do(func() { close(signaled) })
	}, nil)
	defer sub.Dispose()

	select {
	case <-signaled:
		return nil
	default:
	}

	select {
	case <-signaled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitOnce asks p for its current token and waits for it to signal.
func WaitOnce(ctx context.Context, p Producer) error {
	if p == nil {
		panic(ErrNilProducer)
	}
	return Wait(ctx, p.Produce())
}

// listenConfig holds configuration for a Listener.
type listenConfig struct {
	ctx         context.Context
	clock       clockz.Clock
	metrics     MetricsProvider
	onError     func(error)
	historySize int
}

// ListenOption configures a Listener.
type ListenOption func(*listenConfig)

// WithContext bounds the listener by ctx in addition to Dispose.
func WithContext(ctx context.Context) ListenOption {
	return func(c *listenConfig) {
		c.ctx = ctx
	}
}

// WithErrorHandler sets a function that receives every callback failure.
// Panics are delivered as *PanicError.
func WithErrorHandler(fn func(error)) ListenOption {
	return func(c *listenConfig) {
		c.onError = fn
	}
}

// WithErrorHistory retains up to n recent callback failures, available via
// Listener.ErrorHistory.
func WithErrorHistory(n int) ListenOption {
	return func(c *listenConfig) {
		c.historySize = n
	}
}

// WithMetrics sets a metrics provider for the listener.
func WithMetrics(m MetricsProvider) ListenOption {
	return func(c *listenConfig) {
		c.metrics = m
	}
}

// WithListenClock sets the clock used to time callbacks.
func WithListenClock(clock clockz.Clock) ListenOption {
	return func(c *listenConfig) {
		c.clock = clock
	}
}

// Listener runs a callback every time the producer it watches signals.
type Listener struct {
	cancel       context.CancelFunc
	done         chan struct{}
	clock        clockz.Clock
	metrics      MetricsProvider
	onError      func(error)
	errorHistory *errorRing
	lastError    atomic.Pointer[error]
	invocations  atomic.Int64
}

// OnChange listens to p continuously: it waits for the current token, runs
// fn, then asks p for the next token. Failures of fn never stop the loop;
// they are reported through the error handler, the error history, metrics
// and the ListenerCallbackFailed signal.
//
// Example:
//
//	producer, lifetime := tokenz.NewBuilder().
//	    IncludeWatcher(tokenz.NewFileWatcher("config.yaml")).
//	    IncludeDelay(tokenz.FixedDelay(time.Minute)).
//	    Build()
//	defer lifetime.Dispose()
//
//	listener := tokenz.OnChange(producer, func(ctx context.Context) error {
//	    return app.Reload(ctx)
//	})
//	defer listener.Dispose()
func OnChange(p Producer, fn func(ctx context.Context) error, opts ...ListenOption) *Listener {
	if p == nil {
		panic(ErrNilProducer)
	}
	if fn == nil {
		panic("tokenz: nil callback")
	}

	cfg := &listenConfig{
		ctx:   context.Background(),
		clock: clockz.RealClock,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = NoOpMetricsProvider{}
	}

	ctx, cancel := context.WithCancel(cfg.ctx)
	l := &Listener{
		cancel:       cancel,
		done:         make(chan struct{}),
		clock:        cfg.clock,
		metrics:      cfg.metrics,
		onError:      cfg.onError,
		errorHistory: newErrorRing(cfg.historySize),
	}

	go l.run(ctx, p, fn)
	return l
}

func (l *Listener) run(ctx context.Context, p Producer, fn func(context.Context) error) {
	defer close(l.done)
	defer func() {
		capitan.Emit(context.WithoutCancel(ctx), ListenerStopped,
			KeyInvocations.Field(int(l.invocations.Load())),
		)
	}()

	capitan.Emit(ctx, ListenerStarted)

	for {
		if err := WaitOnce(ctx, p); err != nil {
			return
		}
		// Disposed while the token was signaling.
		if ctx.Err() != nil {
			return
		}

		l.metrics.OnSignal()
		start := l.clock.Now()
		err := safeCall(func() error { return fn(ctx) })
		l.invocations.Add(1)

		if err != nil {
			l.fail(ctx, err)
			l.metrics.OnCallbackFailure(l.clock.Since(start))
			continue
		}
		l.metrics.OnCallbackSuccess(l.clock.Since(start))
	}
}

func (l *Listener) fail(ctx context.Context, err error) {
	e := err
	l.lastError.Store(&e)
	l.errorHistory.push(err)
	capitan.Emit(ctx, ListenerCallbackFailed,
		KeyError.Field(err.Error()),
	)
	if l.onError != nil {
		l.onError(err)
	}
}

// Dispose stops the listener from re-arming. A callback already running is
// allowed to finish. Dispose does not wait; use Done for that.
func (l *Listener) Dispose() {
	l.cancel()
}

// Done returns a channel that is closed once the listener loop has exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Err returns ErrListenerStopped once the loop has exited, nil before.
func (l *Listener) Err() error {
	select {
	case <-l.done:
		return ErrListenerStopped
	default:
		return nil
	}
}

// Invocations returns how many times the callback has run.
func (l *Listener) Invocations() int64 {
	return l.invocations.Load()
}

// LastError returns the most recent callback failure, or nil.
func (l *Listener) LastError() error {
	ptr := l.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent callback failures, oldest first. It returns
// nil unless WithErrorHistory was used.
func (l *Listener) ErrorHistory() []error {
	return l.errorHistory.snapshot()
}

// ClearErrorHistory drops the retained callback failures.
func (l *Listener) ClearErrorHistory() {
	l.errorHistory.clear()
}

var _ Disposable = (*Listener)(nil)
