/*
Package tokenz provides composable, replaceable, one-shot change
notifications.

A Token starts unsignaled, transitions to signaled at most once, and runs
every callback registered on it exactly once when that happens. A Producer
vends tokens in succession: each Produce returns the current token of a
change source, retiring the previous one. Consumers ask for a token, wait
for it, react, and ask again.

# Composing Sources

A Builder combines change sources into one Producer:

	b := tokenz.NewBuilder()
	reload := b.IncludeTrigger()
	producer, lifetime := b.
	    IncludeWatcher(tokenz.NewFileWatcher("config.yaml")).
	    IncludeDelay(tokenz.FixedDelay(10 * time.Minute)).
	    Build()
	defer lifetime.Dispose()

The token produced signals when any source does: the manual trigger, a
file change, or the delay elapsing. Disposing lifetime tears down every
subscription and background goroutine the sources own.

Sources attach in one of three ways:

  - Eager (IncludeSubscribing) subscribes when added.
  - Deferred (IncludeDeferred, IncludeDeferredSubscribing,
    IncludeDeferredAsync, IncludeWatcher) subscribes on the first Produce,
    exactly once.
  - Resubscribing (IncludeResubscribing, IncludeDeferredResubscribing)
    subscribes again on every Produce, installing the new subscription
    before removing the old one.

# Listening

	listener := tokenz.OnChange(producer, func(ctx context.Context) error {
	    return app.Reload(ctx)
	}, tokenz.WithErrorHistory(10))
	defer listener.Dispose()

Callback failures and panics never stop the listener. They are reported
through WithErrorHandler, the error history, a MetricsProvider and the
ListenerCallbackFailed signal. OnChangeDebounce folds bursts of signals
into one call.

# Arbitration

AndAcquired gates a producer behind an exclusive resource such as a
distributed lock. When several processes observe the same signal, only
the one that acquires the resource sees its token signal:

	producer, lifetime := tokenz.AndAcquired(schedule, lock.TryAcquire, func() {
	    log.Println("another replica is running the job")
	}).Build()

The winner holds the resource until the next token it produces gets its
first listener, so a consumer that loops with WaitOnce or OnChange
releases it without any extra bookkeeping.

# Timing

DelayProducer and NewScheduledProducer signal tokens after a computed
delay or at a wall-clock time. Waits of any length are supported and can
be canceled. Every timed component accepts a clockz.Clock, so tests can
drive them with clockz.NewFakeClock.

# Observability

Lifecycle and failure events are emitted as capitan signals (see
signals.go) with typed fields (see fields.go):

	capitan.Hook(tokenz.ResourceAcquireFailed, func(_ context.Context, e *capitan.Event) {
	    attempts, _ := tokenz.KeyAttempts.From(e)
	    fmt.Printf("lost the lock after %d attempt(s)\n", attempts)
	})
*/
package tokenz
