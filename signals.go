package tokenz

import "github.com/zoobzio/capitan"

// Listener lifecycle signals.
var (
	// ListenerStarted is emitted when an OnChange listener begins its loop.
	ListenerStarted = capitan.NewSignal(
		"tokenz.listener.started",
		"Change listener started",
	)

	// ListenerStopped is emitted when an OnChange listener exits its loop.
	ListenerStopped = capitan.NewSignal(
		"tokenz.listener.stopped",
		"Change listener stopped",
	)

	// ListenerCallbackFailed is emitted when a listener callback returns an
	// error or panics. The listener keeps running.
	ListenerCallbackFailed = capitan.NewSignal(
		"tokenz.listener.callback.failed",
		"Change listener callback failed",
	)

	// CallbackPanicked is emitted when a token callback panics while the
	// token is signaled from a background goroutine.
	CallbackPanicked = capitan.NewSignal(
		"tokenz.callback.panicked",
		"Token callback panicked",
	)
)

// Arbitration signals.
var (
	// ResourceAcquired is emitted when a resource-gated producer wins the
	// resource and signals its token.
	ResourceAcquired = capitan.NewSignal(
		"tokenz.resource.acquired",
		"Resource acquired, token signaled",
	)

	// ResourceAcquireFailed is emitted when a resource-gated producer loses
	// the resource after an inner signal.
	ResourceAcquireFailed = capitan.NewSignal(
		"tokenz.resource.acquire.failed",
		"Resource not acquired, signal filtered",
	)

	// ResourceReleased is emitted when a held resource is disposed.
	ResourceReleased = capitan.NewSignal(
		"tokenz.resource.released",
		"Resource released",
	)

	// PredicateRejected is emitted when a predicate-gated producer filters an
	// inner signal.
	PredicateRejected = capitan.NewSignal(
		"tokenz.predicate.rejected",
		"Predicate rejected inner signal",
	)
)

// Timing signals.
var (
	// DelayScheduled is emitted when a delay producer starts waiting for a
	// token.
	DelayScheduled = capitan.NewSignal(
		"tokenz.delay.scheduled",
		"Delay scheduled for token",
	)

	// DelayFailed is emitted when computing a delay fails. The computation is
	// retried while the token is current.
	DelayFailed = capitan.NewSignal(
		"tokenz.delay.failed",
		"Delay computation failed",
	)

	// DebounceFired is emitted when a debouncer delivers a coalesced value.
	DebounceFired = capitan.NewSignal(
		"tokenz.debounce.fired",
		"Debounced listener invoked",
	)
)

// Source signals.
var (
	// SubscribeFailed is emitted when a deferred asynchronous subscription
	// returns an error.
	SubscribeFailed = capitan.NewSignal(
		"tokenz.subscribe.failed",
		"Deferred subscription failed",
	)

	// WatcherFailed is emitted when a watcher cannot be started.
	WatcherFailed = capitan.NewSignal(
		"tokenz.watcher.failed",
		"Watcher failed to start",
	)

	// WatcherDecodeFailed is emitted when a watched payload cannot be decoded
	// or validated. The payload is dropped.
	WatcherDecodeFailed = capitan.NewSignal(
		"tokenz.watcher.decode.failed",
		"Watched payload rejected",
	)
)
