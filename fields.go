package tokenz

import "github.com/zoobzio/capitan"

// Field keys for tokenz events.
var (
	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDelay is the wait scheduled for a token.
	KeyDelay = capitan.NewDurationKey("delay")

	// KeyWindow is the configured debounce window.
	KeyWindow = capitan.NewDurationKey("window")

	// KeyAttempts is the number of acquisition or check attempts made for a
	// single token.
	KeyAttempts = capitan.NewIntKey("attempts")

	// KeyCoalesced is the number of signals folded into one debounced call.
	KeyCoalesced = capitan.NewIntKey("coalesced")

	// KeyInvocations is the number of callbacks a listener has run.
	KeyInvocations = capitan.NewIntKey("invocations")

	// KeyWatcherType is the type name of the watcher implementation.
	KeyWatcherType = capitan.NewStringKey("watcher_type")
)
