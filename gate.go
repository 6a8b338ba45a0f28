package tokenz

import (
	"context"

	"github.com/zoobzio/capitan"
)

// gate waits for inner to signal and then runs pass. When pass reports
// false, gate re-arms on inner's next token. The first inner token is
// obtained by the caller before the loop starts, so a signal sent between
// Produce and the loop starting is not missed. gate returns true once pass
// succeeds, and false if ctx is done first. A canceled loop never calls
// pass, even when the inner token had already signaled.
func gate(ctx context.Context, inner Producer, first Token, pass func(ctx context.Context, attempt int) bool) bool {
	token := first
	for attempt := 1; ; attempt++ {
		if err := Wait(ctx, token); err != nil || ctx.Err() != nil {
			return false
		}
		if pass(ctx, attempt) {
			return ctx.Err() == nil
		}
		if ctx.Err() != nil {
			return false
		}
		token = inner.Produce()
	}
}

// fire runs a token transition from a background goroutine. A panicking
// callback is reported as CallbackPanicked instead of crashing the process.
func fire(ctx context.Context, fn func()) {
	err := safeCall(func() error {
		fn()
		return nil
	})
	if err != nil {
		capitan.Emit(context.WithoutCancel(ctx), CallbackPanicked,
			KeyError.Field(err.Error()),
		)
	}
}
