package tokenz

import (
	"errors"
	"fmt"
	"runtime"
)

// Sentinel errors.
var (
	// ErrNoOccurrence is returned by a DelayFunc to report that the token it
	// was asked about should never be signaled.
	ErrNoOccurrence = errors.New("tokenz: no next occurrence")

	// ErrNilProducer is the panic value when a nil Producer is passed to a
	// consuming function.
	ErrNilProducer = errors.New("tokenz: nil producer")

	// ErrNilToken is the panic value when a nil Token is passed to a
	// consuming function.
	ErrNilToken = errors.New("tokenz: nil token")

	// ErrListenerStopped is reported by Listener.Err once the listener has
	// been disposed.
	ErrListenerStopped = errors.New("tokenz: listener stopped")
)

// PanicError wraps a value recovered from a panicking callback together with
// the stack of the goroutine that panicked.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

// Error returns the panic value followed by the captured stack.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}

// safeCall runs fn and converts a panic into a *PanicError.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return fn()
}
