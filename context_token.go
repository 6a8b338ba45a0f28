package tokenz

import "context"

// ContextToken is a Token that signals when its context is done. It is the
// bridge between context cancellation and change notification.
type ContextToken struct {
	ctx context.Context
}

// NewContextToken wraps ctx. A nil context yields a token that never
// signals.
func NewContextToken(ctx context.Context) *ContextToken {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ContextToken{ctx: ctx}
}

// HasChanged reports whether the context is done.
func (t *ContextToken) HasChanged() bool {
	return t.ctx.Err() != nil
}

// ActiveCallbacks always returns true.
func (*ContextToken) ActiveCallbacks() bool {
	return true
}

// RegisterCallback runs fn(state) once the context is done. If it already
// is, fn runs before RegisterCallback returns.
func (t *ContextToken) RegisterCallback(fn func(any), state any) Disposable {
	if fn == nil {
		panic("tokenz: nil callback")
	}
	if t.ctx.Err() != nil {
		fn(state)
		return Nop
	}
	stop := context.AfterFunc(t.ctx, func() { fn(state) })
	return NewDisposable(func() { stop() })
}

var _ Token = (*ContextToken)(nil)
