package tokenz

import "sync"

// CompositeToken aggregates child tokens and signals when the first child
// signals. It does not own its children: disposing them is left to whatever
// produced them.
type CompositeToken struct {
	tokens []Token
}

// NewCompositeToken creates a CompositeToken over the given children in
// order. Nil children are replaced by Empty.
func NewCompositeToken(tokens ...Token) *CompositeToken {
	children := make([]Token, len(tokens))
	for i, t := range tokens {
		children[i] = orEmpty(t)
	}
	return &CompositeToken{tokens: children}
}

// HasChanged reports whether any child has signaled.
func (c *CompositeToken) HasChanged() bool {
	for _, t := range c.tokens {
		if t.HasChanged() {
			return true
		}
	}
	return false
}

// ActiveCallbacks reports whether any child invokes callbacks on its own.
func (c *CompositeToken) ActiveCallbacks() bool {
	for _, t := range c.tokens {
		if t.ActiveCallbacks() {
			return true
		}
	}
	return false
}

// RegisterCallback registers fn against every child. fn runs once, for the
// first child to signal; later child signals are ignored.
func (c *CompositeToken) RegisterCallback(fn func(any), state any) Disposable {
	if fn == nil {
		panic("tokenz: nil callback")
	}

	var once sync.Once
	aggregate := func(s any) {
		once.Do(func() { fn(s) })
	}

	subs := make([]Disposable, 0, len(c.tokens))
	for _, t := range c.tokens {
		subs = append(subs, t.RegisterCallback(aggregate, state))
	}
	return NewDisposable(func() { disposeAll(subs) })
}

// Tokens returns the children in construction order.
func (c *CompositeToken) Tokens() []Token {
	out := make([]Token, len(c.tokens))
	copy(out, c.tokens)
	return out
}

// Changed returns the children that report HasChanged. A child may be seen
// as changed slightly after the composite itself reports it.
func (c *CompositeToken) Changed() []Token {
	var out []Token
	for _, t := range c.tokens {
		if t.HasChanged() {
			out = append(out, t)
		}
	}
	return out
}

var _ Token = (*CompositeToken)(nil)
