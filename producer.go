package tokenz

import "sync/atomic"

// Producer vends the current token of a change source. Each call may return
// the existing token or mint a fresh one, retiring the previous.
type Producer interface {
	Produce() Token
}

// ProducerFunc adapts a function to Producer. A nil result is replaced by
// Empty.
type ProducerFunc func() Token

// Produce calls f.
func (f ProducerFunc) Produce() Token {
	return orEmpty(f())
}

// emptyProducer always vends Empty.
var emptyProducer Producer = ProducerFunc(func() Token { return Empty })

// tokenRef boxes an arbitrary Token so it can live in an atomic.Pointer.
type tokenRef struct {
	Token
}

// triggerSlot holds the TriggerToken most recently vended by one combinator.
type triggerSlot struct {
	current atomic.Pointer[TriggerToken]
}

// rotate installs a fresh token and disposes the one it replaced. The
// goroutine that performed the swap is the one that disposes.
func (s *triggerSlot) rotate() *TriggerToken {
	next := NewTriggerToken()
	if prev := s.current.Swap(next); prev != nil {
		prev.Dispose()
	}
	return next
}

// trigger signals the current token, if any.
func (s *triggerSlot) trigger() {
	if t := s.current.Load(); t != nil {
		t.Trigger()
	}
}

// dispose retires the current token.
func (s *triggerSlot) dispose() {
	if t := s.current.Swap(nil); t != nil {
		t.Dispose()
	}
}
