package tokenz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// advance moves clock forward once a timer is waiting on it and delivers
// the timer sends.
func advance(t *testing.T, clock *clockz.FakeClock, d time.Duration) {
	t.Helper()
	if !waitFor(t, time.Second, clock.HasWaiters) {
		t.Fatal("expected a timer waiting on the fake clock")
	}
	clock.Advance(d)
	clock.BlockUntilReady()
}

func TestBuilder_EmptyBuildsEmptyProducer(t *testing.T) {
	p, lifetime := NewBuilder().Build()
	defer lifetime.Dispose()

	if p.Produce() != Empty || p.Produce() != Empty {
		t.Error("expected an empty builder to produce Empty")
	}
}

func TestBuilder_SingleCombinatorPassesThrough(t *testing.T) {
	tok := NewTriggerToken()
	p, lifetime := NewBuilder().Include(func() Token { return tok }).Build()
	defer lifetime.Dispose()

	if p.Produce() != Token(tok) {
		t.Error("expected the single factory's token without a composite")
	}
}

func TestBuilder_MultipleCombinatorsComposite(t *testing.T) {
	b := NewBuilder()
	first := b.IncludeTrigger()
	second := b.IncludeTrigger()
	p, lifetime := b.Build()
	defer lifetime.Dispose()

	tok := p.Produce()
	composite, ok := tok.(*CompositeToken)
	if !ok {
		t.Fatalf("expected *CompositeToken, got %T", tok)
	}
	if len(composite.Tokens()) != 2 {
		t.Fatalf("expected 2 children, got %d", len(composite.Tokens()))
	}

	second()
	if !tok.HasChanged() {
		t.Error("expected composite to signal when any combinator does")
	}
	if changed := composite.Changed(); len(changed) != 1 || changed[0] != composite.Tokens()[1] {
		t.Error("expected only the second child to be changed")
	}

	next := p.Produce()
	if next.HasChanged() {
		t.Error("expected next token to be fresh")
	}
	first()
	if !next.HasChanged() {
		t.Error("expected first trigger to signal the next token")
	}
}

func TestBuilder_ProduceIsFresh(t *testing.T) {
	b := NewBuilder()
	b.IncludeTrigger()
	p, lifetime := b.Build()
	defer lifetime.Dispose()

	a, c := p.Produce(), p.Produce()
	if a == c {
		t.Error("expected distinct tokens")
	}
	if a.HasChanged() || c.HasChanged() {
		t.Error("expected both tokens to start unsignaled")
	}
}

func TestBuilder_IncludeDisposesPrevious(t *testing.T) {
	var tokens []*TriggerToken
	p, lifetime := NewBuilder().Include(func() Token {
		tok := NewTriggerToken()
		tokens = append(tokens, tok)
		return tok
	}).Build()
	defer lifetime.Dispose()

	p.Produce()
	p.Produce()

	if tokens[0].State() != StateReleased {
		t.Errorf("expected previous token to be released, got %s", tokens[0].State())
	}
	if tokens[1].State() != StatePending {
		t.Errorf("expected current token to be pending, got %s", tokens[1].State())
	}
}

func TestBuilder_IncludeKeepPrevious(t *testing.T) {
	var tokens []*TriggerToken
	p, lifetime := NewBuilder().Include(func() Token {
		tok := NewTriggerToken()
		tokens = append(tokens, tok)
		return tok
	}, KeepPrevious()).Build()
	defer lifetime.Dispose()

	p.Produce()
	p.Produce()

	if tokens[0].State() != StatePending {
		t.Errorf("expected previous token to be kept, got %s", tokens[0].State())
	}
}

func TestBuilder_IncludeSameTokenNotDisposed(t *testing.T) {
	tok := NewTriggerToken()
	p, lifetime := NewBuilder().Include(func() Token { return tok }).Build()
	defer lifetime.Dispose()

	p.Produce()
	p.Produce()

	if tok.State() != StatePending {
		t.Errorf("expected re-returned token to stay live, got %s", tok.State())
	}
}

func TestBuilder_IncludeNilTokenBecomesEmpty(t *testing.T) {
	b := NewBuilder().Include(func() Token { return nil })
	b.IncludeTrigger()
	p, lifetime := b.Build()
	defer lifetime.Dispose()

	composite := p.Produce().(*CompositeToken)
	if composite.Tokens()[0] != Empty {
		t.Error("expected nil token to be replaced by Empty")
	}
}

func TestBuilder_OnDisposeRunsAtTeardown(t *testing.T) {
	var ran atomic.Int32
	_, lifetime := NewBuilder().
		Include(func() Token { return Empty }, OnDispose(func() { ran.Add(1) })).
		Build()

	lifetime.Dispose()
	lifetime.Dispose()

	if ran.Load() != 1 {
		t.Errorf("expected OnDispose to run once, got %d", ran.Load())
	}
}

func TestBuilder_IncludeProducerDisposesDisposable(t *testing.T) {
	inner := NewDelayProducer(FixedDelay(time.Hour))
	_, lifetime := NewBuilder().IncludeProducer(inner).Build()

	lifetime.Dispose()

	if inner.Produce() != Empty {
		t.Error("expected the included producer to be disposed at teardown")
	}
}

func TestBuilder_IncludeContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, lifetime := NewBuilder().IncludeContext(func() context.Context { return ctx }).Build()
	defer lifetime.Dispose()

	tok := p.Produce()
	cancel()

	if !waitFor(t, time.Second, tok.HasChanged) {
		t.Error("expected token to signal when the context is done")
	}
}

func TestBuilder_BuildResetsBuilder(t *testing.T) {
	b := NewBuilder()
	b.IncludeTrigger()
	if b.Len() != 1 {
		t.Fatalf("expected 1 combinator, got %d", b.Len())
	}

	_, lifetime := b.Build()
	defer lifetime.Dispose()

	if b.Len() != 0 {
		t.Errorf("expected builder to be reset, got %d", b.Len())
	}
	p, second := b.Build()
	defer second.Dispose()
	if p.Produce() != Empty {
		t.Error("expected reused builder to start empty")
	}
}

func TestBuilder_TriggerOnlySignalsCurrentToken(t *testing.T) {
	b := NewBuilder()
	trigger := b.IncludeTrigger()
	p, lifetime := b.Build()
	defer lifetime.Dispose()

	// Triggering before any token exists is a no-op.
	trigger()

	first := p.Produce()
	second := p.Produce()
	trigger()

	if first.HasChanged() {
		t.Error("expected retired token to stay unsignaled")
	}
	if !second.HasChanged() {
		t.Error("expected current token to be signaled")
	}
}

func TestBuilder_OnChangeReceivesEveryTrigger(t *testing.T) {
	b := NewBuilder()
	trigger := b.IncludeTrigger()
	p, lifetime := b.Build()
	defer lifetime.Dispose()

	var calls atomic.Int32
	listener := OnChange(p, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	defer listener.Dispose()

	for i := 1; i <= 3; i++ {
		want := int32(i)
		if !waitFor(t, time.Second, func() bool {
			trigger()
			return calls.Load() >= want
		}) {
			t.Fatalf("expected at least %d calls, got %d", want, calls.Load())
		}
	}
}

func TestBuilder_ConcurrentProduce(t *testing.T) {
	b := NewBuilder()
	b.IncludeTrigger()
	b.IncludeTrigger()
	p, lifetime := b.Build()
	defer lifetime.Dispose()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Produce()
			}
		}()
	}
	wg.Wait()
}
