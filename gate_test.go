package tokenz

import (
	"context"
	"sync/atomic"
	"testing"
)

func signaledToken() Token {
	tok := NewTriggerToken()
	tok.Trigger()
	return tok
}

func TestGate_CanceledLoopSkipsPass(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	passed := gate(ctx, ProducerFunc(signaledToken), signaledToken(), func(context.Context, int) bool {
		calls.Add(1)
		return true
	})
	if passed {
		t.Error("expected a canceled loop not to pass")
	}
	if calls.Load() != 0 {
		t.Errorf("expected pass not to run after cancel, got %d calls", calls.Load())
	}
}

func TestGate_ReArmsUntilPass(t *testing.T) {
	var produced atomic.Int32
	inner := ProducerFunc(func() Token {
		produced.Add(1)
		return signaledToken()
	})

	var last int
	passed := gate(context.Background(), inner, signaledToken(), func(_ context.Context, attempt int) bool {
		last = attempt
		return attempt == 3
	})
	if !passed {
		t.Fatal("expected the loop to pass")
	}
	if last != 3 {
		t.Errorf("expected 3 attempts, got %d", last)
	}
	if produced.Load() != 2 {
		t.Errorf("expected 2 re-arms, got %d", produced.Load())
	}
}

func TestGate_CancelDuringPassReportsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	passed := gate(ctx, ProducerFunc(signaledToken), signaledToken(), func(context.Context, int) bool {
		cancel()
		return true
	})
	if passed {
		t.Error("expected a loop canceled during pass not to report success")
	}
}

func TestFire_RecoversPanic(t *testing.T) {
	var ran atomic.Bool
	fire(context.Background(), func() {
		ran.Store(true)
		panic("callback")
	})
	if !ran.Load() {
		t.Error("expected fn to run")
	}
}
