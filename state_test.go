package tokenz

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "pending"},
		{StateSignaled, "signaled"},
		{StateReleased, "released"},
		{StateSignaledReleased, "signaled+released"},
		{State(999), "unknown"},
	}
	for _, tt := range tests {
		if s := tt.state.String(); s != tt.want {
			t.Errorf("expected %q, got %q", tt.want, s)
		}
	}
}

func TestState_Predicates(t *testing.T) {
	if StatePending.Signaled() || StatePending.Released() {
		t.Error("pending must be neither signaled nor released")
	}
	if !StateSignaled.Signaled() || StateSignaled.Released() {
		t.Error("signaled must be signaled and not released")
	}
	if StateReleased.Signaled() || !StateReleased.Released() {
		t.Error("released must be released and not signaled")
	}
	if !StateSignaledReleased.Signaled() || !StateSignaledReleased.Released() {
		t.Error("signaled+released must be both")
	}
}

func TestState_Values(t *testing.T) {
	// Verify iota ordering
	if StatePending != 0 {
		t.Errorf("expected StatePending=0, got %d", StatePending)
	}
	if StateSignaled != 1 {
		t.Errorf("expected StateSignaled=1, got %d", StateSignaled)
	}
	if StateReleased != 2 {
		t.Errorf("expected StateReleased=2, got %d", StateReleased)
	}
	if StateSignaledReleased != 3 {
		t.Errorf("expected StateSignaledReleased=3, got %d", StateSignaledReleased)
	}
}
