package tokenz

import (
	"context"
	"testing"
	"time"
)

func TestChannelWatcher_EmitsInitialThenForwards(t *testing.T) {
	source := make(chan []byte, 2)
	source <- []byte("one")
	source <- []byte("two")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := NewChannelWatcher([]byte("initial"), source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	for _, exp := range []string{"initial", "one", "two"} {
		select {
		case v := <-out:
			if string(v) != exp {
				t.Errorf("expected %s, got %s", exp, string(v))
			}
		case <-ctx.Done():
			t.Fatalf("timeout waiting for %s", exp)
		}
	}
}

func TestChannelWatcher_ClosesWhenSourceCloses(t *testing.T) {
	source := make(chan []byte)
	close(source)

	out, err := NewChannelWatcher(nil, source).Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	<-out // initial
	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}
}

func TestChannelWatcher_ClosesOnContextCancel(t *testing.T) {
	source := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	out, err := NewChannelWatcher([]byte("initial"), source).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	<-out

	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}
}
