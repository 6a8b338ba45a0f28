package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zoobzio/tokenz"
)

func receive(t *testing.T, out <-chan []byte, timeout time.Duration) string {
	t.Helper()
	select {
	case data, ok := <-out:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(data)
	case <-time.After(timeout):
		t.Fatal("timeout waiting for contents")
	}
	return ""
}

func TestFileWatcher_EmitsInitialContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte("initial"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := tokenz.NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if got := receive(t, out, 200*time.Millisecond); got != "initial" {
		t.Errorf("expected 'initial', got %q", got)
	}
}

func TestFileWatcher_EmitsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte("initial"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := tokenz.NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	receive(t, out, 200*time.Millisecond)

	if err := os.WriteFile(path, []byte("updated"), 0o600); err != nil {
		t.Fatalf("failed to update file: %v", err)
	}

	// A write may surface as several events; the last contents win.
	deadline := time.After(time.Second)
	for {
		select {
		case data := <-out:
			if string(data) == "updated" {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for updated contents")
		}
	}
}

func TestFileWatcher_EmitsOnRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.txt")
	if err := os.WriteFile(path, []byte("initial"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := tokenz.NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	receive(t, out, 200*time.Millisecond)

	tmp := filepath.Join(dir, "config.txt.tmp")
	if err := os.WriteFile(tmp, []byte("replaced"), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}

	if got := receive(t, out, time.Second); got != "replaced" {
		t.Errorf("expected 'replaced', got %q", got)
	}
}

func TestFileWatcher_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.txt")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := tokenz.NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := receive(t, out, 200*time.Millisecond); got != "" {
		t.Errorf("expected empty initial contents, got %q", got)
	}

	if err := os.WriteFile(path, []byte("created"), 0o600); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case data := <-out:
			if string(data) == "created" {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for created contents")
		}
	}
}

func TestFileWatcher_ErrorOnMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.txt")

	_, err := tokenz.NewFileWatcher(path).Watch(context.Background())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestFileWatcher_ClosesOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte("initial"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out, err := tokenz.NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	receive(t, out, 200*time.Millisecond)

	cancel()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel to close")
	}
}
