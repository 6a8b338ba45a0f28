package tokenz

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/zoobzio/capitan"
)

// FileWatcher reports changes to the contents of a single file.
//
// The parent directory is watched rather than the file itself, so editors
// and deploy tools that replace the file by renaming over it are observed.
// A change that leaves the contents identical is not reported.
type FileWatcher struct {
	path string
}

// NewFileWatcher creates a FileWatcher for path.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: filepath.Clean(path)}
}

// Path returns the watched file.
func (w *FileWatcher) Path() string {
	return w.path
}

// Watch emits the file's current contents and then its contents after
// every change. A missing file is reported as empty contents.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch directory of %s: %w", w.path, err)
	}

	current, err := w.read()
	if err != nil {
		fsw.Close()
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer fsw.Close()

		if !send(ctx, out, current) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}

				data, err := w.read()
				if err != nil || bytes.Equal(data, current) {
					continue
				}
				current = data
				if !send(ctx, out, data) {
					return
				}

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				capitan.Emit(ctx, WatcherFailed,
					KeyWatcherType.Field("file"),
					KeyError.Field(err.Error()),
				)
			}
		}
	}()

	return out, nil
}

func (w *FileWatcher) read() ([]byte, error) {
	data, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.path, err)
	}
	return data, nil
}

var _ Watcher = (*FileWatcher)(nil)
