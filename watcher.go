package tokenz

import "context"

// Watcher observes an external source and emits its raw contents. It is
// the pull-free way to feed a Builder: see Builder.IncludeWatcher.
type Watcher interface {
	// Watch starts observing and returns a channel of payloads. The first
	// payload is the source's current contents; every later one reports a
	// change. The channel is closed when ctx is canceled or the source
	// fails permanently.
	Watch(ctx context.Context) (<-chan []byte, error)
}

// WatcherFunc adapts a function to Watcher.
type WatcherFunc func(ctx context.Context) (<-chan []byte, error)

// Watch calls f.
func (f WatcherFunc) Watch(ctx context.Context) (<-chan []byte, error) {
	return f(ctx)
}
