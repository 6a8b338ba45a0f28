package tokenz

import "context"

// ChannelWatcher turns an in-process byte channel into a Watcher. Use it
// for sources that already push changes, and in tests.
type ChannelWatcher struct {
	initial []byte
	ch      <-chan []byte
}

// NewChannelWatcher creates a ChannelWatcher that reports initial as the
// current contents and every value received from ch as a change.
func NewChannelWatcher(initial []byte, ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{initial: initial, ch: ch}
}

// Watch emits the initial contents and then forwards ch until ctx is
// canceled or ch is closed.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)
	go func() {
		defer close(out)
		if !send(ctx, out, w.initial) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-w.ch:
				if !ok || !send(ctx, out, v) {
					return
				}
			}
		}
	}()
	return out, nil
}

// send delivers v on out unless ctx is done first.
func send(ctx context.Context, out chan<- []byte, v []byte) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ Watcher = (*ChannelWatcher)(nil)
