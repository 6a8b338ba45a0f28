package tokenz

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultRetryInterval is how long a DelayProducer waits before computing a
// delay again after the DelayFunc failed.
const DefaultRetryInterval = time.Second

// maxDelayStep bounds a single timer. Longer delays are waited out in
// several steps. Variable so tests can shrink it.
var maxDelayStep = time.Duration(math.MaxInt32) * time.Millisecond

// DelayInfo describes how long a DelayProducer waits before signaling a
// token.
type DelayInfo struct {
	// Delay is the wait. Zero or negative signals immediately.
	Delay time.Duration

	// Cancel aborts the wait without signaling when closed. Nil never
	// cancels.
	Cancel <-chan struct{}
}

// DelayFunc computes the wait for one token. It is called once per token,
// on a background goroutine; ctx is canceled when the token is retired.
// Returning ErrNoOccurrence leaves the token unsignaled for good.
type DelayFunc func(ctx context.Context) (DelayInfo, error)

// FixedDelay returns a DelayFunc that always waits d.
func FixedDelay(d time.Duration) DelayFunc {
	return func(context.Context) (DelayInfo, error) {
		return DelayInfo{Delay: d}, nil
	}
}

// DelayProducer signals each token it vends once a computed delay has
// elapsed. Produce returns immediately; the delay is computed and waited
// out in the background. Each Produce retires the previous token and stops
// its wait.
type DelayProducer struct {
	fn DelayFunc

	mu       sync.Mutex
	clock    clockz.Clock
	retry    time.Duration
	token    *TriggerToken
	stop     context.CancelFunc
	wg       sync.WaitGroup
	disposed bool
}

// NewDelayProducer creates a DelayProducer driven by fn.
func NewDelayProducer(fn DelayFunc) *DelayProducer {
	if fn == nil {
		panic("tokenz: nil delay func")
	}
	return &DelayProducer{
		fn:    fn,
		clock: clockz.RealClock,
		retry: DefaultRetryInterval,
	}
}

// Clock sets the clock used for waits. Use this with clockz.FakeClock for
// deterministic tests.
func (p *DelayProducer) Clock(clock clockz.Clock) *DelayProducer {
	p.mu.Lock()
	p.clock = clock
	p.mu.Unlock()
	return p
}

// RetryInterval sets how long to wait before computing the delay again
// after a failure.
func (p *DelayProducer) RetryInterval(d time.Duration) *DelayProducer {
	p.mu.Lock()
	p.retry = d
	p.mu.Unlock()
	return p
}

// Produce vends a fresh token and schedules its signal. After Dispose it
// returns Empty.
func (p *DelayProducer) Produce() Token {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return Empty
	}
	prev, prevStop := p.token, p.stop
	ctx, cancel := context.WithCancel(context.Background())
	token := NewTriggerToken()
	p.token, p.stop = token, cancel
	clock, retry := p.clock, p.retry
	p.wg.Add(1)
	p.mu.Unlock()

	if prevStop != nil {
		prevStop()
		prev.Dispose()
	}

	go func() {
		elapsed := p.run(ctx, clock, retry)
		// Callbacks may dispose the producer, so they run untracked.
		p.wg.Done()
		if elapsed {
			fire(ctx, token.Trigger)
		}
	}()
	return token
}

// run computes the delay and waits it out. It reports false if the wait
// was canceled or no occurrence remains.
func (p *DelayProducer) run(ctx context.Context, clock clockz.Clock, retry time.Duration) bool {
	var info DelayInfo
	for {
		err := safeCall(func() error {
			var ferr error
			info, ferr = p.fn(ctx)
			return ferr
		})
		if err == nil {
			break
		}
		if errors.Is(err, ErrNoOccurrence) || ctx.Err() != nil {
			return false
		}
		capitan.Emit(ctx, DelayFailed,
			KeyError.Field(err.Error()),
		)
		if !sleep(ctx, clock, nil, retry) {
			return false
		}
	}

	capitan.Emit(ctx, DelayScheduled,
		KeyDelay.Field(info.Delay),
	)
	return sleep(ctx, clock, info.Cancel, info.Delay)
}

// Dispose retires the current token, stops its wait and waits for the
// background goroutines to return. Callbacks of a token that is already
// signaling are not waited for, so a callback may dispose the producer.
// Produce returns Empty afterwards.
func (p *DelayProducer) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	token, stop := p.token, p.stop
	p.token, p.stop = nil, nil
	p.mu.Unlock()

	if stop != nil {
		stop()
		token.Dispose()
	}
	p.wg.Wait()
}

// sleep waits d in steps of at most maxDelayStep. It reports false if ctx
// or cancel ended the wait first.
func sleep(ctx context.Context, clock clockz.Clock, cancel <-chan struct{}, d time.Duration) bool {
	for d > 0 {
		step := min(d, maxDelayStep)
		timer := clock.NewTimer(step)
		select {
		case <-timer.C():
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-cancel:
			timer.Stop()
			return false
		}
		d -= step
	}

	select {
	case <-ctx.Done():
		return false
	case <-cancel:
		return false
	default:
		return true
	}
}

var (
	_ Producer   = (*DelayProducer)(nil)
	_ Disposable = (*DelayProducer)(nil)
)
