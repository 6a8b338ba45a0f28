package tokenz

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks from listeners and
// resource-gated producers.
type MetricsProvider interface {
	// OnSignal is called when a listener observes a signaled token.
	OnSignal()

	// OnCallbackSuccess is called when a listener callback returns nil.
	OnCallbackSuccess(duration time.Duration)

	// OnCallbackFailure is called when a listener callback fails or panics.
	OnCallbackFailure(duration time.Duration)

	// OnAcquire is called after every acquisition attempt of a
	// resource-gated producer. Duration covers the acquire call only.
	OnAcquire(acquired bool, duration time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnSignal()                         {}
func (NoOpMetricsProvider) OnCallbackSuccess(_ time.Duration) {}
func (NoOpMetricsProvider) OnCallbackFailure(_ time.Duration) {}
func (NoOpMetricsProvider) OnAcquire(_ bool, _ time.Duration) {}
