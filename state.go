package tokenz

// State represents the lifecycle position of a mutable token.
//
//	Pending --Trigger()--> Signaled
//	Signaled --Dispose()--> SignaledReleased
//	Pending --Dispose()--> Released (never signals afterwards)
type State int32

const (
	// StatePending indicates the token has not been signaled yet.
	StatePending State = iota

	// StateSignaled indicates the token has been signaled. This is terminal
	// with respect to signaling.
	StateSignaled

	// StateReleased indicates the token was disposed before it signaled.
	// It will never signal.
	StateReleased

	// StateSignaledReleased indicates the token signaled and was later
	// disposed. HasChanged keeps reporting true.
	StateSignaledReleased
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSignaled:
		return "signaled"
	case StateReleased:
		return "released"
	case StateSignaledReleased:
		return "signaled+released"
	default:
		return "unknown"
	}
}

// Signaled reports whether the state carries a signal.
func (s State) Signaled() bool {
	return s == StateSignaled || s == StateSignaledReleased
}

// Released reports whether the token has been disposed.
func (s State) Released() bool {
	return s == StateReleased || s == StateSignaledReleased
}
