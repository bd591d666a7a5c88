// Package playback provides the streaming engine: the tick-driven sample
// consumer, the block producer and the state machine that governs them.
package playback

// State represents the playback state.
type State int

const (
	StateUninitialized State = iota // No work buffer or storage yet
	StateStopped                    // Initialized, at start of file or end of stream
	StatePlaying                    // Tick handler is draining the buffer
	StatePaused                     // Mid-stream, output suspended
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
