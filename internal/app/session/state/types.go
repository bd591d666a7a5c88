// Package state provides session state management.
package state

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseWaiting    Phase = iota // No file started yet
	PhaseActive                  // Streaming a file
	PhaseFinished                // End of stream reached
	PhaseTerminated              // Cut short by an error or cancellation
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of a session.
type Stats struct {
	SessionID string
	File      string
	Phase     Phase
	Underruns int
	Errors    int
	Duration  float64 // Seconds since the file started
}
