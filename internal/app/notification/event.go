package notification

import "time"

// EventType represents the type of session event.
type EventType int

const (
	EventStarted  EventType = iota // Playback of a file began
	EventUnderrun                  // The tick handler ran dry
	EventError                     // The player recorded a failure
	EventFinished                  // End of stream reached
	EventStopped                   // Playback was cut short
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventUnderrun:
		return "underrun"
	case EventError:
		return "error"
	case EventFinished:
		return "finished"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is a session event as delivered to subscribers.
type Event struct {
	SequenceNo uint64
	SessionID  string
	Type       EventType
	File       string
	Code       uint8 // Error code for EventError
	Message    string
	Time       time.Time
}
