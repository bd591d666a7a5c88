package state

import (
	"sync"
	"time"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Session identity
	sessionID string
	file      string

	// Session lifecycle
	phase     Phase
	startedAt time.Time
	endedAt   time.Time

	// Counters
	underruns int
	errors    int

	now func() time.Time
}

// New creates a new state manager.
func New(sessionID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		phase:     PhaseWaiting,
		now:       time.Now,
	}
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// GetFile returns the file being streamed.
func (m *Manager) GetFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file
}

// Start enters the active phase for file and resets the counters.
func (m *Manager) Start(file string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.file = file
	m.phase = PhaseActive
	m.startedAt = m.now()
	m.endedAt = time.Time{}
	m.underruns = 0
	m.errors = 0
}

// End leaves the active phase. Only PhaseFinished and PhaseTerminated are
// accepted; a session that already ended keeps its phase.
func (m *Manager) End(p Phase) {
	if p != PhaseFinished && p != PhaseTerminated {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseActive {
		return
	}
	m.phase = p
	m.endedAt = m.now()
}

// AddUnderrun counts an underrun.
func (m *Manager) AddUnderrun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.underruns++
}

// AddError counts a recorded failure.
func (m *Manager) AddError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// GetStats returns a snapshot of the session.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var d time.Duration
	switch {
	case m.startedAt.IsZero():
	case m.endedAt.IsZero():
		d = m.now().Sub(m.startedAt)
	default:
		d = m.endedAt.Sub(m.startedAt)
	}

	return Stats{
		SessionID: m.sessionID,
		File:      m.file,
		Phase:     m.phase,
		Underruns: m.underruns,
		Errors:    m.errors,
		Duration:  d.Seconds(),
	}
}
