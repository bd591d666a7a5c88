// Package notification provides the notification manager for broadcasting
// session events.
package notification

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// queueSize is the number of events buffered per subscriber.
const queueSize = 64

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Event) error
}

// subscription represents a subscriber's subscription. Events are delivered
// from a goroutine of its own.
type subscription struct {
	id      string
	stream  Stream
	queue   chan *Event
	done    chan struct{}
	dropped atomic.Uint64
}

func (s *subscription) run() {
	defer close(s.done)
	for ev := range s.queue {
		if err := s.stream.Send(ev); err != nil {
			zlog.Debug().Msgf("notification send failed: subscription=%s err=%v", s.id, err)
		}
	}
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	sub := &subscription{
		id:     id,
		stream: stream,
		queue:  make(chan *Event, queueSize),
		done:   make(chan struct{}),
	}
	m.subscriptions[id] = sub
	go sub.run()
	return id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription after its queued events are delivered.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()

	if ok {
		close(sub.queue)
		<-sub.done
	}
}

// Broadcast queues an event for every subscriber and stamps it with the next
// sequence number. It never blocks: a subscriber whose queue is full misses
// the event.
func (m *Manager) Broadcast(ev *Event) {
	ev.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close delivers the queued events and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subscriptions
	m.subscriptions = make(map[string]*subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		close(sub.queue)
		<-sub.done
		if n := sub.dropped.Load(); n > 0 {
			zlog.Debug().Msgf("notification events dropped: subscription=%s count=%d", sub.id, n)
		}
	}
}
