package events

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventSnapshotDiscovered EventType = "snapshot.discovered"
	EventLoadStarted        EventType = "load.started"
	EventLoadCompleted      EventType = "load.completed"
	EventLoadRetrying       EventType = "load.retrying"
	EventLoadAbandoned      EventType = "load.abandoned"
	EventHealthVeto         EventType = "health.veto"
	EventAliasSwitched      EventType = "alias.switched"
	EventDatabaseDropped    EventType = "database.dropped"
)

// Event represents a deployment lifecycle event
type Event struct {
	Type      EventType
	Tenant    string
	Timestamp int64
	Time      time.Time
	Message   string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.distribute(event)
		case <-b.stopCh:
			return
		}
	}
}

// distribute sends an event to all subscribers without blocking; slow
// subscribers drop events rather than stalling the broker
func (b *Broker) distribute(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}
