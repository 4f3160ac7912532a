// Package changestream delivers commit events to in-process subscribers.
// The database publishes one event per successful commit; the HTTP server
// relays them to websocket clients.
package changestream

import (
	"sync"
	"time"
)

// Event describes a committed transaction.
type Event struct {
	// TxnID is the id of the committed transaction.
	TxnID uint64 `json:"txnId"`

	// Keys lists the row keys the transaction wrote.
	Keys []string `json:"keys"`

	// Timestamp is when the commit completed.
	Timestamp time.Time `json:"clusterTime"`
}

// Subscription is one consumer's buffered view of the event stream.
type Subscription struct {
	id     int
	events chan *Event
	broker *Broker
	once   sync.Once
}

// Events returns the channel events are delivered on. The channel is closed
// when the subscription or the broker closes.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Close detaches the subscription from the broker.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s.id)
		close(s.events)
	})
}

// Broker fans commit events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int]*Subscription),
	}
}

// Subscribe registers a consumer with the given buffer size.
func (b *Broker) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:     b.nextID,
		events: make(chan *Event, buffer),
		broker: b,
	}
	b.nextID++

	if !b.closed {
		b.subs[sub.id] = sub
	}
	return sub
}

// Publish delivers the event to every subscriber that has buffer room.
func (b *Broker) Publish(ev *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			// Slow subscriber; drop rather than stall the commit path.
		}
	}
}

// SubscriberCount returns the number of attached subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close detaches all subscribers and closes their channels.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[int]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() {
			close(sub.events)
		})
	}
}

func (b *Broker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}
