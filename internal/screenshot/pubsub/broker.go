// Package pubsub provides best-effort fan-out of pipeline results to subscribers.
package pubsub

import (
	"sync"
	"time"
)

// Topics published by the pipeline.
const (
	TopicOCR         = "screenshot:ocr"
	TopicExplanation = "screenshot:explanation"
)

// DefaultBuffer is the per-subscriber channel capacity used when Subscribe is
// called with a non-positive size.
const DefaultBuffer = 16

// Event is a single published result.
type Event struct {
	ID      string    `json:"id"`
	Topic   string    `json:"topic"`
	Source  string    `json:"source,omitempty"`
	Payload string    `json:"payload"`
	Time    time.Time `json:"time"`
}

type subscription struct {
	ch     chan Event
	topics map[string]bool
}

// Broker broadcasts events to every current subscriber. Publish never blocks:
// an event is dropped for a subscriber whose buffer is full, and dropped
// entirely when nobody is subscribed.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*subscription)}
}

// Subscribe registers a subscriber for the given topics (all topics when none
// are given). The returned cancel func unregisters and closes the channel; it
// is safe to call more than once.
func (b *Broker) Subscribe(buffer int, topics ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	sub := &subscription{ch: make(chan Event, buffer)}
	if len(topics) > 0 {
		sub.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			sub.topics[t] = true
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}
	return sub.ch, cancel
}

// Publish delivers ev to every matching subscriber and returns how many
// received it.
func (b *Broker) Publish(ev Event) int {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if sub.topics != nil && !sub.topics[ev.Topic] {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of active subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later Publish calls are no-ops and
// later Subscribe calls return a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
